package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refaudit/internal/driver"
)

func newModel(files ...string) *progressModel {
	return NewProgressModel("compiling", files, make(chan driver.Event)).(*progressModel)
}

func TestProgressTracksFileStatus(t *testing.T) {
	m := newModel("a.cs", "b.cs")

	m.applyEvent(driver.Event{Stage: driver.StageParse, Status: driver.StatusWorking, File: "a.cs"})
	assert.Equal(t, "parsing", m.items[0].status)
	assert.InDelta(t, 0.9*0.5/2, m.percent(), 1e-9)

	m.applyEvent(driver.Event{Stage: driver.StageParse, Status: driver.StatusDone, File: "a.cs"})
	m.applyEvent(driver.Event{Stage: driver.StageParse, Status: driver.StatusError, File: "b.cs"})
	m.applyEvent(driver.Event{Stage: driver.StageParse, Status: driver.StatusError, File: "b.cs"})
	assert.Equal(t, 1, m.failed)
	assert.InDelta(t, 0.9, m.percent(), 1e-9)

	m.applyEvent(driver.Event{Stage: driver.StageBind, Status: driver.StatusWorking})
	assert.Equal(t, "binding", m.stageLabel)
	m.applyEvent(driver.Event{Stage: driver.StageBind, Status: driver.StatusDone})
	assert.InDelta(t, 1.0, m.percent(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "compiling (done), 1 failed")
	assert.Contains(t, view, "a.cs")
}

func TestProgressLearnsFilesFromEvents(t *testing.T) {
	m := newModel()
	m.applyEvent(driver.Event{Stage: driver.StageParse, Status: driver.StatusQueued, File: "late.cs"})
	require.Len(t, m.items, 1)
	assert.Equal(t, "queued", m.items[0].status)
}

func TestProgressCapsRows(t *testing.T) {
	files := make([]string, maxRows+5)
	for i := range files {
		files[i] = fmt.Sprintf("f%02d.cs", i)
	}
	m := newModel(files...)
	m.applyEvent(driver.Event{Stage: driver.StageParse, Status: driver.StatusError, File: files[len(files)-1]})

	rows := m.visibleRows()
	require.Len(t, rows, maxRows)
	assert.Equal(t, files[len(files)-1], rows[0].path, "errors are listed first")
	assert.Contains(t, m.View(), "5 more file(s)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short.cs", truncate("short.cs", 20))
	for _, long := range []string{"very/long/path/File.cs", "日本語のファイル.cs"} {
		got := truncate(long, 10)
		assert.LessOrEqual(t, runewidth.StringWidth(got), 10, long)
		assert.True(t, strings.HasSuffix(got, "..."), got)
	}
}
