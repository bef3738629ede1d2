package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"refaudit/internal/driver"
	"refaudit/internal/ui"
)

type compileOutcome struct {
	result *driver.CompileResult
	err    error
}

// runCompileWithUI compiles dir while a progress view renders the events.
// The view may quit before the compile does; the remaining events are
// drained so the producer never blocks on a full channel.
func runCompileWithUI(ctx context.Context, title, dir string, opts driver.CompileOptions) (*driver.CompileResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan compileOutcome, 1)

	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Compile(ctx, dir, opts)
		outcomeCh <- compileOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, nil, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		logger.Warn("progress view failed: " + uiErr.Error())
	}
	return outcome.result, outcome.err
}
