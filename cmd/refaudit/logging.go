package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is built once per invocation by setupLogging.
var logger = zap.NewNop()

// newLogger builds a console logger for diagnostics about the tool itself.
// Reports go to stdout; the log always goes to w.
func newLogger(level string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, lvl)
	return zap.New(core), nil
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}
	l, err := newLogger(level, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}
	logger = l

	colorOn, err := colorEnabled(cmd)
	if err != nil {
		return err
	}
	color.NoColor = !colorOn
	return nil
}

func syncLogger() {
	// stderr reports EINVAL on sync for terminals; nothing to recover
	_ = logger.Sync()
}

// colorEnabled reads --color; auto enables colour on terminals unless
// NO_COLOR is set.
func colorEnabled(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "", "auto":
		return os.Getenv("NO_COLOR") == "" && isTerminal(os.Stdout), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
}
