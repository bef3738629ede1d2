package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"refaudit/internal/version"
)

// exitError carries a process exit code. A nil err means the failure was
// already reported and only the code is left to deliver.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// newRootCmd builds the command tree with its persistent flags.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "refaudit",
		Short: "Audit reference sources against a recorded API manifest",
		Long: `refaudit compiles a tree of C# reference sources, resolves every entry of an
API manifest to a declared symbol and removes the EditorBrowsable attribute
lines from the symbols that carry one. Symbols that match without the
attribute and manifest entries that match nothing are reported.`,
		Version:           version.String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		PersistentPostRun: func(*cobra.Command, []string) { syncLogger() },
	}

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.String("log-level", "warn", "log level written to stderr (debug|info|warn|error)")
	pf.String("ui", "auto", "progress UI while compiling (auto|on|off)")
	pf.Int("max-diagnostics", 0, "maximum number of diagnostics to keep (0=unbounded)")
	pf.String("config", "", "path to refaudit.toml (default: search upward from the working directory)")

	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newDiagCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func main() {
	os.Exit(execute(newRootCmd(), os.Stderr))
}

// execute runs cmd and maps its error to an exit code: 0 on success, the
// code of an exitError, 1 for anything else.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}
