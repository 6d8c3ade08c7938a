package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agbcloud/agb-go/pkg/session"
)

// exitCodeError carries a remote command's non-zero exit status so main can
// exit with the same code instead of a generic failure.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.code)
}

func newRunCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <session-id> <command>...",
		Short: "Run a shell command inside a session",
		Long: `Run a shell command inside a session and print its output.

The exit code of the remote command becomes the exit code of agb, for
example:

  agb run sess-0042 ls -la /tmp`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			sess, err := resolveSession(cmd, c, args[0])
			if err != nil {
				return err
			}

			var opts *session.ExecOptions
			if timeout > 0 {
				opts = &session.ExecOptions{Timeout: timeout}
			}
			result := sess.Command().Execute(cmd.Context(), strings.Join(args[1:], " "), opts)
			if !result.Success {
				return fmt.Errorf("command failed: %s (request %s)", result.ErrorMessage, result.RequestID)
			}

			fmt.Print(result.Output)
			if result.ExitCode != 0 {
				return exitCodeError{code: result.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Command timeout (default 30s)")
	return cmd
}
