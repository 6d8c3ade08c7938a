// Command agb is the command-line companion to the AGB SDK. It drives the
// same client the SDK exposes: creating and deleting sandbox sessions,
// listing them by label, and running shell commands inside them.
//
// Configuration comes from the usual sources: AGB_API_KEY and AGB_ENDPOINT in
// the environment, or ~/.agb/config.yaml.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agbcloud/agb-go/pkg/client"
)

var rootCmd = &cobra.Command{
	Use:   "agb",
	Short: "Manage AGB sandbox sessions from the command line",
	Long: `agb manages remote sandbox sessions on the AGB cloud.

Sessions are isolated execution environments with code, command, filesystem,
object storage, and browser capabilities. The CLI covers the session
lifecycle; use the Go SDK for the capability modules.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newSessionCommand())
	rootCmd.AddCommand(newRunCommand())

	// Shortcut for "session list".
	rootCmd.AddCommand(&cobra.Command{
		Use:   "ps",
		Short: "List sessions (shortcut for 'session list')",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSessions(cmd, nil)
		},
	})
}

// newClient builds the SDK client from ambient configuration.
func newClient() (*client.Client, error) {
	c, err := client.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit exitCodeError
		if errors.As(err, &exit) {
			// The remote command's output is already printed; mirror its
			// status without extra noise.
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
