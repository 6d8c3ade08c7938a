package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/agbcloud/agb-go/pkg/client"
	"github.com/agbcloud/agb-go/pkg/session"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, list, and delete sandbox sessions",
	}
	cmd.AddCommand(newSessionCreateCommand())
	cmd.AddCommand(newSessionListCommand())
	cmd.AddCommand(newSessionDeleteCommand())
	return cmd
}

func newSessionCreateCommand() *cobra.Command {
	var labels []string
	var imageID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new sandbox session",
		Long: `Create a new sandbox session and print its id.

Labels organize sessions for later filtering, for example:

  agb session create --label env=test --label team=search`,
		RunE: func(cmd *cobra.Command, args []string) error {
			labelMap, err := parseLabels(labels)
			if err != nil {
				return err
			}

			c, err := newClient()
			if err != nil {
				return err
			}

			result := c.Create(cmd.Context(), &client.CreateSessionParams{
				Labels:  labelMap,
				ImageID: imageID,
			})
			if !result.Success {
				return fmt.Errorf("create failed: %s (request %s)", result.ErrorMessage, result.RequestID)
			}
			fmt.Println(result.Session.SessionID())
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&labels, "label", "l", nil, "Label in key=value form (repeatable)")
	cmd.Flags().StringVarP(&imageID, "image", "i", "", "Sandbox image id (default "+client.DefaultImageID+")")
	return cmd
}

func newSessionListCommand() *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List live sessions",
		Long: `List live sessions as the control plane reports them.

Filter by label glob patterns, for example:

  agb session list --label env=prod-*`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSessions(cmd, patterns)
		},
	}

	cmd.Flags().StringArrayVarP(&patterns, "label", "l", nil, "Label filter in key=glob form (repeatable)")
	return cmd
}

func listSessions(cmd *cobra.Command, patterns []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	result := c.ListMatching(cmd.Context(), patterns...)
	if !result.Success {
		return fmt.Errorf("list failed: %s (request %s)", result.ErrorMessage, result.RequestID)
	}
	if len(result.Sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	tbl := table.New("SESSION", "IMAGE", "LABELS")
	tbl.WithPadding(2)
	for _, s := range result.Sessions {
		tbl.AddRow(s.SessionID(), s.ImageID(), formatLabels(s.Labels()))
	}
	tbl.Print()
	return nil
}

func newSessionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			sess, err := resolveSession(cmd, c, args[0])
			if err != nil {
				return err
			}
			result := c.Delete(cmd.Context(), sess)
			if !result.Success {
				return fmt.Errorf("delete failed: %s (request %s)", result.ErrorMessage, result.RequestID)
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

// resolveSession finds the handle for a session id, refreshing the registry
// from the control plane since CLI invocations start with an empty one.
func resolveSession(cmd *cobra.Command, c *client.Client, sessionID string) (*session.Session, error) {
	if s, ok := c.Get(sessionID); ok {
		return s, nil
	}
	list := c.List(cmd.Context())
	if !list.Success {
		return nil, fmt.Errorf("list failed: %s (request %s)", list.ErrorMessage, list.RequestID)
	}
	for _, s := range list.Sessions {
		if s.SessionID() == sessionID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no session %s", sessionID)
}

func parseLabels(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	labels := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("label %q is not of the form key=value", pair)
		}
		labels[key] = value
	}
	return labels, nil
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "-"
	}
	pairs := make([]string, 0, len(labels))
	for key, value := range labels {
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
