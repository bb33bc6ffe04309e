package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
)

var (
	exportFormat string
	exportOutput string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage chat sessions",
	Long:  `Create, list, inspect, export and delete chat sessions.`,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session",
	Args:  cobra.NoArgs,
	RunE:  runSessionNew,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript",
	Long: `Writes the session and its messages as JSON or YAML, to stdout or to the
file given with --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionExport,
}

func init() {
	sessionExportCmd.Flags().StringVarP(&exportFormat, "format", "f", driving.ExportJSON, "output format (json or yaml)")
	sessionExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")

	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionExportCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionNew(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}
	s, err := sessionService.Create(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	cmd.Println(s.ID)
	return nil
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}

	sessions, err := sessionService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		cmd.Println("No sessions.")
		return nil
	}

	for i := range sessions {
		cmd.Printf("  %s  %s  %s\n",
			sessions[i].ID,
			sessions[i].UpdatedAt.Local().Format("2006-01-02 15:04"),
			sessions[i].Title)
	}
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}

	s, err := sessionService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	turns, err := sessionService.History(cmd.Context(), s.ID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	cmd.Printf("%s\n", s.Title)
	cmd.Printf("ID: %s\n", s.ID)
	cmd.Println()
	if len(turns) == 0 {
		cmd.Println("(no messages)")
		return nil
	}
	for _, t := range turns {
		cmd.Printf("%s: %s\n\n", roleLabel(t.Role), t.Content)
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}
	if err := sessionService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	cmd.Printf("Session %s deleted.\n", args[0])
	return nil
}

func runSessionExport(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}

	data, err := sessionService.Export(cmd.Context(), args[0], exportFormat)
	if err != nil {
		return fmt.Errorf("failed to export session: %w", err)
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	cmd.Printf("Exported to %s\n", exportOutput)
	return nil
}

func roleLabel(r domain.Role) string {
	if r == domain.RoleAssistant {
		return "Assistant"
	}
	return "You"
}
