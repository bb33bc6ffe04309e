package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
)

var (
	askSessionID   string
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about your documents",
	Long: `Retrieves the passages most relevant to the question from the index and
streams an answer grounded in them. Without an index the question is
answered as general conversation.

The exchange is recorded in a session. Pass --session to continue an
existing conversation; otherwise a new session is started and its ID is
printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSessionID, "session", "s", "", "session to continue")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "list the passages used as context")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return notConfigured("chat")
	}

	ctx, stop := interruptible(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	req := driving.AskRequest{
		SessionID: askSessionID,
		Question:  strings.Join(args, " "),
	}
	result, err := chatService.Ask(ctx, req, func(fragment string) error {
		_, werr := fmt.Fprint(out, fragment)
		return werr
	})
	if result != nil && result.Answer != "" {
		cmd.Println()
	}
	if err != nil {
		return explain(err)
	}

	if askShowSources {
		printSources(cmd, result.Sources)
	}
	if askSessionID == "" {
		cmd.PrintErrf("session: %s\n", result.SessionID)
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.RetrievedChunk) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range sources {
		name := s.Source()
		if name == "" {
			name = s.ChunkID
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, name, s.Score)
		cmd.Printf("      %s\n", snippet(s.Content, 120))
	}
}

func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

// explain adds a hint to errors the user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, domain.ErrStreamInterrupted):
		return errors.New("interrupted")
	case errors.Is(err, domain.ErrLLMUnavailable):
		return fmt.Errorf("%w (run 'ragchat settings llm' to configure a provider)", err)
	case errors.Is(err, domain.ErrServiceTimeout):
		return fmt.Errorf("%w (raise llm.timeout or embedding.timeout)", err)
	case errors.Is(err, domain.ErrIndexLoad):
		return fmt.Errorf("%w (run 'ragchat index clear' and upload again)", err)
	default:
		return err
	}
}
