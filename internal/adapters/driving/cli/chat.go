package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
)

var chatSessionID string

// chatInput is the REPL input. Tests replace it.
var chatInput io.Reader = os.Stdin

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Opens an interactive conversation over your documents. Answers stream
as they are generated; press Ctrl-C to stop an answer early.

Commands:
  /new      start a new session
  /history  print the current session
  /sources  list the passages used for the last answer
  /exit     quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "session to continue")
	rootCmd.AddCommand(chatCmd)
}

// replState is the mutable state of one chat REPL.
type replState struct {
	sessionID string
	sources   []domain.RetrievedChunk
	you       func(a ...any) string
	assistant func(a ...any) string
	dim       func(a ...any) string
}

func newReplState(sessionID string) *replState {
	if f, ok := chatInput.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		color.NoColor = true
	}
	return &replState{
		sessionID: sessionID,
		you:       color.New(color.FgGreen, color.Bold).SprintFunc(),
		assistant: color.New(color.FgCyan, color.Bold).SprintFunc(),
		dim:       color.New(color.Faint).SprintFunc(),
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return notConfigured("chat")
	}

	st := newReplState(chatSessionID)
	cmd.Println(st.dim("Type a question, or /exit to quit."))

	scanner := bufio.NewScanner(chatInput)
	for {
		cmd.Print(st.you("You: "))
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if done := st.command(cmd, line); done {
				return nil
			}
			continue
		}

		if err := st.ask(cmd, line); err != nil {
			cmd.PrintErrf("Error: %v\n", explain(err))
		}
	}
}

// command runs a slash command and reports whether the REPL should exit.
func (st *replState) command(cmd *cobra.Command, line string) bool {
	switch strings.Fields(line)[0] {
	case "/exit", "/quit":
		return true
	case "/new":
		st.sessionID = ""
		st.sources = nil
		cmd.Println(st.dim("Started a new session."))
	case "/history":
		st.history(cmd)
	case "/sources":
		if len(st.sources) == 0 {
			cmd.Println(st.dim("No sources for the last answer."))
		}
		printSources(cmd, st.sources)
	default:
		cmd.Println(st.dim("Unknown command. Try /new, /history, /sources or /exit."))
	}
	return false
}

func (st *replState) ask(cmd *cobra.Command, question string) error {
	ctx, stop := interruptible(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	cmd.Print(st.assistant("Assistant: "))

	result, err := chatService.Ask(ctx, driving.AskRequest{
		SessionID: st.sessionID,
		Question:  question,
	}, func(fragment string) error {
		_, werr := fmt.Fprint(out, fragment)
		return werr
	})
	cmd.Println()
	cmd.Println()

	if result != nil && result.SessionID != "" {
		st.sessionID = result.SessionID
		st.sources = result.Sources
	}
	if errors.Is(err, domain.ErrStreamInterrupted) {
		cmd.Println(st.dim("(stopped)"))
		return nil
	}
	return err
}

func (st *replState) history(cmd *cobra.Command) {
	if st.sessionID == "" || sessionService == nil {
		cmd.Println(st.dim("No messages yet."))
		return
	}
	turns, err := sessionService.History(cmd.Context(), st.sessionID)
	if err != nil {
		cmd.PrintErrf("Error: %v\n", err)
		return
	}
	for _, t := range turns {
		label := st.you(roleLabel(t.Role) + ":")
		if t.Role == domain.RoleAssistant {
			label = st.assistant(roleLabel(t.Role) + ":")
		}
		cmd.Printf("%s %s\n", label, t.Content)
	}
}
