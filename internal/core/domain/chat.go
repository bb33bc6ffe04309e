package domain

// ChatState is a stage of the per-question orchestration.
type ChatState string

// Orchestration states, in the order a successful question passes them.
const (
	StateReceived       ChatState = "RECEIVED"
	StateContextLookup  ChatState = "CONTEXT_LOOKUP"
	StatePromptBuild    ChatState = "PROMPT_BUILD"
	StateModelStreaming ChatState = "MODEL_STREAMING"
	StateHistoryAppend  ChatState = "HISTORY_APPEND"
	StateDone           ChatState = "DONE"
	StateFailed         ChatState = "FAILED"
)

// String returns the string representation.
func (s ChatState) String() string {
	return string(s)
}
