package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return the built-in
	// default, or an error for unknown names.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptSystemContext is the system instruction for grounded answers.
	// This prompt has no format placeholders.
	PromptSystemContext = "chat_system_context"

	// PromptSystemGeneral is the system instruction when no context exists.
	// This prompt has no format placeholders.
	PromptSystemGeneral = "chat_system_general"

	// PromptContextTemplate wraps the question with retrieved context.
	// The template expects %s (context) then %s (question).
	PromptContextTemplate = "chat_context_template"
)
