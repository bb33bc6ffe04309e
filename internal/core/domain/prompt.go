package domain

import "strings"

// InsufficientContextReply is the answer the model is instructed to give
// when the retrieved context does not cover the question.
const InsufficientContextReply = "I don't have enough information to answer that question."

// Built-in prompt texts. Users may override them through the prompt store.
const (
	// GroundedSystemPrompt is the system instruction when context was retrieved.
	GroundedSystemPrompt = "You are a helpful AI assistant who answers user questions based on the provided context from documents."

	// GeneralSystemPrompt is the system instruction when no context exists.
	GeneralSystemPrompt = "You are a helpful AI assistant."

	// ContextTemplate wraps the question with the retrieved context.
	// The first %s is the context, the second the question.
	ContextTemplate = "Answer the user's question based on the context below. " +
		"If the context doesn't contain relevant information, say \"" + InsufficientContextReply + "\"\n\n" +
		"### Context:\n%s\n\n" +
		"### Question:\n%s\n\n" +
		"### Answer:"
)

// PromptVariantKind selects between grounded and general prompting.
type PromptVariantKind int

const (
	// PromptNoContext answers from the model's general knowledge.
	PromptNoContext PromptVariantKind = iota

	// PromptWithContext answers from retrieved document context.
	PromptWithContext
)

// String returns the string representation.
func (k PromptVariantKind) String() string {
	if k == PromptWithContext {
		return "with_context"
	}
	return "no_context"
}

// PromptVariant is a tagged variant: NoContext, or WithContext carrying
// the retrieved context text.
type PromptVariant struct {
	kind    PromptVariantKind
	context string
}

// NoContext returns the general-knowledge variant.
func NoContext() PromptVariant {
	return PromptVariant{kind: PromptNoContext}
}

// WithContext returns the grounded variant for the given context.
func WithContext(context string) PromptVariant {
	return PromptVariant{kind: PromptWithContext, context: context}
}

// VariantFor selects WithContext only when context has non-whitespace content.
func VariantFor(context string) PromptVariant {
	if strings.TrimSpace(context) == "" {
		return NoContext()
	}
	return WithContext(context)
}

// Kind returns the variant tag.
func (v PromptVariant) Kind() PromptVariantKind {
	return v.kind
}

// Grounded reports whether the variant carries document context.
func (v PromptVariant) Grounded() bool {
	return v.kind == PromptWithContext
}

// Context returns the context text. Empty for NoContext.
func (v PromptVariant) Context() string {
	return v.context
}

// Message is one entry of a model input.
type Message struct {
	Role    Role
	Content string
}

// ModelInput is the structured prompt handed to the language model:
// a system instruction, prior turns in order, then the current question.
type ModelInput struct {
	System   string
	History  []Message
	Question string
}

// Messages flattens the input into the ordered message list.
func (m ModelInput) Messages() []Message {
	out := make([]Message, 0, len(m.History)+2)
	out = append(out, Message{Role: RoleSystem, Content: m.System})
	out = append(out, m.History...)
	out = append(out, Message{Role: RoleUser, Content: m.Question})
	return out
}
