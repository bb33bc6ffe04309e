package services

import (
	"strings"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// PromptAssembler builds the model input for a question.
// Prompt texts come from the PromptStore when one is configured and fall
// back to the built-in defaults otherwise.
type PromptAssembler struct {
	prompts driven.PromptStore
}

// NewPromptAssembler creates a prompt assembler.
// The prompts parameter is optional (can be nil).
func NewPromptAssembler(prompts driven.PromptStore) *PromptAssembler {
	return &PromptAssembler{prompts: prompts}
}

// Assemble returns the system instruction, the prior turns in order and the
// current question. For a grounded variant the question is wrapped in the
// context template.
func (a *PromptAssembler) Assemble(history []domain.Turn, question string, variant domain.PromptVariant) domain.ModelInput {
	input := domain.ModelInput{
		History:  make([]domain.Message, 0, len(history)),
		Question: question,
	}
	for _, t := range history {
		input.History = append(input.History, domain.Message{Role: t.Role, Content: t.Content})
	}

	if !variant.Grounded() {
		input.System = a.load(driven.PromptSystemGeneral, domain.GeneralSystemPrompt)
		return input
	}

	input.System = a.load(driven.PromptSystemContext, domain.GroundedSystemPrompt)
	input.Question = fillTemplate(a.contextTemplate(), variant.Context(), question)
	return input
}

func (a *PromptAssembler) contextTemplate() string {
	tmpl := a.load(driven.PromptContextTemplate, domain.ContextTemplate)
	if err := validateContextTemplate(tmpl); err != "" {
		logger.Warn("Ignoring custom %s prompt: %s", driven.PromptContextTemplate, err)
		return domain.ContextTemplate
	}
	return tmpl
}

func (a *PromptAssembler) load(name, fallback string) string {
	if a.prompts == nil {
		return fallback
	}
	text, err := a.prompts.Load(name)
	if err != nil {
		logger.Warn("Failed to load prompt %s: %v", name, err)
		return fallback
	}
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

// validateContextTemplate returns a reason when tmpl cannot be used.
func validateContextTemplate(tmpl string) string {
	if strings.Count(tmpl, "%s") != 2 {
		return "template must contain exactly two %s placeholders (context, question)"
	}
	if !strings.Contains(tmpl, domain.InsufficientContextReply) {
		return "template must instruct the model to reply " + `"` + domain.InsufficientContextReply + `"`
	}
	return ""
}

// fillTemplate substitutes the two %s placeholders in order. Other percent
// signs in the template and the inserted texts are left untouched.
func fillTemplate(tmpl, context, question string) string {
	first := strings.Index(tmpl, "%s")
	rest := tmpl[first+2:]
	second := strings.Index(rest, "%s")

	var b strings.Builder
	b.Grow(len(tmpl) + len(context) + len(question))
	b.WriteString(tmpl[:first])
	b.WriteString(context)
	b.WriteString(rest[:second])
	b.WriteString(question)
	b.WriteString(rest[second+2:])
	return b.String()
}

// ToChatMessages converts a model input to the LLM port's message list.
func ToChatMessages(input domain.ModelInput) []driven.ChatMessage {
	msgs := input.Messages()
	out := make([]driven.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = driven.ChatMessage{Role: m.Role.String(), Content: m.Content}
	}
	return out
}
