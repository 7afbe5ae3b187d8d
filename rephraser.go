package quizme

import (
	"context"
	"fmt"
	"strings"
)

// Rephraser turns a raw definition into a question whose answer is the
// card's expected answer.
type Rephraser interface {
	Rephrase(ctx context.Context, prompt, expectedAnswer string) (string, error)
}

const rephraseSystemPrompt = "You turn flashcards into spoken quiz questions. Output only the question."

// LLMRephraser rephrases through an LLM.
type LLMRephraser struct {
	llm completion
}

// NewLLMRephraser creates a rephraser backed by client. transcript may be nil.
func NewLLMRephraser(client ChatCompleter, model string, transcript *LLMLogger) *LLMRephraser {
	return &LLMRephraser{llm: completion{client: client, model: model, transcript: transcript}}
}

// Rephrase implements Rephraser. A prompt already ending in '?' comes back
// unchanged without a network call.
func (r *LLMRephraser) Rephrase(ctx context.Context, prompt, expectedAnswer string) (string, error) {
	if isQuestion(prompt) {
		return prompt, nil
	}

	text, err := r.llm.complete(ctx, "QuestionRephraser", rephraseSystemPrompt, buildRephrasePrompt(prompt, expectedAnswer), 120)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRephraseUnavailable, err)
	}

	question := strings.Trim(strings.TrimSpace(text), "\"")
	if question == "" {
		return "", fmt.Errorf("%w: %w: quoted empty question", ErrRephraseUnavailable, errMalformedResponse)
	}

	VerboseLog("rephrased question", "definition", prompt, "question", question)
	return question, nil
}

func isQuestion(prompt string) bool {
	return strings.HasSuffix(strings.TrimSpace(prompt), "?")
}

func buildRephrasePrompt(definition, term string) string {
	var sb strings.Builder
	sb.WriteString("Rephrase the following flashcard pair into a proper question. ")
	sb.WriteString("The question must be worded so that the provided \"Answer\" is the correct response, using the \"Definition\" as the context. ")
	sb.WriteString("If the definition is already a question, leave it unchanged.\n\n")
	sb.WriteString("Flashcard Pair:\n")
	sb.WriteString(fmt.Sprintf("Definition: %q\n", definition))
	sb.WriteString(fmt.Sprintf("Answer: %q\n\n", term))
	sb.WriteString("Examples:\n")
	sb.WriteString("- Definition \"Canberra\", Answer \"Australia\": \"Which country has Canberra as its capital city?\"\n")
	sb.WriteString("- Definition \"Lima\", Answer \"Peru\": \"Which country has Lima as its capital city?\"\n")
	sb.WriteString("- Definition \"No soldier can be quartered in a home without the permission of the owner\", Answer \"3rd Amendment\": ")
	sb.WriteString("\"Which amendment says that no soldier can be quartered in a home without the permission of the owner?\"\n\n")
	sb.WriteString("Output a single well-structured question.")
	return sb.String()
}
