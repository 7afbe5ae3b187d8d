package quizme

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Judge decides whether a spoken answer matches the expected one.
type Judge interface {
	Judge(ctx context.Context, prompt, expectedAnswer, spokenAnswer string) (Verdict, error)
}

// LexicalJudge accepts an answer when either normalized string contains the
// other. It never calls out and never fails.
type LexicalJudge struct{}

// Judge implements Judge.
func (LexicalJudge) Judge(_ context.Context, _, expectedAnswer, spokenAnswer string) (Verdict, error) {
	expected := normalizeAnswer(expectedAnswer)
	spoken := normalizeAnswer(spokenAnswer)
	if expected == "" || spoken == "" {
		return Incorrect, nil
	}
	if strings.Contains(spoken, expected) || strings.Contains(expected, spoken) {
		return Correct, nil
	}
	return Incorrect, nil
}

// normalizeAnswer lower-cases, drops apostrophes and periods, turns other
// punctuation into spaces and collapses whitespace.
func normalizeAnswer(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '\'' || r == '’' || r == '.':
			return -1
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return ' '
		default:
			return unicode.ToLower(r)
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

const affirmativeToken = "yes"

const judgeSystemPrompt = "You grade spoken quiz answers. Reply with exactly one word: yes or no."

// SemanticJudge asks an LLM whether the answer is right, within reason.
type SemanticJudge struct {
	llm completion
}

// NewSemanticJudge creates a judge backed by client. transcript may be nil.
func NewSemanticJudge(client ChatCompleter, model string, transcript *LLMLogger) *SemanticJudge {
	return &SemanticJudge{llm: completion{client: client, model: model, transcript: transcript}}
}

// Judge implements Judge. Any reply containing "yes" is Correct; anything
// else that arrived intact is Incorrect.
func (j *SemanticJudge) Judge(ctx context.Context, prompt, expectedAnswer, spokenAnswer string) (Verdict, error) {
	text, err := j.llm.complete(ctx, "AnswerJudge", judgeSystemPrompt, buildJudgePrompt(prompt, expectedAnswer, spokenAnswer), 5)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrJudgeUnavailable, err)
	}

	verdict := Incorrect
	if strings.Contains(strings.ToLower(text), affirmativeToken) {
		verdict = Correct
	}

	j.llm.transcript.LogVerdict(expectedAnswer, spokenAnswer, verdict)
	VerboseLog("semantic verdict", "reply", text, "verdict", verdict)
	return verdict, nil
}

func buildJudgePrompt(prompt, expectedAnswer, spokenAnswer string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Question: %s\n", prompt))
	sb.WriteString(fmt.Sprintf("Correct Answer: %s\n", expectedAnswer))
	sb.WriteString(fmt.Sprintf("User Answer: %s\n\n", spokenAnswer))
	sb.WriteString("Is the user's answer correct, within reason?\n")
	sb.WriteString("The user answer is a transcribed spoken response, so it may be a similar-sounding word to the correct answer.\n")
	sb.WriteString("Answer with only \"yes\" or \"no\".")
	return sb.String()
}
