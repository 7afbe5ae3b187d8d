package quizme

import (
	"fmt"
	"strings"
)

// Reply is the spoken response for one turn.
type Reply struct {
	Speech     string `json:"speech"`
	Reprompt   string `json:"reprompt,omitempty"`
	EndSession bool   `json:"endSession"`
}

const (
	welcomeText      = `Welcome to Quiz Me! Say "start" to begin, or "help" for instructions.`
	helpText         = `You can say "start" to begin, "repeat question" to hear the current question again, "score" to hear your current score, or "stop" to end the quiz. How can I help?`
	answerReprompt   = "Please provide your answer."
	startReprompt    = `Say "start" to begin.`
	playAgainText    = "Say 'start' to try again or 'exit' to end."
	goodbyeText      = "Thanks for playing! Goodbye!"
	fallbackNoteText = "I couldn't load your questions, so here's a practice one. "
	apologyText      = "Sorry, I had trouble processing your request. Please try again."
)

// Format renders a Result as speech. It handles every ResultKind and never
// fails; unknown kinds fall back to the generic apology.
func Format(res Result) Reply {
	switch res.Kind {
	case KindWelcome:
		return Reply{Speech: welcomeText, Reprompt: welcomeText}

	case KindQuizStarted:
		var sb strings.Builder
		if res.Fallback {
			sb.WriteString(fallbackNoteText)
		}
		sb.WriteString("Let's begin! ")
		sb.WriteString(res.Prompt)
		return Reply{Speech: sb.String(), Reprompt: answerReprompt}

	case KindNoQuizActive:
		return Reply{Speech: "No quiz in progress. Say 'start' to begin.", Reprompt: startReprompt}

	case KindEmptyAnswer:
		return Reply{Speech: "I didn't catch your answer. Please try again.", Reprompt: answerReprompt}

	case KindJudgeUnavailable:
		return Reply{Speech: "I'm having trouble validating your answer. Please try again later.", Reprompt: answerReprompt}

	case KindAnswerJudged:
		return Reply{
			Speech:   feedback(res) + "The next question is: " + res.NextPrompt,
			Reprompt: answerReprompt,
		}

	case KindQuizCompleted:
		speech := feedback(res) + fmt.Sprintf("Quiz complete! Your final score is %d out of %d, or %d%%. ",
			res.Score, res.Total, res.Percentage)
		if res.ReviewStarted {
			speech += fmt.Sprintf("Now let's review the %s you missed. %s",
				plural(res.ReviewTotal, "question"), res.ReviewPrompt)
			return Reply{Speech: speech, Reprompt: answerReprompt}
		}
		return Reply{Speech: speech + playAgainText, Reprompt: playAgainText}

	case KindRepeat:
		return Reply{Speech: res.Prompt, Reprompt: answerReprompt}

	case KindNothingToRepeat:
		return Reply{Speech: "No question to repeat. Say 'start' to begin.", Reprompt: startReprompt}

	case KindScore:
		return Reply{
			Speech: fmt.Sprintf("Your current score is %d out of %d questions answered. Let's continue with your current question: %s",
				res.Score, res.Answered, res.Prompt),
			Reprompt: answerReprompt,
		}

	case KindNoScore:
		return Reply{Speech: "There's no score yet because no quiz is in progress. Say 'start' to begin.", Reprompt: startReprompt}

	case KindHelp:
		return Reply{Speech: helpText, Reprompt: helpText}

	case KindGoodbye:
		if res.Phase == PhaseInProgress {
			return Reply{
				Speech:     fmt.Sprintf("You scored %d out of %d questions answered. %s", res.Score, res.Answered, goodbyeText),
				EndSession: true,
			}
		}
		return Reply{Speech: goodbyeText, EndSession: true}

	case KindSessionEnded:
		return Reply{EndSession: true}

	case KindUnrecognized:
		return Reply{Speech: "Sorry, I had trouble understanding that. Please try again.", Reprompt: helpText}

	default:
		return Reply{Speech: apologyText, Reprompt: apologyText}
	}
}

func feedback(res Result) string {
	if res.Verdict == Correct {
		return "Correct! "
	}
	return fmt.Sprintf("Incorrect. The correct answer is: %s. ", res.ExpectedAnswer)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
