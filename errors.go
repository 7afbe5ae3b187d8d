package quizme

import "errors"

var (
	// ErrSourceUnavailable means the question set could not be fetched or parsed,
	// or it contained no usable cards.
	ErrSourceUnavailable = errors.New("question source unavailable")

	// ErrJudgeUnavailable means the grading service failed or answered in an
	// unexpected shape.
	ErrJudgeUnavailable = errors.New("answer judge unavailable")

	// ErrRephraseUnavailable means the rephrasing service failed or answered in
	// an unexpected shape.
	ErrRephraseUnavailable = errors.New("question rephraser unavailable")

	// ErrInvalidSessionAction means the action needs a running quiz.
	ErrInvalidSessionAction = errors.New("no quiz in progress")

	// ErrEmptyAnswer means no spoken text was captured.
	ErrEmptyAnswer = errors.New("empty answer")
)
