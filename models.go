package quizme

// QuestionCard is one definition/term pair. Prompt is what gets read out and
// ExpectedAnswer is what the player should say back.
type QuestionCard struct {
	Prompt         string `json:"prompt"`
	ExpectedAnswer string `json:"expectedAnswer"`
}

// QuizSet is the ordered, non-empty list of cards played in one quiz.
type QuizSet []QuestionCard

// TermRecord is one entry of the remote question-set payload.
type TermRecord struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// QuestionSetPayload is the wire shape served by question-set sources:
// {"terms": [{"term": ..., "definition": ...}, ...]}
type QuestionSetPayload struct {
	Terms []TermRecord `json:"terms"`
}

// Cards maps each record's definition to a prompt and its term to the
// expected answer. Records with a blank side are dropped.
func (p QuestionSetPayload) Cards() QuizSet {
	cards := make(QuizSet, 0, len(p.Terms))
	for _, t := range p.Terms {
		card, ok := newCard(t.Definition, t.Term)
		if !ok {
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

// Verdict is the outcome of judging a spoken answer.
type Verdict string

const (
	Correct   Verdict = "correct"
	Incorrect Verdict = "incorrect"
)

// Phase describes where a session is in the quiz lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// ActionKind enumerates the inbound player actions.
type ActionKind string

const (
	ActionLaunch       ActionKind = "launch"
	ActionStart        ActionKind = "start"
	ActionAnswer       ActionKind = "answer"
	ActionRepeat       ActionKind = "repeat"
	ActionQueryScore   ActionKind = "score"
	ActionHelp         ActionKind = "help"
	ActionStop         ActionKind = "stop"
	ActionSessionEnd   ActionKind = "session_end"
	ActionUnrecognized ActionKind = "unrecognized"
)

// Action is one discrete player action delivered by the voice platform.
type Action struct {
	Kind   ActionKind `json:"action"`
	Answer string     `json:"answer,omitempty"` // Answer only
	Deck   string     `json:"deck,omitempty"`   // Start only, optional PIN
}

// ParseActionKind maps a transport-level action name onto an ActionKind.
// Unknown names map to ActionUnrecognized.
func ParseActionKind(name string) ActionKind {
	switch ActionKind(name) {
	case ActionLaunch, ActionStart, ActionAnswer, ActionRepeat, ActionQueryScore,
		ActionHelp, ActionStop, ActionSessionEnd:
		return ActionKind(name)
	default:
		return ActionUnrecognized
	}
}

// ResultKind tags every outcome the engine can produce.
type ResultKind string

const (
	KindWelcome          ResultKind = "welcome"
	KindQuizStarted      ResultKind = "quiz_started"
	KindNoQuizActive     ResultKind = "no_quiz_active"
	KindEmptyAnswer      ResultKind = "empty_answer"
	KindJudgeUnavailable ResultKind = "judge_unavailable"
	KindAnswerJudged     ResultKind = "answer_judged"
	KindQuizCompleted    ResultKind = "quiz_completed"
	KindRepeat           ResultKind = "repeat"
	KindNothingToRepeat  ResultKind = "nothing_to_repeat"
	KindScore            ResultKind = "score"
	KindNoScore          ResultKind = "no_score"
	KindHelp             ResultKind = "help"
	KindGoodbye          ResultKind = "goodbye"
	KindSessionEnded     ResultKind = "session_ended"
	KindUnrecognized     ResultKind = "unrecognized"
	KindInternalError    ResultKind = "internal_error"
)

// Result is what a transition hands to the formatter. Only the fields
// relevant to Kind are populated.
type Result struct {
	Kind  ResultKind `json:"kind"`
	Phase Phase      `json:"phase"`

	// Prompt is the current question (start, repeat, score).
	Prompt string `json:"prompt,omitempty"`
	// Fallback is set when Start had to use the built-in question set.
	Fallback bool `json:"fallback,omitempty"`

	Verdict        Verdict `json:"verdict,omitempty"`
	ExpectedAnswer string  `json:"expectedAnswer,omitempty"`
	NextPrompt     string  `json:"nextPrompt,omitempty"`

	Score      int `json:"score"`
	Answered   int `json:"answered"`
	Total      int `json:"total,omitempty"`
	Percentage int `json:"percentage,omitempty"`

	// Review* describe a review pass started right after completion.
	ReviewStarted bool   `json:"reviewStarted,omitempty"`
	ReviewTotal   int    `json:"reviewTotal,omitempty"`
	ReviewPrompt  string `json:"reviewPrompt,omitempty"`

	// Reviewing is true while the active quiz is a review pass.
	Reviewing bool `json:"reviewing,omitempty"`
}
