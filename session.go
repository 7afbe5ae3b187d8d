package quizme

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
)

// Engine drives quiz sessions. It holds no per-session data: every call gets
// the session's state and returns the next one, so one Engine serves any
// number of concurrent conversations.
type Engine struct {
	source    QuestionSource
	judge     Judge
	rephraser Rephraser

	shuffle bool
	rngMu   sync.Mutex
	rng     *rand.Rand

	review bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRephraser turns definitions into questions before they are read out.
func WithRephraser(r Rephraser) EngineOption {
	return func(e *Engine) { e.rephraser = r }
}

// WithShuffle randomizes card order on every start. rng may be nil to use the
// global source.
func WithShuffle(rng *rand.Rand) EngineOption {
	return func(e *Engine) {
		e.shuffle = true
		e.rng = rng
	}
}

// WithReviewPass replays missed cards as a new quiz once a quiz completes.
func WithReviewPass() EngineOption {
	return func(e *Engine) { e.review = true }
}

// NewEngine creates an engine. source and judge are required.
func NewEngine(source QuestionSource, judge Judge, opts ...EngineOption) *Engine {
	e := &Engine{source: source, judge: judge}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle applies one action to state. It never fails: every problem becomes
// a Result kind, and the returned state is the input state unless the action
// legitimately changed it.
func (e *Engine) Handle(ctx context.Context, state SessionState, action Action) (res Result, next SessionState) {
	before := state.clone()
	defer func() {
		if r := recover(); r != nil {
			Log().Errorw("quiz transition panicked", "action", action.Kind, "panic", r)
			res = Result{Kind: KindInternalError, Phase: before.Phase()}
			next = before
		}
	}()

	st := state.clone()
	if err := st.Validate(); err != nil {
		Log().Warnw("resetting invalid session state", "error", err)
		st = NewSessionState()
	}

	switch action.Kind {
	case ActionLaunch:
		return Result{Kind: KindWelcome, Phase: st.Phase()}, st
	case ActionStart:
		return e.start(ctx, action.Deck)
	case ActionAnswer:
		return e.answer(ctx, st, action.Answer)
	case ActionRepeat:
		return e.repeat(st), st
	case ActionQueryScore:
		return e.score(st), st
	case ActionHelp:
		return Result{Kind: KindHelp, Phase: st.Phase()}, st
	case ActionStop:
		return e.stop(st), st
	case ActionSessionEnd:
		return Result{Kind: KindSessionEnded, Phase: st.Phase()}, st
	default:
		return Result{Kind: KindUnrecognized, Phase: st.Phase()}, st
	}
}

func (e *Engine) start(ctx context.Context, deck string) (Result, SessionState) {
	cards, fallback := e.load(ctx, deck)
	if e.shuffle {
		e.shuffleCards(cards)
	}

	next := NewSessionState()
	next.Cards = cards
	prompt := e.promptFor(ctx, cards[0])
	next.CachedPrompts[0] = prompt
	next.Position = 1

	return Result{
		Kind:     KindQuizStarted,
		Phase:    PhaseInProgress,
		Prompt:   prompt,
		Fallback: fallback,
		Total:    len(cards),
	}, next
}

// load fetches a fresh question set, substituting the fallback set on any
// failure. The second return value reports whether the fallback was used.
func (e *Engine) load(ctx context.Context, deck string) (QuizSet, bool) {
	var (
		cards QuizSet
		err   error
	)
	if dl, ok := e.source.(DeckLoader); ok && strings.TrimSpace(deck) != "" {
		cards, err = dl.LoadDeck(ctx, deck)
	} else {
		cards, err = e.source.Load(ctx)
	}
	if err == nil && len(cards) == 0 {
		err = ErrSourceUnavailable
	}
	if err != nil {
		Log().Warnw("using fallback question set", "deck", deck, "error", err)
		return FallbackSet(), true
	}
	return cards, false
}

func (e *Engine) shuffleCards(cards QuizSet) {
	swap := func(i, j int) { cards[i], cards[j] = cards[j], cards[i] }
	if e.rng == nil {
		rand.Shuffle(len(cards), swap)
		return
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng.Shuffle(len(cards), swap)
}

// promptFor returns the text to read for card, rephrased when possible.
func (e *Engine) promptFor(ctx context.Context, card QuestionCard) string {
	if e.rephraser == nil {
		return card.Prompt
	}
	question, err := e.rephraser.Rephrase(ctx, card.Prompt, card.ExpectedAnswer)
	if err != nil || strings.TrimSpace(question) == "" {
		Log().Warnw("rephrasing failed, using definition", "error", err)
		return card.Prompt
	}
	return question
}

func checkAnswerable(st SessionState, spoken string) error {
	if st.Position == 0 || len(st.Cards) == 0 {
		return ErrInvalidSessionAction
	}
	if strings.TrimSpace(spoken) == "" {
		return ErrEmptyAnswer
	}
	return nil
}

func (e *Engine) answer(ctx context.Context, st SessionState, spoken string) (Result, SessionState) {
	if err := checkAnswerable(st, spoken); err != nil {
		if errors.Is(err, ErrInvalidSessionAction) {
			return Result{Kind: KindNoQuizActive, Phase: PhaseIdle}, st
		}
		return Result{Kind: KindEmptyAnswer, Phase: PhaseInProgress, Prompt: st.currentPrompt()}, st
	}

	card := st.Cards[st.Position-1]
	spoken = strings.TrimSpace(spoken)

	verdict, err := e.judge.Judge(ctx, st.currentPrompt(), card.ExpectedAnswer, spoken)
	if err != nil {
		Log().Warnw("answer judge unavailable", "error", err)
		return Result{Kind: KindJudgeUnavailable, Phase: PhaseInProgress, Prompt: st.currentPrompt()}, st
	}
	if verdict != Correct {
		verdict = Incorrect
	}

	next := st.clone()
	res := Result{Verdict: verdict, ExpectedAnswer: card.ExpectedAnswer, Reviewing: st.Reviewing}
	if verdict == Correct {
		next.Score++
	} else {
		next.WrongQueue = append(next.WrongQueue, card)
	}

	if next.Position == len(next.Cards) {
		return e.complete(ctx, next, res)
	}

	prompt := e.promptFor(ctx, next.Cards[next.Position])
	next.CachedPrompts[next.Position] = prompt
	next.Position++

	res.Kind = KindAnswerJudged
	res.Phase = PhaseInProgress
	res.NextPrompt = prompt
	res.Score = next.Score
	res.Answered = next.Position - 1
	res.Total = len(next.Cards)
	return res, next
}

// complete reports the final score and resets the session. With the review
// pass enabled, missed cards become a new quiz straight away.
func (e *Engine) complete(ctx context.Context, finished SessionState, res Result) (Result, SessionState) {
	total := len(finished.Cards)
	res.Kind = KindQuizCompleted
	res.Phase = PhaseCompleted
	res.Score = finished.Score
	res.Answered = total
	res.Total = total
	res.Percentage = percentage(finished.Score, total)

	next := NewSessionState()
	if e.review && !finished.Reviewing && len(finished.WrongQueue) > 0 {
		missed := append(QuizSet{}, finished.WrongQueue...)
		prompt := e.promptFor(ctx, missed[0])

		next.Cards = missed
		next.Reviewing = true
		next.CachedPrompts[0] = prompt
		next.Position = 1

		res.ReviewStarted = true
		res.ReviewTotal = len(missed)
		res.ReviewPrompt = prompt
	}
	return res, next
}

func (e *Engine) repeat(st SessionState) Result {
	if st.Position == 0 {
		return Result{Kind: KindNothingToRepeat, Phase: PhaseIdle}
	}
	return Result{Kind: KindRepeat, Phase: PhaseInProgress, Prompt: st.currentPrompt(), Reviewing: st.Reviewing}
}

func (e *Engine) score(st SessionState) Result {
	if st.Position == 0 {
		return Result{Kind: KindNoScore, Phase: PhaseIdle}
	}
	return Result{
		Kind:      KindScore,
		Phase:     PhaseInProgress,
		Prompt:    st.currentPrompt(),
		Score:     st.Score,
		Answered:  st.Position - 1,
		Total:     len(st.Cards),
		Reviewing: st.Reviewing,
	}
}

func (e *Engine) stop(st SessionState) Result {
	res := Result{Kind: KindGoodbye, Phase: st.Phase()}
	if st.Position > 0 {
		res.Score = st.Score
		res.Answered = st.Position - 1
		res.Total = len(st.Cards)
	}
	return res
}

func percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
