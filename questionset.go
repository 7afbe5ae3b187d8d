package quizme

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// QuestionSource loads the question set for a new quiz.
type QuestionSource interface {
	Load(ctx context.Context) (QuizSet, error)
}

// DeckLoader is implemented by sources that can load a specific deck by PIN.
type DeckLoader interface {
	LoadDeck(ctx context.Context, deck string) (QuizSet, error)
}

// FallbackSet is played whenever the configured source cannot deliver.
func FallbackSet() QuizSet {
	return QuizSet{{Prompt: "Paris", ExpectedAnswer: "France"}}
}

// maxPayloadBytes caps how much of a question-set response is read.
const maxPayloadBytes = 4 << 20

// HTTPSource fetches {terms:[{term, definition}]} JSON over HTTP. It keeps no
// cache: every Load hits the network once and never retries.
type HTTPSource struct {
	url          string
	deckTemplate string
	client       *http.Client
}

// NewHTTPSource creates a source for rawURL. deckTemplate may be empty; when
// set it must contain one %s that receives the escaped deck PIN.
func NewHTTPSource(rawURL, deckTemplate string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{
		url:          rawURL,
		deckTemplate: deckTemplate,
		client:       client,
	}
}

// Load fetches the default question set.
func (s *HTTPSource) Load(ctx context.Context) (QuizSet, error) {
	return s.fetch(ctx, s.url)
}

// LoadDeck fetches the deck identified by PIN.
func (s *HTTPSource) LoadDeck(ctx context.Context, deck string) (QuizSet, error) {
	deck = strings.TrimSpace(deck)
	if deck == "" {
		return s.Load(ctx)
	}
	if s.deckTemplate == "" {
		return nil, fmt.Errorf("%w: deck %q requested but no deck URL is configured", ErrSourceUnavailable, deck)
	}
	return s.fetch(ctx, fmt.Sprintf(s.deckTemplate, url.PathEscape(deck)))
}

func (s *HTTPSource) fetch(ctx context.Context, reqURL string) (QuizSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: question set returned status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var payload QuestionSetPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode question set: %w", ErrSourceUnavailable, err)
	}

	cards := payload.Cards()
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: question set has no usable cards", ErrSourceUnavailable)
	}
	if dropped := len(payload.Terms) - len(cards); dropped > 0 {
		Log().Warnw("dropped blank question set records", "dropped", dropped, "kept", len(cards))
	}

	VerboseLog("loaded question set", "url", reqURL, "cards", len(cards))
	return cards, nil
}

// StaticSource serves a fixed question set. Useful for tests and offline play.
type StaticSource struct {
	Cards QuizSet
	Err   error
}

// Load returns a copy of the configured cards.
func (s StaticSource) Load(context.Context) (QuizSet, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Cards) == 0 {
		return nil, fmt.Errorf("%w: static question set is empty", ErrSourceUnavailable)
	}
	return append(QuizSet{}, s.Cards...), nil
}

func newCard(prompt, expected string) (QuestionCard, bool) {
	prompt = strings.TrimSpace(prompt)
	expected = strings.TrimSpace(expected)
	if prompt == "" || expected == "" {
		return QuestionCard{}, false
	}
	return QuestionCard{Prompt: prompt, ExpectedAnswer: expected}, true
}
