package quizme

import (
	"encoding/json"
	"fmt"
)

// SessionState is the per-conversation record persisted between actions.
// Position is the 1-based index of the card currently awaiting an answer;
// zero means no quiz is running.
type SessionState struct {
	Position      int            `json:"position"`
	Score         int            `json:"score"`
	WrongQueue    []QuestionCard `json:"wrongQueue"`
	CachedPrompts map[int]string `json:"cachedPrompts"`

	Cards     QuizSet `json:"cards,omitempty"`
	Reviewing bool    `json:"reviewing,omitempty"`
}

// NewSessionState returns the initial state of a conversation.
func NewSessionState() SessionState {
	return SessionState{
		WrongQueue:    []QuestionCard{},
		CachedPrompts: map[int]string{},
	}
}

// Phase reports whether a quiz is running. Completed is never stored: a
// finished quiz resets straight back to idle.
func (s SessionState) Phase() Phase {
	if s.Position == 0 {
		return PhaseIdle
	}
	return PhaseInProgress
}

// Validate checks the invariants that make a stored state playable.
func (s SessionState) Validate() error {
	if s.Position < 0 || s.Position > len(s.Cards) {
		return fmt.Errorf("position %d outside quiz of %d cards", s.Position, len(s.Cards))
	}
	if s.Score < 0 {
		return fmt.Errorf("negative score %d", s.Score)
	}
	if s.Position > 0 && s.Score > s.Position-1 {
		return fmt.Errorf("score %d exceeds %d answered", s.Score, s.Position-1)
	}
	return nil
}

// currentPrompt returns the text the player last heard for the active card.
func (s SessionState) currentPrompt() string {
	if s.Position == 0 {
		return ""
	}
	if p, ok := s.CachedPrompts[s.Position-1]; ok {
		return p
	}
	return s.Cards[s.Position-1].Prompt
}

func (s SessionState) clone() SessionState {
	out := SessionState{
		Position:      s.Position,
		Score:         s.Score,
		Reviewing:     s.Reviewing,
		WrongQueue:    append([]QuestionCard{}, s.WrongQueue...),
		CachedPrompts: make(map[int]string, len(s.CachedPrompts)),
	}
	for k, v := range s.CachedPrompts {
		out.CachedPrompts[k] = v
	}
	if s.Cards != nil {
		out.Cards = append(QuizSet{}, s.Cards...)
	}
	return out
}

// MarshalAttributes encodes the state as the key/value attributes stored by
// the session collaborator.
func (s SessionState) MarshalAttributes() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalAttributes decodes stored attributes. Empty input yields a fresh
// state.
func UnmarshalAttributes(data []byte) (SessionState, error) {
	st := NewSessionState()
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return NewSessionState(), fmt.Errorf("failed to decode session attributes: %w", err)
	}
	if st.WrongQueue == nil {
		st.WrongQueue = []QuestionCard{}
	}
	if st.CachedPrompts == nil {
		st.CachedPrompts = map[int]string{}
	}
	return st, nil
}
