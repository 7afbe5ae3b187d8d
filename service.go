package quizme

import (
	"context"
	"fmt"
	"sync"
)

// Service runs one turn at a time per session: load the stored state, apply
// the action, store the result and render the reply.
type Service struct {
	engine *Engine
	store  StateStore
	events *EventPublisher

	locks sessionLocks
}

// NewService creates a service. events may be nil.
func NewService(engine *Engine, store StateStore, events *EventPublisher) *Service {
	return &Service{engine: engine, store: store, events: events}
}

// sessionLocks hands out one mutex per session id. An entry lives only while
// some turn holds or waits on it.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*sessionLock)
	}
	entry, ok := l.entries[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.entries[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, sessionID)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Turn handles one action for sessionID. A store failure returns the error
// alongside an apology the caller can still speak.
func (s *Service) Turn(ctx context.Context, sessionID string, action Action) (Reply, error) {
	if sessionID == "" {
		return Format(Result{Kind: KindInternalError}), fmt.Errorf("missing session id")
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()

	key := SessionKey(sessionID)

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		Log().Errorw("failed to load session state", "session", key, "error", err)
		return Format(Result{Kind: KindInternalError}), err
	}

	res, next := s.engine.Handle(ctx, state, action)
	VerboseLog("turn handled", "session", key, "action", action.Kind, "result", res.Kind, "position", next.Position)

	if action.Kind == ActionSessionEnd {
		if err := s.store.Delete(ctx, sessionID); err != nil {
			Log().Warnw("failed to delete session state", "session", key, "error", err)
		}
	} else if err := s.store.Save(ctx, sessionID, next); err != nil {
		Log().Errorw("failed to save session state", "session", key, "error", err)
		return Format(Result{Kind: KindInternalError}), err
	}

	for _, ev := range eventsFor(key, res) {
		if err := s.events.Publish(ev); err != nil {
			Log().Warnw("failed to publish quiz event", "session", key, "type", ev.Type, "error", err)
		}
	}

	return Format(res), nil
}
