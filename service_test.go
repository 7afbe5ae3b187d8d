package quizme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	StateStore
	loadErr error
	saveErr error
}

func (f failingStore) Load(ctx context.Context, id string) (SessionState, error) {
	if f.loadErr != nil {
		return NewSessionState(), f.loadErr
	}
	return f.StateStore.Load(ctx, id)
}

func (f failingStore) Save(ctx context.Context, id string, st SessionState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.StateStore.Save(ctx, id, st)
}

func receiveEvent(t *testing.T, ch <-chan *message.Message) QuizEvent {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		var ev QuizEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, string(ev.Type), msg.Metadata.Get("event_type"))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quiz event")
		return QuizEvent{}
	}
}

func TestService_PlaysThroughWithEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := NewGoChannelPubSub(false)
	events := NewEventPublisher(pubsub, "quizme.sessions")
	t.Cleanup(func() { events.Close() })

	messages, err := pubsub.Subscribe(ctx, "quizme.sessions")
	require.NoError(t, err)

	store := NewMemoryStore()
	svc := NewService(NewEngine(StaticSource{Cards: capitals()}, LexicalJudge{}), store, events)
	const sessionID = "amzn1.echo-api.session.1234"

	reply, err := svc.Turn(ctx, sessionID, Action{Kind: ActionLaunch})
	require.NoError(t, err)
	assert.Equal(t, welcomeText, reply.Speech)

	reply, err = svc.Turn(ctx, sessionID, Action{Kind: ActionStart})
	require.NoError(t, err)
	assert.Equal(t, "Let's begin! Paris", reply.Speech)
	assert.False(t, reply.EndSession)

	started := receiveEvent(t, messages)
	assert.Equal(t, EventQuizStarted, started.Type)
	assert.Equal(t, SessionKey(sessionID), started.SessionKey)
	assert.NotContains(t, started.SessionKey, sessionID)
	assert.Equal(t, 2, started.Total)
	assert.NotEmpty(t, started.ID)

	reply, err = svc.Turn(ctx, sessionID, Action{Kind: ActionAnswer, Answer: "France"})
	require.NoError(t, err)
	assert.Equal(t, "Correct! The next question is: Tokyo", reply.Speech)

	reply, err = svc.Turn(ctx, sessionID, Action{Kind: ActionRepeat})
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", reply.Speech)

	reply, err = svc.Turn(ctx, sessionID, Action{Kind: ActionAnswer, Answer: "Germany"})
	require.NoError(t, err)
	assert.Contains(t, reply.Speech, "The correct answer is: Japan")
	assert.Contains(t, reply.Speech, "1 out of 2, or 50%")

	completed := receiveEvent(t, messages)
	assert.Equal(t, EventQuizCompleted, completed.Type)
	assert.Equal(t, 1, completed.Score)
	assert.Equal(t, 2, completed.Total)
	assert.Equal(t, 50, completed.Percentage)

	reply, err = svc.Turn(ctx, sessionID, Action{Kind: ActionStop})
	require.NoError(t, err)
	assert.True(t, reply.EndSession)
	assert.Equal(t, 1, store.Len())

	_, err = svc.Turn(ctx, sessionID, Action{Kind: ActionSessionEnd})
	require.NoError(t, err)
	assert.Zero(t, store.Len())
}

func TestService_IndependentSessions(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewEngine(StaticSource{Cards: capitals()}, LexicalJudge{}), NewMemoryStore(), nil)

	_, err := svc.Turn(ctx, "alice", Action{Kind: ActionStart})
	require.NoError(t, err)
	_, err = svc.Turn(ctx, "alice", Action{Kind: ActionAnswer, Answer: "France"})
	require.NoError(t, err)

	reply, err := svc.Turn(ctx, "bob", Action{Kind: ActionQueryScore})
	require.NoError(t, err)
	assert.Contains(t, reply.Speech, "no quiz is in progress")

	reply, err = svc.Turn(ctx, "alice", Action{Kind: ActionQueryScore})
	require.NoError(t, err)
	assert.Contains(t, reply.Speech, "1 out of 1")
}

func TestService_ConcurrentTurnsSerializePerSession(t *testing.T) {
	ctx := context.Background()
	cards := make(QuizSet, 50)
	for i := range cards {
		cards[i] = QuestionCard{Prompt: "p", ExpectedAnswer: "yes"}
	}
	store := NewMemoryStore()
	svc := NewService(NewEngine(StaticSource{Cards: cards}, LexicalJudge{}), store, nil)

	_, err := svc.Turn(ctx, "s1", Action{Kind: ActionStart})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Turn(ctx, "s1", Action{Kind: ActionAnswer, Answer: "yes"})
		}()
	}
	wg.Wait()

	st, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 21, st.Position)
	assert.Equal(t, 20, st.Score)
	assert.Zero(t, svc.locks.len())
}

func TestService_LocksReleasedAfterOneOffSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(NewEngine(StaticSource{Cards: capitals()}, LexicalJudge{}), store, nil)

	for i := range 1000 {
		id := fmt.Sprintf("play-%d", i)
		_, err := svc.Turn(ctx, id, Action{Kind: ActionStop})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, id))
	}

	assert.Zero(t, store.Len())
	assert.Zero(t, svc.locks.len())
}

func TestSessionLocks_WaiterKeepsEntry(t *testing.T) {
	var locks sessionLocks

	unlock := locks.lock("s1")
	acquired := make(chan func())
	go func() { acquired <- locks.lock("s1") }()

	require.Eventually(t, func() bool {
		locks.mu.Lock()
		defer locks.mu.Unlock()
		return locks.entries["s1"] != nil && locks.entries["s1"].refs == 2
	}, time.Second, time.Millisecond)

	select {
	case <-acquired:
		t.Fatal("second turn ran while the first held the session")
	default:
	}

	unlock()
	assert.Equal(t, 1, locks.len())

	select {
	case unlockSecond := <-acquired:
		unlockSecond()
	case <-time.After(2 * time.Second):
		t.Fatal("second turn never acquired the session")
	}
	assert.Zero(t, locks.len())
}

func TestService_StoreFailures(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(StaticSource{Cards: capitals()}, LexicalJudge{})
	boom := errors.New("redis: connection refused")

	svc := NewService(engine, failingStore{StateStore: NewMemoryStore(), loadErr: boom}, nil)
	reply, err := svc.Turn(ctx, "s1", Action{Kind: ActionStart})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apologyText, reply.Speech)

	svc = NewService(engine, failingStore{StateStore: NewMemoryStore(), saveErr: boom}, nil)
	reply, err = svc.Turn(ctx, "s1", Action{Kind: ActionStart})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apologyText, reply.Speech)

	_, err = svc.Turn(ctx, "", Action{Kind: ActionStart})
	assert.Error(t, err)
}

func TestEventsFor(t *testing.T) {
	assert.Empty(t, eventsFor("k", Result{Kind: KindAnswerJudged}))

	evs := eventsFor("k", Result{Kind: KindQuizStarted, Total: 1, Fallback: true})
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Fallback)

	evs = eventsFor("k", Result{Kind: KindQuizCompleted, Score: 1, Total: 3, Percentage: 33, ReviewStarted: true, ReviewTotal: 2})
	require.Len(t, evs, 2)
	assert.Equal(t, EventQuizCompleted, evs[0].Type)
	assert.Equal(t, EventQuizStarted, evs[1].Type)
	assert.True(t, evs[1].Review)
	assert.Equal(t, 2, evs[1].Total)
}

func TestEventPublisher_Nil(t *testing.T) {
	var p *EventPublisher
	assert.NoError(t, p.Publish(QuizEvent{Type: EventQuizStarted}))
	assert.NoError(t, p.Close())
}
