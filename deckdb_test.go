package quizme

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDeckDB(t *testing.T) *DeckDB {
	t.Helper()
	db, err := OpenDeckDB(filepath.Join(t.TempDir(), "decks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.CreateTables())
	return db
}

func capitalRecords() []TermRecord {
	return []TermRecord{
		{Term: "France", Definition: "Paris"},
		{Term: "Japan", Definition: "Tokyo"},
		{Term: "Brazil", Definition: "Brasilia"},
	}
}

func TestDeckDB_CreateAndRead(t *testing.T) {
	ctx := context.Background()
	db := openTestDeckDB(t)

	deck, err := db.CreateDeck(ctx, " Capitals ", append(capitalRecords(), TermRecord{Term: " ", Definition: "blank"}))
	require.NoError(t, err)
	assert.Len(t, deck.PIN, 6)
	assert.Equal(t, "Capitals", deck.Title)
	assert.Equal(t, 3, deck.NumCards)

	got, err := db.GetDeck(ctx, deck.PIN)
	require.NoError(t, err)
	assert.Equal(t, deck.PIN, got.PIN)
	assert.Equal(t, deck.Title, got.Title)

	cards, err := db.GetCards(ctx, deck.PIN)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	for i, c := range cards {
		assert.Equal(t, i+1, c.CardNum)
		assert.NotEmpty(t, c.ID)
	}

	payload, err := db.Payload(ctx, deck.PIN)
	require.NoError(t, err)
	assert.Equal(t, capitalRecords(), payload.Terms)

	exists, err := db.DeckExists(ctx, deck.PIN)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeckDB_NotFound(t *testing.T) {
	ctx := context.Background()
	db := openTestDeckDB(t)

	_, err := db.GetDeck(ctx, "000000")
	assert.ErrorIs(t, err, ErrDeckNotFound)

	_, err = db.Payload(ctx, "000000")
	assert.ErrorIs(t, err, ErrDeckNotFound)

	_, err = db.LatestDeck(ctx)
	assert.ErrorIs(t, err, ErrDeckNotFound)

	_, err = db.CreateDeck(ctx, "empty", []TermRecord{{Term: "", Definition: ""}})
	assert.Error(t, err)
}

func TestDeckDB_ListAndLatest(t *testing.T) {
	ctx := context.Background()
	db := openTestDeckDB(t)

	first, err := db.CreateDeck(ctx, "first", capitalRecords())
	require.NoError(t, err)
	second, err := db.CreateDeck(ctx, "", capitalRecords()[:1])
	require.NoError(t, err)
	assert.Equal(t, "Untitled deck", second.Title)
	assert.NotEqual(t, first.PIN, second.PIN)

	decks, err := db.ListDecks(ctx, 0)
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, second.PIN, decks[0].PIN)

	decks, err = db.ListDecks(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, decks, 1)

	latest, err := db.LatestDeck(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.PIN, latest.PIN)
}

func TestDeckSource_PlaysStoredDecks(t *testing.T) {
	ctx := context.Background()
	db := openTestDeckDB(t)

	capitalsDeck, err := db.CreateDeck(ctx, "capitals", capitalRecords())
	require.NoError(t, err)
	_, err = db.CreateDeck(ctx, "biology", []TermRecord{{Term: "mitosis", Definition: "Cell division producing two identical cells"}})
	require.NoError(t, err)

	e := NewEngine(DeckSource{DB: db}, LexicalJudge{})

	res, _ := e.Handle(ctx, NewSessionState(), Action{Kind: ActionStart})
	assert.Equal(t, "Cell division producing two identical cells", res.Prompt)

	res, st := e.Handle(ctx, NewSessionState(), Action{Kind: ActionStart, Deck: capitalsDeck.PIN})
	assert.False(t, res.Fallback)
	assert.Equal(t, "Paris", res.Prompt)
	assert.Len(t, st.Cards, 3)

	res, _ = e.Handle(ctx, NewSessionState(), Action{Kind: ActionStart, Deck: "999999"})
	assert.True(t, res.Fallback)
}
