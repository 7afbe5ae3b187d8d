package quizme

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrDeckNotFound is returned for an unknown PIN.
var ErrDeckNotFound = errors.New("deck not found")

// DeckDB stores flashcard decks addressed by a six digit PIN.
type DeckDB struct {
	db *sql.DB
}

// Deck is a stored deck without its cards.
type Deck struct {
	PIN       string    `json:"pin"`
	Title     string    `json:"title"`
	NumCards  int       `json:"num_cards"`
	CreatedAt time.Time `json:"created_at"`
}

// DBCard is one stored card.
type DBCard struct {
	ID         string `json:"id"`
	DeckPIN    string `json:"deck_pin"`
	CardNum    int    `json:"card_num"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// OpenDeckDB opens (and creates, if needed) the sqlite database at dbPath.
func OpenDeckDB(dbPath string) (*DeckDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DeckDB{db: db}, nil
}

func (d *DeckDB) Close() error {
	return d.db.Close()
}

// CreateTables creates the schema if it doesn't exist.
func (d *DeckDB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS decks (
			pin TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			num_cards INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			deck_pin TEXT NOT NULL,
			card_num INTEGER NOT NULL,
			term TEXT NOT NULL,
			definition TEXT NOT NULL,
			FOREIGN KEY (deck_pin) REFERENCES decks(pin)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_pin, card_num)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// CreateDeck stores title and records under a fresh PIN. Blank records are
// skipped; a deck with no usable records is rejected.
func (d *DeckDB) CreateDeck(ctx context.Context, title string, records []TermRecord) (*Deck, error) {
	var usable []TermRecord
	for _, r := range records {
		if card, ok := newCard(r.Definition, r.Term); ok {
			usable = append(usable, TermRecord{Term: card.ExpectedAnswer, Definition: card.Prompt})
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("deck %q has no usable cards", title)
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled deck"
	}

	pin, err := d.newPIN(ctx)
	if err != nil {
		return nil, err
	}

	deck := &Deck{PIN: pin, Title: strings.TrimSpace(title), NumCards: len(usable), CreatedAt: time.Now().UTC()}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO decks (pin, title, num_cards, created_at) VALUES (?, ?, ?, ?)",
		deck.PIN, deck.Title, deck.NumCards, deck.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create deck: %w", err)
	}

	for i, r := range usable {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO cards (id, deck_pin, card_num, term, definition) VALUES (?, ?, ?, ?, ?)",
			uuid.NewString(), deck.PIN, i+1, r.Term, r.Definition,
		); err != nil {
			return nil, fmt.Errorf("failed to create card %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deck: %w", err)
	}
	return deck, nil
}

func (d *DeckDB) newPIN(ctx context.Context) (string, error) {
	for range 20 {
		pin := strconv.Itoa(100000 + rand.IntN(900000))
		exists, err := d.DeckExists(ctx, pin)
		if err != nil {
			return "", err
		}
		if !exists {
			return pin, nil
		}
	}
	return "", fmt.Errorf("failed to allocate a free deck PIN")
}

// GetDeck retrieves a deck by PIN.
func (d *DeckDB) GetDeck(ctx context.Context, pin string) (*Deck, error) {
	var deck Deck
	err := d.db.QueryRowContext(ctx,
		"SELECT pin, title, num_cards, created_at FROM decks WHERE pin = ?",
		pin,
	).Scan(&deck.PIN, &deck.Title, &deck.NumCards, &deck.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, pin)
		}
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}
	return &deck, nil
}

// LatestDeck retrieves the most recently created deck.
func (d *DeckDB) LatestDeck(ctx context.Context) (*Deck, error) {
	decks, err := d.ListDecks(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(decks) == 0 {
		return nil, fmt.Errorf("%w: no decks stored", ErrDeckNotFound)
	}
	return &decks[0], nil
}

// ListDecks lists decks newest first, optionally limited by count.
func (d *DeckDB) ListDecks(ctx context.Context, limit int) ([]Deck, error) {
	query := "SELECT pin, title, num_cards, created_at FROM decks ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []Deck
	for rows.Next() {
		var deck Deck
		if err := rows.Scan(&deck.PIN, &deck.Title, &deck.NumCards, &deck.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		decks = append(decks, deck)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decks: %w", err)
	}
	return decks, nil
}

// GetCards retrieves a deck's cards in order.
func (d *DeckDB) GetCards(ctx context.Context, pin string) ([]DBCard, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, deck_pin, card_num, term, definition FROM cards WHERE deck_pin = ? ORDER BY card_num",
		pin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	defer rows.Close()

	var cards []DBCard
	for rows.Next() {
		var card DBCard
		if err := rows.Scan(&card.ID, &card.DeckPIN, &card.CardNum, &card.Term, &card.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}

// DeckExists checks whether pin is taken.
func (d *DeckDB) DeckExists(ctx context.Context, pin string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM decks WHERE pin = ?)", pin).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if deck exists: %w", err)
	}
	return exists, nil
}

// Payload renders a deck's cards in the question-set wire shape.
func (d *DeckDB) Payload(ctx context.Context, pin string) (QuestionSetPayload, error) {
	if _, err := d.GetDeck(ctx, pin); err != nil {
		return QuestionSetPayload{}, err
	}
	cards, err := d.GetCards(ctx, pin)
	if err != nil {
		return QuestionSetPayload{}, err
	}
	payload := QuestionSetPayload{Terms: make([]TermRecord, 0, len(cards))}
	for _, c := range cards {
		payload.Terms = append(payload.Terms, TermRecord{Term: c.Term, Definition: c.Definition})
	}
	return payload, nil
}

// DeckSource plays decks straight out of a DeckDB. Load picks the newest
// deck; LoadDeck picks by PIN.
type DeckSource struct {
	DB *DeckDB
}

func (s DeckSource) Load(ctx context.Context) (QuizSet, error) {
	deck, err := s.DB.LatestDeck(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return s.LoadDeck(ctx, deck.PIN)
}

func (s DeckSource) LoadDeck(ctx context.Context, pin string) (QuizSet, error) {
	payload, err := s.DB.Payload(ctx, strings.TrimSpace(pin))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	cards := payload.Cards()
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: deck %s has no cards", ErrSourceUnavailable, pin)
	}
	return cards, nil
}
