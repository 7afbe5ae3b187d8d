package quizme

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DeckSeparator splits a term from its definition in exported deck text.
const DeckSeparator = "<ans>"

// ErrMalformedDeck is returned when an import line or row can't be split into
// a term and a definition.
var ErrMalformedDeck = errors.New("malformed deck")

// ParseDeckText converts "term<ans>definition" lines into a payload. Blank
// lines are skipped.
func ParseDeckText(r io.Reader) (QuestionSetPayload, error) {
	var payload QuestionSetPayload

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPayloadBytes)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		term, definition, ok := strings.Cut(line, DeckSeparator)
		term = strings.TrimSpace(term)
		definition = strings.TrimSpace(definition)
		if !ok || term == "" || definition == "" {
			return QuestionSetPayload{}, fmt.Errorf("%w: line %d: %q", ErrMalformedDeck, lineNum, line)
		}
		payload.Terms = append(payload.Terms, TermRecord{Term: term, Definition: definition})
	}
	if err := scanner.Err(); err != nil {
		return QuestionSetPayload{}, fmt.Errorf("failed to read deck text: %w", err)
	}
	if len(payload.Terms) == 0 {
		return QuestionSetPayload{}, fmt.Errorf("%w: no terms found", ErrMalformedDeck)
	}
	return payload, nil
}

// ParseDeckSheet reads the first sheet of an .xlsx workbook: column A holds
// terms, column B definitions. A leading "term / definition" header row is
// skipped.
func ParseDeckSheet(r io.Reader) (QuestionSetPayload, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return QuestionSetPayload{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return QuestionSetPayload{}, fmt.Errorf("%w: workbook has no sheets", ErrMalformedDeck)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return QuestionSetPayload{}, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	var payload QuestionSetPayload
	for i, row := range rows {
		cells := make([]string, 2)
		for j := 0; j < len(row) && j < 2; j++ {
			cells[j] = strings.TrimSpace(row[j])
		}
		term, definition := cells[0], cells[1]

		if term == "" && definition == "" {
			continue
		}
		if i == 0 && isHeaderRow(term, definition) {
			continue
		}
		if term == "" || definition == "" {
			return QuestionSetPayload{}, fmt.Errorf("%w: row %d needs a term and a definition", ErrMalformedDeck, i+1)
		}
		payload.Terms = append(payload.Terms, TermRecord{Term: term, Definition: definition})
	}
	if len(payload.Terms) == 0 {
		return QuestionSetPayload{}, fmt.Errorf("%w: no terms found", ErrMalformedDeck)
	}
	return payload, nil
}

func isHeaderRow(a, b string) bool {
	return strings.EqualFold(a, "term") && strings.EqualFold(b, "definition")
}

// WriteDeckSheet renders payload as a single-sheet workbook, the inverse of
// ParseDeckSheet.
func WriteDeckSheet(w io.Writer, payload QuestionSetPayload) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"term", "definition"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, t := range payload.Terms {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]any{t.Term, t.Definition}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
