package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quizme"

	"github.com/google/uuid"
)

func main() {
	var (
		convertFile = flag.String("convert", "", "Convert a term<ans>definition text file (or .xlsx) to question-set JSON")
		outputFile  = flag.String("output", "", "Output file for converted JSON (default: stdout)")
		dbPath      = flag.String("db", "", "Play decks from this sqlite deck database instead of the question-set URL")
		deck        = flag.String("deck", "", "Deck PIN to start with")
		verbose     = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	if *convertFile != "" {
		if err := convert(*convertFile, *outputFile); err != nil {
			log.Fatalf("Failed to convert %s: %v", *convertFile, err)
		}
		return
	}

	cfg, err := quizme.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Verbose = cfg.Verbose || *verbose

	if cfg.Verbose {
		zl, err := quizme.NewLogger(cfg.Environment)
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
		defer zl.Sync()
		quizme.SetLogger(zl)
		quizme.SetVerbose(true)
	}

	var source quizme.QuestionSource = quizme.NewHTTPSource(cfg.QuestionSetURL, cfg.DeckURLTemplate, nil)
	if *dbPath != "" {
		db, err := quizme.OpenDeckDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open deck database: %v", err)
		}
		defer db.Close()
		if err := db.CreateTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		source = quizme.DeckSource{DB: db}
	}

	var transcript *quizme.LLMLogger
	if cfg.LLMLogDir != "" {
		if transcript, err = quizme.NewLLMLogger(cfg.LLMLogDir); err != nil {
			log.Printf("LLM transcript disabled: %v", err)
		} else {
			defer transcript.Close()
		}
	}

	engine := quizme.NewEngineFromConfig(cfg, source, transcript)
	service := quizme.NewService(engine, quizme.NewMemoryStore(), nil)

	playQuiz(service, os.Stdin, os.Stdout, *deck)
}

// playQuiz reads one action per line until the session ends or input runs out.
func playQuiz(service *quizme.Service, in io.Reader, out io.Writer, deck string) {
	sessionID := uuid.NewString()
	scanner := bufio.NewScanner(in)

	say := func(action quizme.Action) bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		reply, err := service.Turn(ctx, sessionID, action)
		if err != nil {
			log.Printf("Turn failed: %v", err)
		}
		if reply.Speech != "" {
			fmt.Fprintf(out, "🔊 %s\n\n", reply.Speech)
		}
		return reply.EndSession
	}

	if say(quizme.Action{Kind: quizme.ActionLaunch}) {
		return
	}
	if deck != "" && say(quizme.Action{Kind: quizme.ActionStart, Deck: deck}) {
		return
	}

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			say(quizme.Action{Kind: quizme.ActionSessionEnd})
			fmt.Fprintln(out)
			return
		}
		if say(parseLine(scanner.Text())) {
			say(quizme.Action{Kind: quizme.ActionSessionEnd})
			return
		}
	}
}

// parseLine maps typed input onto the action the voice platform would send.
// Anything that isn't a command is an answer.
func parseLine(line string) quizme.Action {
	line = strings.TrimSpace(line)
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return quizme.Action{Kind: quizme.ActionAnswer}
	}

	switch fields[0] {
	case "start", "begin":
		action := quizme.Action{Kind: quizme.ActionStart}
		if len(fields) > 1 {
			action.Deck = fields[len(fields)-1]
		}
		return action
	case "repeat":
		return quizme.Action{Kind: quizme.ActionRepeat}
	case "score":
		return quizme.Action{Kind: quizme.ActionQueryScore}
	case "help":
		return quizme.Action{Kind: quizme.ActionHelp}
	case "stop", "exit", "quit", "cancel":
		if len(fields) == 1 {
			return quizme.Action{Kind: quizme.ActionStop}
		}
	}
	return quizme.Action{Kind: quizme.ActionAnswer, Answer: line}
}

func convert(path, outputFile string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var payload quizme.QuestionSetPayload
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		payload, err = quizme.ParseDeckSheet(f)
	} else {
		payload, err = quizme.ParseDeckText(f)
	}
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal question set: %w", err)
	}

	if outputFile == "" {
		fmt.Println(string(output))
		return nil
	}
	if err := os.WriteFile(outputFile, output, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Printf("Question set saved to: %s (%d terms)", outputFile, len(payload.Terms))
	return nil
}
