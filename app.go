package quizme

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/multierr"
)

// App bundles the service and the resources it owns.
type App struct {
	Config  *Config
	Engine  *Engine
	Service *Service
	Store   StateStore
	Events  *EventPublisher

	transcript *LLMLogger
	closers    []func() error
}

// NewEngineFromConfig builds an engine for source using the judge, rephraser
// and ordering options in cfg.
func NewEngineFromConfig(cfg *Config, source QuestionSource, transcript *LLMLogger) *Engine {
	var judge Judge = LexicalJudge{}
	var opts []EngineOption

	if cfg.JudgeStrategy == JudgeSemantic || cfg.RephraseQuestions {
		client := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMTimeout)
		if cfg.JudgeStrategy == JudgeSemantic {
			judge = NewSemanticJudge(client, cfg.OpenAIModel, transcript)
		}
		if cfg.RephraseQuestions {
			opts = append(opts, WithRephraser(NewLLMRephraser(client, cfg.OpenAIModel, transcript)))
		}
	}
	if cfg.ShuffleQuestions {
		opts = append(opts, WithShuffle(nil))
	}
	if cfg.ReviewMissed {
		opts = append(opts, WithReviewPass())
	}
	return NewEngine(source, judge, opts...)
}

// NewApp wires the HTTP question source, the configured state store and the
// event publisher into a Service.
func NewApp(ctx context.Context, cfg *Config) (*App, error) {
	app := &App{Config: cfg}

	if cfg.LLMLogDir != "" {
		transcript, err := NewLLMLogger(cfg.LLMLogDir)
		if err != nil {
			Log().Warnw("LLM transcript disabled", "dir", cfg.LLMLogDir, "error", err)
		} else {
			app.transcript = transcript
			app.closers = append(app.closers, transcript.Close)
		}
	}

	source := NewHTTPSource(cfg.QuestionSetURL, cfg.DeckURLTemplate, &http.Client{Timeout: cfg.QuestionSetTimeout})
	app.Engine = NewEngineFromConfig(cfg, source, app.transcript)

	switch cfg.SessionBackend {
	case BackendRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		app.Store = NewRedisStore(client, cfg.SessionTTL)
	default:
		app.Store = NewMemoryStore()
	}

	var publisher message.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		p, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.Verbose)
		if err != nil {
			app.Close()
			return nil, err
		}
		publisher = p
	} else {
		publisher = NewGoChannelPubSub(cfg.Verbose)
	}
	app.Events = NewEventPublisher(publisher, cfg.EventsTopic)
	app.closers = append(app.closers, app.Events.Close)

	app.Service = NewService(app.Engine, app.Store, app.Events)

	Log().Infow("quiz service ready",
		"judge", cfg.JudgeStrategy,
		"rephrase", cfg.RephraseQuestions,
		"backend", cfg.SessionBackend,
		"kafka", len(cfg.KafkaBrokers) > 0,
	)
	return app, nil
}

// Close releases everything NewApp opened, newest first.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	if err != nil {
		return fmt.Errorf("failed to close app: %w", err)
	}
	return nil
}
