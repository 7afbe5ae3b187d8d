package quizme

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	JudgeLexical  = "lexical"
	JudgeSemantic = "semantic"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	DefaultQuestionSetURL = "https://quiz-me-api.onrender.com/quiz_data.json"
	DefaultModel          = "gpt-4o-mini"

	// devCookieSecret only signs cookies outside production.
	devCookieSecret = "change-me-quizme-cookie-secret"
)

// Config holds every runtime setting. Values come from the environment,
// optionally seeded from a .env file.
type Config struct {
	Port        string `validate:"required,numeric"`
	Environment string `validate:"required"`
	Verbose     bool

	QuestionSetURL     string        `validate:"required,url"`
	DeckURLTemplate    string        `validate:"omitempty,contains=%s"`
	QuestionSetTimeout time.Duration `validate:"gt=0"`

	JudgeStrategy     string `validate:"oneof=lexical semantic"`
	RephraseQuestions bool
	OpenAIAPIKey      string `validate:"required_if=JudgeStrategy semantic,required_if=RephraseQuestions true"`
	OpenAIBaseURL     string `validate:"omitempty,url"`
	OpenAIModel       string `validate:"required"`
	LLMTimeout        time.Duration `validate:"gt=0"`
	LLMLogDir         string

	ShuffleQuestions bool
	ReviewMissed     bool

	SessionBackend string        `validate:"oneof=memory redis"`
	RedisURL       string        `validate:"required_if=SessionBackend redis"`
	SessionTTL     time.Duration `validate:"gt=0"`
	CookieSecret   string        `validate:"required,min=16"`

	KafkaBrokers []string
	EventsTopic  string `validate:"required"`

	DeckDBPath string `validate:"required"`
}

// LoadConfig reads .env (if present) and the environment, then validates.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Verbose:     getBool("VERBOSE", false),

		QuestionSetURL:     getEnv("QUESTION_SET_URL", DefaultQuestionSetURL),
		DeckURLTemplate:    getEnv("DECK_URL_TEMPLATE", ""),
		QuestionSetTimeout: getDuration("QUESTION_SET_TIMEOUT", 5*time.Second),

		JudgeStrategy:     strings.ToLower(getEnv("JUDGE_STRATEGY", JudgeLexical)),
		RephraseQuestions: getBool("REPHRASE_QUESTIONS", false),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", DefaultModel),
		LLMTimeout:        getDuration("LLM_TIMEOUT", 8*time.Second),
		LLMLogDir:         getEnv("LLM_LOG_DIR", ""),

		ShuffleQuestions: getBool("SHUFFLE_QUESTIONS", false),
		ReviewMissed:     getBool("REVIEW_MISSED", false),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", BackendMemory)),
		RedisURL:       getEnv("REDIS_URL", ""),
		SessionTTL:     getDuration("SESSION_TTL", 30*time.Minute),
		CookieSecret:   getEnv("COOKIE_SECRET", devCookieSecret),

		KafkaBrokers: getList("KAFKA_BROKERS"),
		EventsTopic:  getEnv("EVENTS_TOPIC", "quizme.sessions"),

		DeckDBPath: getEnv("DECK_DB_PATH", "./decks.db"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags. Production must set its own COOKIE_SECRET.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsProduction() && c.CookieSecret == devCookieSecret {
		return errors.New("invalid configuration: COOKIE_SECRET must be set in production")
	}
	return nil
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

// DeckServerConfig is the subset of settings the deck server reads. It
// ignores judge, session and event settings entirely.
type DeckServerConfig struct {
	Port        string `validate:"required,numeric"`
	Environment string `validate:"required"`
	Verbose     bool
	DeckDBPath  string `validate:"required"`
}

// LoadDeckServerConfig reads .env (if present) and the deck server's keys.
func LoadDeckServerConfig() (*DeckServerConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &DeckServerConfig{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Verbose:     getBool("VERBOSE", false),
		DeckDBPath:  getEnv("DECK_DB_PATH", "./decks.db"),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *DeckServerConfig) IsProduction() bool {
	return isProduction(c.Environment)
}

func isProduction(env string) bool {
	switch strings.ToLower(env) {
	case "prod", "production":
		return true
	}
	return false
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getDuration accepts Go durations ("5s") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
