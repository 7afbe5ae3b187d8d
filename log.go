package quizme

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	logMu       sync.RWMutex
	logger      = zap.NewNop().Sugar()
	verboseMode bool
)

// NewLogger builds a zap logger for the given environment name.
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

// SetLogger installs the package logger. A nil logger silences output.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	if l == nil {
		logger = zap.NewNop().Sugar()
		return
	}
	logger = l.Sugar()
}

// Log returns the package logger.
func Log() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// SetVerbose sets the global verbose mode
func SetVerbose(verbose bool) {
	logMu.Lock()
	defer logMu.Unlock()
	verboseMode = verbose
}

// VerboseLog logs at debug level only when verbose mode is enabled
func VerboseLog(msg string, keysAndValues ...interface{}) {
	logMu.RLock()
	on := verboseMode
	l := logger
	logMu.RUnlock()
	if on {
		l.Debugw(msg, keysAndValues...)
	}
}

// SessionKey hashes a session identifier for logs and events.
func SessionKey(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(sessionID))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}
