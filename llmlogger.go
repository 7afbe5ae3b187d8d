package quizme

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger appends a transcript of every judge and rephrase exchange to a
// file. A nil *LLMLogger is valid and records nothing.
type LLMLogger struct {
	file *os.File
	mu   sync.Mutex
	path string
}

// NewLLMLogger opens (or creates) the transcript for today under dir.
func NewLLMLogger(dir string) (*LLMLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("llm-%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	ll := &LLMLogger{file: file, path: path}
	ll.Logf("=== Transcript opened %s ===\n", time.Now().Format(time.RFC3339))
	return ll, nil
}

// Path returns the transcript file location.
func (ll *LLMLogger) Path() string {
	if ll == nil {
		return ""
	}
	return ll.path
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	if ll == nil {
		return
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()
	if ll.file == nil {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs an outgoing prompt.
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("--> %s\n%s\n\n", module, prompt)
}

// LogLLMResponse logs the raw text that came back.
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("<-- %s\n%s\n\n", module, response)
}

// LogLLMFailure logs a failed exchange.
func (ll *LLMLogger) LogLLMFailure(module string, err error) {
	ll.Logf("<!! %s: %v\n\n", module, err)
}

// LogVerdict logs the judge decision for one answer.
func (ll *LLMLogger) LogVerdict(expected, spoken string, verdict Verdict) {
	ll.Logf("verdict expected=%q spoken=%q -> %s\n", expected, spoken, verdict)
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	if ll == nil {
		return nil
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	fmt.Fprintf(ll.file, "[%s] === Transcript closed ===\n", time.Now().Format("15:04:05.000"))
	err := ll.file.Close()
	ll.file = nil
	return err
}
