package mcqgen

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenerationLog records one generation request and the model's answer to
// <dir>/<runID>.log. The API key is never written.
type GenerationLog struct {
	file  *os.File
	mu    sync.Mutex
	path  string
	runID string
}

// NewGenerationLog creates the transcript file and writes its header
func NewGenerationLog(dir, runID string, req GenerationRequest) (*GenerationLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", runID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	gl := &GenerationLog{
		file:  file,
		path:  filename,
		runID: runID,
	}

	gl.Logf("=== Question Generation Log ===\n")
	gl.Logf("Run ID: %s\n", runID)
	gl.Logf("Requested Questions: %d\n", req.Count)
	gl.Logf("Difficulty: %s\n", req.Difficulty)
	gl.Logf("Content Length: %d characters\n", len(req.Content))
	gl.Logf("API Key: %s\n", RedactKey(req.APIKey))
	gl.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	gl.Logf("===============================\n\n")

	return gl, nil
}

// Path returns the transcript file name
func (gl *GenerationLog) Path() string {
	return gl.path
}

// Logf writes a formatted entry with timestamp
func (gl *GenerationLog) Logf(format string, args ...interface{}) {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	gl.writef(format, args...)
}

func (gl *GenerationLog) writef(format string, args ...interface{}) {
	if gl.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(gl.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	gl.file.Sync()
}

// LogLLMRequest logs the prompt sent to the model
func (gl *GenerationLog) LogLLMRequest(module, prompt string) {
	gl.Logf("=== LLM REQUEST (%s) ===\n", module)
	gl.Logf("Prompt:\n%s\n", prompt)
	gl.Logf("=====================\n\n")
}

// LogLLMResponse logs the raw tool arguments returned by the model
func (gl *GenerationLog) LogLLMResponse(module, response string) {
	gl.Logf("=== LLM RESPONSE (%s) ===\n", module)
	gl.Logf("Response:\n%s\n", response)
	gl.Logf("======================\n\n")
}

// LogCandidateResult logs whether a candidate survived validation
func (gl *GenerationLog) LogCandidateResult(index int, action, reason string) {
	gl.Logf("Candidate %d: %s - %s\n", index, action, reason)
}

// Close writes the footer and closes the file
func (gl *GenerationLog) Close() error {
	gl.mu.Lock()
	defer gl.mu.Unlock()

	if gl.file == nil {
		return nil
	}
	gl.writef("=== Generation Complete ===\n")
	gl.writef("Completed: %s\n", time.Now().Format(time.RFC3339))
	err := gl.file.Close()
	gl.file = nil
	return err
}
