package mcqgen

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionService is the external generation service.
type QuestionService interface {
	RequestQuestions(ctx context.Context, req GenerationRequest) ([]RawCandidate, error)
}

// DefaultGenerationTimeout bounds a single generation service call.
const DefaultGenerationTimeout = 2 * time.Minute

// Generator turns content and options into validated questions
type Generator struct {
	service QuestionService
	timeout time.Duration
	newID   func() string
}

// GeneratorOption customizes a Generator
type GeneratorOption func(*Generator)

// WithTimeout overrides DefaultGenerationTimeout. Zero disables the timeout.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

// WithIDFunc overrides how question ids are minted.
func WithIDFunc(f func() string) GeneratorOption {
	return func(g *Generator) { g.newID = f }
}

// NewGenerator creates a generator that requests candidates from service
func NewGenerator(service QuestionService, opts ...GeneratorOption) *Generator {
	g := &Generator{
		service: service,
		timeout: DefaultGenerationTimeout,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate requests one batch from the service and returns the valid
// candidates as questions, in service order, each with a fresh id. Invalid
// candidates are dropped. Service failures are wrapped in
// ErrGenerationService and are not retried.
func (g *Generator) Generate(ctx context.Context, content string, cfg GenerationConfig, apiKey string) ([]Question, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrNoContent
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	log.Printf("Requesting %d %s questions from %d characters of content",
		cfg.NumberOfQuestions, cfg.DifficultyLevel, len(content))

	candidates, err := g.service.RequestQuestions(ctx, GenerationRequest{
		Content:    content,
		Count:      cfg.NumberOfQuestions,
		Difficulty: cfg.DifficultyLevel,
		APIKey:     apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationService, err)
	}

	questions := make([]Question, 0, len(candidates))
	for i, c := range candidates {
		if err := CheckCandidate(c); err != nil {
			VerboseLog("Dropping candidate %d: %v", i, err)
			continue
		}
		questions = append(questions, Question{
			ID:            g.newID(),
			Text:          c.Text,
			Options:       append([]string(nil), c.Options...),
			CorrectAnswer: c.CorrectAnswerIndex,
		})
	}

	if len(candidates) > cfg.NumberOfQuestions {
		log.Printf("Service returned %d candidates for a hint of %d", len(candidates), cfg.NumberOfQuestions)
	}
	log.Printf("Accepted %d of %d candidates", len(questions), len(candidates))
	return questions, nil
}
