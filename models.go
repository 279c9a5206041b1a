package mcqgen

import (
	"fmt"
	"strings"
)

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// Question is a single multiple choice question owned by a QuestionStore.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"` // 0-based index into Options
}

// Clone returns a deep copy so callers never share the Options backing array.
func (q Question) Clone() Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

// Difficulty is the requested difficulty of a generation run
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

const (
	MinQuestions     = 1
	MaxQuestions     = 20
	DefaultQuestions = 10
)

// GenerationConfig holds the user's generation options. NumberOfQuestions is
// a hint passed to the generation service, not a guaranteed count.
type GenerationConfig struct {
	NumberOfQuestions int        `json:"numberOfQuestions"`
	DifficultyLevel   Difficulty `json:"difficultyLevel"`
}

// DefaultConfig returns the configuration used on first start and after reset.
func DefaultConfig() GenerationConfig {
	return GenerationConfig{
		NumberOfQuestions: DefaultQuestions,
		DifficultyLevel:   DifficultyMedium,
	}
}

// Validate checks the count range and difficulty.
func (c GenerationConfig) Validate() error {
	if c.NumberOfQuestions < MinQuestions || c.NumberOfQuestions > MaxQuestions {
		return fmt.Errorf("%w: number of questions must be between %d and %d, got %d",
			ErrInvalidConfig, MinQuestions, MaxQuestions, c.NumberOfQuestions)
	}
	if !c.DifficultyLevel.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidConfig, c.DifficultyLevel)
	}
	return nil
}

// SourceType tags where the current content came from.
type SourceType string

const (
	SourceNone SourceType = "none"
	SourceText SourceType = "text"
	SourcePDF  SourceType = "pdf"
)

// ParseSourceType maps a persisted file type back to a SourceType. Only text
// and pdf are valid persisted values.
func ParseSourceType(s string) (SourceType, bool) {
	switch SourceType(strings.TrimSpace(s)) {
	case SourceText:
		return SourceText, true
	case SourcePDF:
		return SourcePDF, true
	}
	return SourceNone, false
}

// ContentOrigin is the ingested plain text together with its provenance.
// SourceType is SourceNone exactly when Content is empty.
type ContentOrigin struct {
	Content    string     `json:"content"`
	SourceType SourceType `json:"sourceType"`
}

// NoContent is the empty origin.
func NoContent() ContentOrigin {
	return ContentOrigin{SourceType: SourceNone}
}

// Present reports whether any content has been ingested.
func (o ContentOrigin) Present() bool {
	return o.SourceType != SourceNone && o.Content != ""
}

// RawCandidate is an unvalidated question returned by a QuestionService.
type RawCandidate struct {
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer"`
}

// GenerationRequest is what a QuestionService receives. APIKey is forwarded
// unread to the service and never serialized.
type GenerationRequest struct {
	Content    string     `json:"content"`
	Count      int        `json:"count"`
	Difficulty Difficulty `json:"difficulty"`
	APIKey     string     `json:"-"`
}
