package mcqgen

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errBlankText   = errors.New("question text is empty")
	errOptionCount = errors.New("wrong number of options")
	errAnswerRange = errors.New("correct answer out of range")
)

// CheckCandidate reports why a candidate cannot become a Question, or nil if
// it can. Candidates are dropped individually; one bad candidate never fails
// the batch.
func CheckCandidate(c RawCandidate) error {
	if strings.TrimSpace(c.Text) == "" {
		return errBlankText
	}
	if len(c.Options) != OptionCount {
		return fmt.Errorf("%w: got %d, want %d", errOptionCount, len(c.Options), OptionCount)
	}
	if c.CorrectAnswerIndex < 0 || c.CorrectAnswerIndex >= len(c.Options) {
		return fmt.Errorf("%w: %d", errAnswerRange, c.CorrectAnswerIndex)
	}
	return nil
}

// CheckQuestion applies the candidate rules to a stored question. Hydration
// uses it to drop corrupt persisted entries.
func CheckQuestion(q Question) error {
	if q.ID == "" {
		return errors.New("question id is empty")
	}
	return CheckCandidate(RawCandidate{Text: q.Text, Options: q.Options, CorrectAnswerIndex: q.CorrectAnswer})
}
