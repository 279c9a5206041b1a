package mcqgen

import (
	"fmt"
	"sync"
)

// DraftField names an editable field of a question.
type DraftField string

const (
	FieldText          DraftField = "text"
	FieldOptions       DraftField = "options"
	FieldCorrectAnswer DraftField = "correctAnswer"
)

// Draft is a private working copy of one question. Edits touch only the
// draft; the store sees them on CommitEdit.
type Draft struct {
	mu  sync.Mutex
	q   Question
	seq uint64
}

// ID returns the id of the question being edited
func (d *Draft) ID() string {
	return d.q.ID
}

// Question returns a copy of the draft's current contents
func (d *Draft) Question() Question {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Clone()
}

// SetText replaces the question text
func (d *Draft) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.q.Text = text
}

// SetOption replaces a single option by index.
func (d *Draft) SetOption(index int, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.q.Options) {
		return fmt.Errorf("%w: option index %d out of range", ErrInvalidField, index)
	}
	d.q.Options[index] = value
	return nil
}

// SetCorrectAnswer selects the correct option by index.
func (d *Draft) SetCorrectAnswer(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.q.Options) {
		return fmt.Errorf("%w: correct answer %d out of range", ErrInvalidField, index)
	}
	d.q.CorrectAnswer = index
	return nil
}

// Update applies a field edit by name. For FieldOptions, optionIndex selects
// the option; for FieldCorrectAnswer it is the new answer index and value is
// ignored; for FieldText it is ignored.
func (d *Draft) Update(field DraftField, value string, optionIndex int) error {
	switch field {
	case FieldText:
		d.SetText(value)
		return nil
	case FieldOptions:
		return d.SetOption(optionIndex, value)
	case FieldCorrectAnswer:
		return d.SetCorrectAnswer(optionIndex)
	}
	return fmt.Errorf("%w: unknown field %q", ErrInvalidField, field)
}

// QuestionStore owns the ordered question list. Order is display and export
// order. At most one Draft is open at a time; opening another discards it.
type QuestionStore struct {
	mu        sync.RWMutex
	questions []Question
	openDraft uint64 // seq of the open draft, 0 when none
	draft     *Draft
	seq       uint64
}

// NewQuestionStore creates an empty question store
func NewQuestionStore() *QuestionStore {
	return &QuestionStore{questions: make([]Question, 0)}
}

// ReplaceAll swaps in a new list and discards any open draft.
func (qs *QuestionStore) ReplaceAll(questions []Question) {
	next := make([]Question, 0, len(questions))
	for _, q := range questions {
		next = append(next, q.Clone())
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.questions = next
	qs.closeDraft()
}

// List returns a copy of all questions in order
func (qs *QuestionStore) List() []Question {
	qs.mu.RLock()
	defer qs.mu.RUnlock()

	out := make([]Question, 0, len(qs.questions))
	for _, q := range qs.questions {
		out = append(out, q.Clone())
	}
	return out
}

// Get returns a copy of the question with id
func (qs *QuestionStore) Get(id string) (Question, error) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()

	i := qs.indexOf(id)
	if i < 0 {
		return Question{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return qs.questions[i].Clone(), nil
}

// Len returns the number of questions
func (qs *QuestionStore) Len() int {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return len(qs.questions)
}

// BeginEdit opens a draft copy of the question with id. Any previously open
// draft is discarded.
func (qs *QuestionStore) BeginEdit(id string) (*Draft, error) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	i := qs.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if qs.draft != nil {
		VerboseLog("Discarding unsaved draft of question %s", qs.draft.ID())
	}

	qs.seq++
	d := &Draft{q: qs.questions[i].Clone(), seq: qs.seq}
	qs.openDraft = d.seq
	qs.draft = d
	return d, nil
}

// OpenDraft returns the currently open draft, or nil.
func (qs *QuestionStore) OpenDraft() *Draft {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return qs.draft
}

// CommitEdit writes the draft back in place of the question with the same id
// and closes it.
func (qs *QuestionStore) CommitEdit(d *Draft) error {
	if d == nil {
		return fmt.Errorf("%w: no draft", ErrDraftDiscarded)
	}
	q := d.Question()

	qs.mu.Lock()
	defer qs.mu.Unlock()

	if d.seq != qs.openDraft {
		return fmt.Errorf("%w: question %s", ErrDraftDiscarded, q.ID)
	}
	qs.closeDraft()

	i := qs.indexOf(q.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, q.ID)
	}
	qs.questions[i] = q
	return nil
}

// CancelEdit discards the open draft without writing it
func (qs *QuestionStore) CancelEdit() {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.closeDraft()
}

// Delete removes the question with id. It reports whether anything was
// removed; deleting a missing id is a no-op.
func (qs *QuestionStore) Delete(id string) bool {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	i := qs.indexOf(id)
	if i < 0 {
		return false
	}
	// An open draft of this question stays open; committing it reports
	// ErrNotFound.
	qs.questions = append(qs.questions[:i], qs.questions[i+1:]...)
	return true
}

func (qs *QuestionStore) indexOf(id string) int {
	for i, q := range qs.questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func (qs *QuestionStore) closeDraft() {
	qs.openDraft = 0
	qs.draft = nil
}
