package mcqgen

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
)

// Event is delivered to observers after every committed state change.
type Event struct {
	Changed  Field
	Reset    bool
	Snapshot Snapshot
}

// Observer receives events. It runs after the session lock is released and
// may call back into the Session.
type Observer func(Event)

// Session owns the state of one user: ingested content, generation config,
// the question store and the credential. Every change is written through to
// the KVStore before observers hear about it.
//
// Extraction and generation run without holding the lock. Each is tagged
// with an epoch; a result whose epoch is no longer current (a newer request,
// a new ingestion or a reset happened meanwhile) is discarded with
// ErrSuperseded.
type Session struct {
	mu        sync.Mutex
	persister *Persister
	creds     *Credentials
	generator *Generator
	ingestor  *Ingestor
	questions *QuestionStore

	origin ContentOrigin
	config GenerationConfig

	genEpoch     uint64
	extractEpoch uint64

	observers    map[int]Observer
	nextObserver int
}

// NewSession creates a session over store and hydrates it from whatever was
// persisted there.
func NewSession(ctx context.Context, store KVStore, generator *Generator, ingestor *Ingestor) *Session {
	s := &Session{
		persister: NewPersister(store),
		creds:     NewCredentials(store),
		generator: generator,
		ingestor:  ingestor,
		questions: NewQuestionStore(),
		observers: make(map[int]Observer),
	}

	snap := s.persister.Hydrate(ctx)
	s.origin = snap.Origin
	s.config = snap.Config
	s.questions.ReplaceAll(snap.Questions)

	log.Printf("Session hydrated: source=%s, %d questions, config=%d/%s",
		s.origin.SourceType, len(snap.Questions), s.config.NumberOfQuestions, s.config.DifficultyLevel)
	return s
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Session) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = o
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Snapshot returns a copy of the current durable state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Questions returns the current questions in order
func (s *Session) Questions() []Question {
	return s.questions.List()
}

// Credentials gives access to the stored API key
func (s *Session) Credentials() *Credentials {
	return s.creds
}

// IngestText replaces the content with pasted text and clears the questions
// derived from the previous content.
func (s *Session) IngestText(ctx context.Context, raw string) (ContentOrigin, error) {
	origin, err := IngestText(raw)
	if err != nil {
		return ContentOrigin{}, err
	}

	s.mu.Lock()
	s.extractEpoch++
	ev, obs, err := s.adoptContentLocked(ctx, origin)
	s.mu.Unlock()

	s.publish(ev, obs)
	return origin, err
}

// IngestDocument extracts text from an uploaded document and, if no newer
// ingestion or reset happened meanwhile, replaces the content with it. On
// any error the session is left unchanged.
func (s *Session) IngestDocument(ctx context.Context, data []byte, mimeType string) (ContentOrigin, error) {
	s.mu.Lock()
	s.extractEpoch++
	epoch := s.extractEpoch
	s.mu.Unlock()

	origin, err := s.ingestor.IngestDocument(ctx, data, mimeType)
	if err != nil {
		return ContentOrigin{}, err
	}

	s.mu.Lock()
	if epoch != s.extractEpoch {
		s.mu.Unlock()
		log.Printf("Discarding stale extraction result (epoch %d)", epoch)
		return ContentOrigin{}, ErrSuperseded
	}
	ev, obs, err := s.adoptContentLocked(ctx, origin)
	s.mu.Unlock()

	s.publish(ev, obs)
	return origin, err
}

func (s *Session) adoptContentLocked(ctx context.Context, origin ContentOrigin) (Event, []Observer, error) {
	s.origin = origin
	s.questions.ReplaceAll(nil)
	// Any generation still running belongs to the old content
	s.genEpoch++
	return s.commitLocked(ctx, FieldContent|FieldQuestions)
}

// SetConfig validates and stores new generation options.
func (s *Session) SetConfig(ctx context.Context, cfg GenerationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.config = cfg
	ev, obs, err := s.commitLocked(ctx, FieldConfig)
	s.mu.Unlock()

	s.publish(ev, obs)
	return err
}

// Generate runs the generator over the current content and config and
// replaces the question list with the result. A failed generation, including
// one where no candidate survives validation, leaves the previous list
// untouched.
func (s *Session) Generate(ctx context.Context) ([]Question, error) {
	s.mu.Lock()
	origin, cfg := s.origin, s.config
	if !origin.Present() {
		s.mu.Unlock()
		return nil, ErrNoContent
	}
	s.genEpoch++
	epoch := s.genEpoch
	s.mu.Unlock()

	apiKey, _, err := s.creds.Key(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read api key: %w", err)
	}

	questions, err := s.generator.Generate(ctx, origin.Content, cfg, apiKey)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no valid questions in response", ErrGenerationService)
	}

	s.mu.Lock()
	if epoch != s.genEpoch {
		s.mu.Unlock()
		log.Printf("Discarding stale generation result (epoch %d)", epoch)
		return nil, ErrSuperseded
	}
	s.questions.ReplaceAll(questions)
	ev, obs, err := s.commitLocked(ctx, FieldQuestions)
	committed := s.questions.List()
	s.mu.Unlock()

	s.publish(ev, obs)
	return committed, err
}

// BeginEdit opens a draft of the question with id, discarding any other
// open draft.
func (s *Session) BeginEdit(id string) (*Draft, error) {
	return s.questions.BeginEdit(id)
}

// OpenDraft returns the open draft, or nil
func (s *Session) OpenDraft() *Draft {
	return s.questions.OpenDraft()
}

// CancelEdit discards the open draft
func (s *Session) CancelEdit() {
	s.questions.CancelEdit()
}

// CommitEdit writes d back into the question list.
func (s *Session) CommitEdit(ctx context.Context, d *Draft) error {
	s.mu.Lock()
	if err := s.questions.CommitEdit(d); err != nil {
		s.mu.Unlock()
		return err
	}
	ev, obs, err := s.commitLocked(ctx, FieldQuestions)
	s.mu.Unlock()

	s.publish(ev, obs)
	return err
}

// DeleteQuestion removes the question with id; a missing id is a no-op.
func (s *Session) DeleteQuestion(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.questions.Delete(id) {
		s.mu.Unlock()
		return nil
	}
	ev, obs, err := s.commitLocked(ctx, FieldQuestions)
	s.mu.Unlock()

	s.publish(ev, obs)
	return err
}

// Export writes the current questions as CSV to w.
func (s *Session) Export(w io.Writer) error {
	return WriteCSV(w, s.questions.List())
}

// Reset clears content, questions and config in memory and in the store.
// Results of requests started before the reset are discarded when they
// arrive. The API key is kept.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.genEpoch++
	s.extractEpoch++
	def := DefaultSnapshot()
	s.origin = def.Origin
	s.config = def.Config
	s.questions.ReplaceAll(nil)

	var err error
	if cerr := s.persister.Clear(ctx); cerr != nil {
		log.Printf("Failed to clear persisted state: %v", cerr)
		err = cerr
	}
	ev := Event{Changed: FieldAll, Reset: true, Snapshot: s.snapshotLocked()}
	obs := s.observerList()
	s.mu.Unlock()

	s.publish(ev, obs)
	return err
}

// Close detaches observers and invalidates every in-flight request.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genEpoch++
	s.extractEpoch++
	s.observers = make(map[int]Observer)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Origin:    s.origin,
		Questions: s.questions.List(),
		Config:    s.config,
	}
}

// commitLocked persists the changed fields and returns the event to publish
// once the lock is released. A persist failure is logged and returned; the
// in-memory change stands.
func (s *Session) commitLocked(ctx context.Context, changed Field) (Event, []Observer, error) {
	snap := s.snapshotLocked()
	err := s.persister.Persist(ctx, snap, changed)
	if err != nil {
		log.Printf("Failed to persist session state: %v", err)
	}
	return Event{Changed: changed, Snapshot: snap}, s.observerList(), err
}

func (s *Session) observerList() []Observer {
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	return obs
}

func (s *Session) publish(ev Event, obs []Observer) {
	for _, o := range obs {
		o(ev)
	}
}
