package mcqgen

import (
	"context"
	"fmt"
)

// Persisted state keys. Content and file type hold raw strings; questions and
// config hold JSON.
const (
	KeyUploadedContent = "uploaded_content"
	KeyFileType        = "file_type"
	KeyQuestions       = "questions"
	KeyConfig          = "config"
)

var sessionKeys = []string{KeyUploadedContent, KeyFileType, KeyQuestions, KeyConfig}

// Field is a bit set naming the parts of a Snapshot that changed.
type Field uint8

const (
	FieldContent Field = 1 << iota
	FieldQuestions
	FieldConfig

	FieldAll = FieldContent | FieldQuestions | FieldConfig
)

// Snapshot is the durable part of a session.
type Snapshot struct {
	Origin    ContentOrigin    `json:"origin"`
	Questions []Question       `json:"questions"`
	Config    GenerationConfig `json:"config"`
}

// DefaultSnapshot is the state of a fresh or reset session.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Origin:    NoContent(),
		Questions: []Question{},
		Config:    DefaultConfig(),
	}
}

// Persister is a write-through cache of session state over a KVStore.
type Persister struct {
	store KVStore
}

// NewPersister creates a persister over store
func NewPersister(store KVStore) *Persister {
	return &Persister{store: store}
}

// Hydrate reads every key and adopts what parses. A missing or unreadable key
// leaves its default in place; it never aborts hydration of the others.
func (p *Persister) Hydrate(ctx context.Context) Snapshot {
	snap := DefaultSnapshot()

	content, hasContent, err := p.store.Get(ctx, KeyUploadedContent)
	if err != nil {
		VerboseLog("Hydrate: ignoring %s: %v", KeyUploadedContent, err)
		hasContent = false
	}
	fileType, hasType, err := p.store.Get(ctx, KeyFileType)
	if err != nil {
		VerboseLog("Hydrate: ignoring %s: %v", KeyFileType, err)
		hasType = false
	}
	if hasContent && hasType && content != "" {
		if st, ok := ParseSourceType(fileType); ok {
			snap.Origin = ContentOrigin{Content: content, SourceType: st}
		} else {
			VerboseLog("Hydrate: ignoring content with unknown file type %q", fileType)
		}
	} else if hasContent || hasType {
		VerboseLog("Hydrate: ignoring content without matching file type")
	}

	var questions []Question
	if ok, err := GetJSON(ctx, p.store, KeyQuestions, &questions); err != nil {
		VerboseLog("Hydrate: ignoring %s: %v", KeyQuestions, err)
	} else if ok {
		for _, q := range questions {
			if err := CheckQuestion(q); err != nil {
				VerboseLog("Hydrate: dropping stored question %q: %v", q.ID, err)
				continue
			}
			snap.Questions = append(snap.Questions, q)
		}
	}

	var cfg GenerationConfig
	if ok, err := GetJSON(ctx, p.store, KeyConfig, &cfg); err != nil {
		VerboseLog("Hydrate: ignoring %s: %v", KeyConfig, err)
	} else if ok {
		if err := cfg.Validate(); err != nil {
			VerboseLog("Hydrate: ignoring %s: %v", KeyConfig, err)
		} else {
			snap.Config = cfg
		}
	}

	return snap
}

// Persist writes the fields named by changed. Absent content and an empty
// question list remove their keys rather than leaving stale values behind.
func (p *Persister) Persist(ctx context.Context, snap Snapshot, changed Field) error {
	if changed&FieldContent != 0 {
		if snap.Origin.Present() {
			if err := p.persistOrigin(ctx, snap.Origin); err != nil {
				return err
			}
		} else if err := p.remove(ctx, KeyUploadedContent, KeyFileType); err != nil {
			return err
		}
	}

	if changed&FieldQuestions != 0 {
		if len(snap.Questions) > 0 {
			if err := SetJSON(ctx, p.store, KeyQuestions, snap.Questions); err != nil {
				return fmt.Errorf("%w: %w", ErrPersist, err)
			}
		} else if err := p.remove(ctx, KeyQuestions); err != nil {
			return err
		}
	}

	if changed&FieldConfig != 0 {
		if err := SetJSON(ctx, p.store, KeyConfig, snap.Config); err != nil {
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
	return nil
}

// persistOrigin writes content and file type as a pair. If either write
// fails both keys are removed, so hydration never pairs new content with an
// old type.
func (p *Persister) persistOrigin(ctx context.Context, origin ContentOrigin) error {
	err := p.store.Set(ctx, KeyUploadedContent, origin.Content)
	if err == nil {
		err = p.store.Set(ctx, KeyFileType, string(origin.SourceType))
	}
	if err == nil {
		return nil
	}
	if rerr := p.remove(ctx, KeyUploadedContent, KeyFileType); rerr != nil {
		VerboseLog("Persist: failed to drop partial content: %v", rerr)
	}
	return fmt.Errorf("%w: %w", ErrPersist, err)
}

// Clear removes all four session keys. The API key is left alone.
func (p *Persister) Clear(ctx context.Context) error {
	return p.remove(ctx, sessionKeys...)
}

func (p *Persister) remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := p.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
	return nil
}
