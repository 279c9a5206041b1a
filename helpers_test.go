package mcqgen

import (
	"context"
	"fmt"
	"sync"
)

type fakeService struct {
	mu         sync.Mutex
	candidates []RawCandidate
	err        error
	calls      int
	lastReq    GenerationRequest
}

func (f *fakeService) RequestQuestions(_ context.Context, req GenerationRequest) ([]RawCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

// blockingService parks every request until release is closed.
type blockingService struct {
	started    chan struct{}
	release    chan struct{}
	candidates []RawCandidate
}

func newBlockingService(candidates []RawCandidate) *blockingService {
	return &blockingService{
		started:    make(chan struct{}, 1),
		release:    make(chan struct{}),
		candidates: candidates,
	}
}

func (b *blockingService) RequestQuestions(ctx context.Context, _ GenerationRequest) ([]RawCandidate, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return b.candidates, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func validCandidates(n int) []RawCandidate {
	out := make([]RawCandidate, n)
	for i := range out {
		out[i] = RawCandidate{
			Text:               fmt.Sprintf("Question %d?", i+1),
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: i % OptionCount,
		}
	}
	return out
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("q%d", n)
	}
}

func staticExtractor(text string, err error) Extractor {
	return ExtractorFunc(func(context.Context, []byte) (string, error) {
		return text, err
	})
}

// newTestSession builds a session over store that generates with service.
func newTestSession(store KVStore, service QuestionService) *Session {
	return NewSession(context.Background(), store,
		NewGenerator(service, WithIDFunc(sequentialIDs())),
		NewIngestor(staticExtractor("Extracted document text.", nil)))
}
