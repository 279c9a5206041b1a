package mcqgen

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGenerateKeepsOrderAndMintsIDs(t *testing.T) {
	svc := &fakeService{candidates: validCandidates(5)}
	g := NewGenerator(svc)

	got, err := g.Generate(context.Background(), "content", GenerationConfig{NumberOfQuestions: 5, DifficultyLevel: DifficultyEasy}, "sk-test")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d questions, want 5", len(got))
	}
	seen := make(map[string]bool)
	for i, q := range got {
		if q.ID == "" || seen[q.ID] {
			t.Errorf("question %d has empty or duplicate id %q", i, q.ID)
		}
		seen[q.ID] = true
		if q.Text != svc.candidates[i].Text {
			t.Errorf("question %d text = %q, want %q", i, q.Text, svc.candidates[i].Text)
		}
	}

	req := svc.lastReq
	if req.Content != "content" || req.Count != 5 || req.Difficulty != DifficultyEasy || req.APIKey != "sk-test" {
		t.Errorf("service request = %+v", req)
	}
}

func TestGenerateDropsInvalidCandidates(t *testing.T) {
	candidates := validCandidates(4)
	candidates[1].Options = []string{"only", "three", "options"}
	candidates = append(candidates, RawCandidate{Text: "", Options: []string{"a", "b", "c", "d"}})

	g := NewGenerator(&fakeService{candidates: candidates}, WithIDFunc(sequentialIDs()))
	got, err := g.Generate(context.Background(), "content", DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{"Question 1?", "Question 3?", "Question 4?"}
	if len(got) != len(want) {
		t.Fatalf("got %d questions, want %d", len(got), len(want))
	}
	for i, q := range got {
		if q.Text != want[i] {
			t.Errorf("question %d = %q, want %q", i, q.Text, want[i])
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name    string
		content string
		cfg     GenerationConfig
		svc     *fakeService
		wantErr error
		calls   int
	}{
		{name: "no content", content: "  ", cfg: DefaultConfig(), svc: &fakeService{}, wantErr: ErrNoContent},
		{name: "bad config", content: "text", cfg: GenerationConfig{NumberOfQuestions: 0, DifficultyLevel: DifficultyEasy}, svc: &fakeService{}, wantErr: ErrInvalidConfig},
		{name: "service fails once, no retry", content: "text", cfg: DefaultConfig(), svc: &fakeService{err: boom}, wantErr: ErrGenerationService, calls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.svc).Generate(context.Background(), tt.content, tt.cfg, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.svc.calls != tt.calls {
				t.Errorf("service called %d times, want %d", tt.svc.calls, tt.calls)
			}
		})
	}
}

func TestGenerateTimeout(t *testing.T) {
	svc := newBlockingService(validCandidates(1))
	g := NewGenerator(svc, WithTimeout(20*time.Millisecond))

	_, err := g.Generate(context.Background(), "content", DefaultConfig(), "")
	if !errors.Is(err, ErrGenerationService) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Generate() error = %v, want wrapped deadline exceeded", err)
	}
}
