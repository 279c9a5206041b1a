package mcqgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// fakeOpenAI answers chat completions with a submit_questions tool call
// carrying candidates.
func fakeOpenAI(t *testing.T, wantKey string, candidates []RawCandidate, gotReq *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	args, err := json.Marshal(map[string]interface{}{"questions": candidates})
	if err != nil {
		t.Fatal(err)
	}
	return fakeOpenAIArgs(t, wantKey, string(args), gotReq)
}

// fakeOpenAIArgs answers with a tool call whose arguments are args verbatim.
func fakeOpenAIArgs(t *testing.T, wantKey, args string, gotReq *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+wantKey {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}

		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  openai.GPT4o,
			Choices: []openai.ChatCompletionChoice{{
				Index: 0,
				Message: openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{{
						ID:   "call_1",
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      submitQuestionsTool,
							Arguments: args,
						},
					}},
				},
				FinishReason: openai.FinishReasonToolCalls,
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIServiceRequestQuestions(t *testing.T) {
	want := validCandidates(3)
	var gotReq openai.ChatCompletionRequest
	srv := fakeOpenAI(t, "sk-test-secret", want, &gotReq)
	defer srv.Close()

	logDir := t.TempDir()
	svc := NewOpenAIService(WithBaseURL(srv.URL+"/v1"), WithModel("gpt-test"), WithTranscriptDir(logDir))

	got, err := svc.RequestQuestions(context.Background(), GenerationRequest{
		Content:    "Photosynthesis converts light into chemical energy.",
		Count:      3,
		Difficulty: DifficultyHard,
		APIKey:     "sk-test-secret",
	})
	if err != nil {
		t.Fatalf("RequestQuestions: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Text != want[i].Text || got[i].CorrectAnswerIndex != want[i].CorrectAnswerIndex {
			t.Errorf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if gotReq.Model != "gpt-test" {
		t.Errorf("model = %q, want gpt-test", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || !strings.Contains(gotReq.Messages[1].Content, "Difficulty level: hard") {
		t.Errorf("prompt does not carry difficulty: %+v", gotReq.Messages)
	}
	if len(gotReq.Tools) != 1 || gotReq.Tools[0].Function.Name != submitQuestionsTool {
		t.Errorf("tools = %+v", gotReq.Tools)
	}

	logs, _ := filepath.Glob(filepath.Join(logDir, "*.log"))
	if len(logs) != 1 {
		t.Fatalf("found %d transcripts, want 1", len(logs))
	}
	data, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "LLM REQUEST") || !strings.Contains(string(data), "Generation Complete") {
		t.Errorf("transcript missing sections:\n%s", data)
	}
	if strings.Contains(string(data), "sk-test-secret") {
		t.Error("transcript contains the API key")
	}
}

func TestOpenAIServiceErrors(t *testing.T) {
	srv := fakeOpenAI(t, "sk-right", validCandidates(1), nil)
	defer srv.Close()
	svc := NewOpenAIService(WithBaseURL(srv.URL + "/v1"))

	tests := []struct {
		name string
		key  string
	}{
		{name: "no key", key: ""},
		{name: "rejected key", key: "sk-wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestQuestions(context.Background(), GenerationRequest{Content: "x", Count: 5, Difficulty: DifficultyEasy, APIKey: tt.key})
			if err == nil {
				t.Fatal("RequestQuestions() succeeded, want error")
			}
		})
	}
}

func TestOpenAIServiceDropsIncompleteQuestions(t *testing.T) {
	args := `{"questions":[
		{"text":"No answer given?","options":["a","b","c","d"]},
		{"text":"Kept?","options":["w","x","y","z"],"correct_answer":0},
		{"options":["a","b","c","d"],"correct_answer":1},
		{"text":"No options?","correct_answer":2},
		{"text":"Null answer?","options":["a","b","c","d"],"correct_answer":null}
	]}`
	srv := fakeOpenAIArgs(t, "sk-test", args, nil)
	defer srv.Close()
	svc := NewOpenAIService(WithBaseURL(srv.URL + "/v1"))

	got, err := svc.RequestQuestions(context.Background(), GenerationRequest{Content: "x", Count: 5, Difficulty: DifficultyEasy, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("RequestQuestions: %v", err)
	}
	want := []RawCandidate{{Text: "Kept?", Options: []string{"w", "x", "y", "z"}, CorrectAnswerIndex: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidates = %+v, want %+v", got, want)
	}
}
