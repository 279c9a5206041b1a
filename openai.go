package mcqgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

const submitQuestionsTool = "submit_questions"

// OpenAIService requests questions from an OpenAI-compatible chat completion
// endpoint using a forced tool call.
type OpenAIService struct {
	baseURL string
	model   string
	logDir  string
}

// OpenAIOption customizes an OpenAIService
type OpenAIOption func(*OpenAIService)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(s *OpenAIService) { s.baseURL = url }
}

// WithModel overrides the default model.
func WithModel(model string) OpenAIOption {
	return func(s *OpenAIService) { s.model = model }
}

// WithTranscriptDir writes a GenerationLog for every request into dir.
func WithTranscriptDir(dir string) OpenAIOption {
	return func(s *OpenAIService) { s.logDir = dir }
}

// NewOpenAIService creates the service. The API key is not held here; it
// arrives with each request.
func NewOpenAIService(opts ...OpenAIOption) *OpenAIService {
	s := &OpenAIService{model: openai.GPT4o}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestQuestions asks the model for req.Count questions and returns the
// raw candidates in the order the model produced them.
func (s *OpenAIService) RequestQuestions(ctx context.Context, req GenerationRequest) ([]RawCandidate, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, errors.New("no OpenAI API key configured")
	}

	cfg := openai.DefaultConfig(req.APIKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	var transcript *GenerationLog
	if s.logDir != "" {
		var err error
		transcript, err = NewGenerationLog(s.logDir, uuid.NewString(), req)
		if err != nil {
			// Continue without a transcript rather than failing
			log.Printf("Failed to create generation log: %v", err)
		} else {
			defer transcript.Close()
		}
	}

	prompt := buildPrompt(req)
	if transcript != nil {
		transcript.LogLLMRequest("OpenAIService", prompt)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at writing multiple choice questions from study material. Every question has exactly 4 options and exactly one correct answer.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        submitQuestionsTool,
					Description: "Submit generated multiple choice questions",
					Parameters:  submitQuestionsSchema(),
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: submitQuestionsTool,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, errors.New("no tool calls in response")
	}
	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != submitQuestionsTool {
		return nil, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}
	if transcript != nil {
		transcript.LogLLMResponse("OpenAIService", toolCall.Function.Arguments)
	}

	var toolArgs struct {
		Questions []toolQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	candidates := make([]RawCandidate, 0, len(toolArgs.Questions))
	for i, q := range toolArgs.Questions {
		c, err := q.candidate()
		if err == nil {
			err = CheckCandidate(c)
		}
		if err != nil {
			VerboseLog("Dropping model question %d: %v", i, err)
			if transcript != nil {
				transcript.LogCandidateResult(i, "drop", err.Error())
			}
			continue
		}
		if transcript != nil {
			transcript.LogCandidateResult(i, "keep", "valid")
		}
		candidates = append(candidates, c)
	}

	VerboseLog("Model returned %d questions, %d usable", len(toolArgs.Questions), len(candidates))
	return candidates, nil
}

// toolQuestion is one entry of the submit_questions arguments. Pointers tell
// a missing field apart from a zero value.
type toolQuestion struct {
	Text          *string  `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer"`
}

func (q toolQuestion) candidate() (RawCandidate, error) {
	switch {
	case q.Text == nil:
		return RawCandidate{}, errors.New("missing text")
	case q.Options == nil:
		return RawCandidate{}, errors.New("missing options")
	case q.CorrectAnswer == nil:
		return RawCandidate{}, errors.New("missing correct_answer")
	}
	return RawCandidate{Text: *q.Text, Options: q.Options, CorrectAnswerIndex: *q.CorrectAnswer}, nil
}

func buildPrompt(req GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate %d multiple choice questions based on the following content.\n\n", req.Count))
	sb.WriteString("Content:\n")
	sb.WriteString(req.Content)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Difficulty level: %s\n\n", req.Difficulty))

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Each question must have exactly 4 options\n")
	sb.WriteString("- Exactly one option is correct; give its 0-based index\n")
	sb.WriteString("- Questions must be answerable from the content alone\n")
	sb.WriteString("- Incorrect options should be plausible but clearly wrong\n")
	sb.WriteString(fmt.Sprintf("- Use the %s tool to return your questions\n", submitQuestionsTool))

	return sb.String()
}

func submitQuestionsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"questions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"text": map[string]interface{}{
							"type":        "string",
							"description": "The question text",
						},
						"options": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "string",
							},
							"description": "Array of exactly 4 answer options",
						},
						"correct_answer": map[string]interface{}{
							"type":        "integer",
							"description": "0-based index of the correct option",
						},
					},
					"required": []string{"text", "options", "correct_answer"},
				},
			},
		},
		"required": []string{"questions"},
	}
}
