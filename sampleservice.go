package mcqgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const blank = "_____"

// minKeyWordLen is the shortest word the sample service will blank out.
const minKeyWordLen = 4

var fillerOptions = []string{"None of these", "Not stated in the text", "All of these"}

// SampleService is an offline QuestionService that builds fill-in-the-blank
// questions from the content's sentences. Output depends only on the request,
// and it always returns exactly req.Count candidates.
type SampleService struct{}

type blankSlot struct {
	sentence string
	word     string
}

func (SampleService) RequestQuestions(ctx context.Context, req GenerationRequest) ([]RawCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("invalid question count %d", req.Count)
	}

	var slots []blankSlot
	var vocab []string
	seen := make(map[string]bool)
	for _, sentence := range splitSentences(req.Content) {
		for _, word := range keyWords(sentence) {
			slots = append(slots, blankSlot{sentence: sentence, word: word})
			if lw := strings.ToLower(word); !seen[lw] {
				seen[lw] = true
				vocab = append(vocab, word)
			}
		}
	}
	if len(slots) == 0 {
		return nil, errors.New("content has no words long enough to build questions")
	}

	offset := 0
	switch req.Difficulty {
	case DifficultyMedium:
		offset = len(slots) / 3
	case DifficultyHard:
		offset = 2 * len(slots) / 3
	}

	candidates := make([]RawCandidate, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		slot := slots[(offset+i)%len(slots)]
		correct := i % OptionCount

		distractors := pickDistractors(vocab, slot.word, OptionCount-1)
		options := make([]string, 0, OptionCount)
		options = append(options, distractors[:correct]...)
		options = append(options, slot.word)
		options = append(options, distractors[correct:]...)

		candidates = append(candidates, RawCandidate{
			Text:               "Fill in the blank: " + strings.Replace(slot.sentence, slot.word, blank, 1),
			Options:            options,
			CorrectAnswerIndex: correct,
		})
	}
	return candidates, nil
}

// pickDistractors returns n options distinct from answer, taken cyclically
// from vocab after the answer and padded with fillers.
func pickDistractors(vocab []string, answer string, n int) []string {
	start := 0
	for i, w := range vocab {
		if strings.EqualFold(w, answer) {
			start = i + 1
			break
		}
	}

	out := make([]string, 0, n)
	for i := 0; i < len(vocab) && len(out) < n; i++ {
		w := vocab[(start+i)%len(vocab)]
		if !strings.EqualFold(w, answer) {
			out = append(out, w)
		}
	}
	for _, f := range fillerOptions {
		if len(out) == n {
			break
		}
		out = append(out, f)
	}
	return out
}

func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder
	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			sentences = append(sentences, s)
		}
		sb.Reset()
	}
	for _, r := range text {
		switch r {
		case '\n', '\r':
			flush()
		case '.', '!', '?':
			sb.WriteRune(r)
			flush()
		default:
			sb.WriteRune(r)
		}
	}
	flush()
	return sentences
}

func keyWords(sentence string) []string {
	fields := strings.FieldsFunc(sentence, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var words []string
	for _, f := range fields {
		if len([]rune(f)) >= minKeyWordLen {
			words = append(words, f)
		}
	}
	return words
}
