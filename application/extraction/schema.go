package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/pkg/utils"
)

// maxItems bounds every list the model returns.
const maxItems = 5

// ErrMalformedResponse marks a model response that failed schema validation.
var ErrMalformedResponse = errors.New("malformed model response")

// Parsed is the outcome of reading one model response: either a valid
// extraction in Value, or the reason it was rejected in Malformed.
type Parsed[T any] struct {
	Value     T
	Malformed error
}

// Valid reports whether the response passed validation.
func (p Parsed[T]) Valid() bool {
	return p.Malformed == nil
}

func malformed[T any](format string, args ...interface{}) Parsed[T] {
	return Parsed[T]{Malformed: fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))}
}

// Summary is the structured digest of one conversation.
type Summary struct {
	MainTopics  []string `json:"main_topics" validate:"min=1,max=5,dive,required"`
	KeyInsights []string `json:"key_insights" validate:"max=5,dive,required"`
	Questions   []string `json:"questions" validate:"dive,required"`
	Takeaways   []string `json:"takeaways" validate:"max=5,dive,required"`
}

// JSON serializes the summary for storage alongside concepts.
func (s Summary) JSON() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Concepts are phrased as quiz stems, so each must read as a short sentence.
type conceptsPayload struct {
	Concepts []string `json:"concepts" validate:"min=1,max=5,dive,required,minwords=5,maxwords=15"`
}

type questionPayload struct {
	Question      string            `json:"question" validate:"required"`
	Options       map[string]string `json:"options" validate:"len=4,dive,keys,oneof=A B C D,endkeys,required"`
	CorrectAnswer string            `json:"correct_answer" validate:"required,oneof=A B C D"`
	Explanation   string            `json:"explanation" validate:"required"`
}

type quizPayload struct {
	Questions []questionPayload `json:"questions" validate:"min=1,max=5,dive"`
}

// ParseSummary reads a summarizer response. Lists longer than five items
// are cut to five (open questions are kept whole).
func ParseSummary(raw string) Parsed[Summary] {
	var s Summary
	if err := decodeJSON(raw, &s); err != nil {
		return malformed[Summary]("%v", err)
	}
	s.MainTopics = cleanList(s.MainTopics, maxItems)
	s.KeyInsights = cleanList(s.KeyInsights, maxItems)
	s.Questions = cleanList(s.Questions, 0)
	s.Takeaways = cleanList(s.Takeaways, maxItems)
	if err := utils.ValidateStruct(s); err != nil {
		return malformed[Summary]("%v", err)
	}
	return Parsed[Summary]{Value: s}
}

// ParseConcepts reads a concept extractor response. A concept outside
// 5 to 15 words rejects the whole response.
func ParseConcepts(raw string) Parsed[[]string] {
	var p conceptsPayload
	if err := decodeJSON(raw, &p); err != nil {
		return malformed[[]string]("%v", err)
	}
	p.Concepts = cleanList(p.Concepts, maxItems)
	if err := utils.ValidateStruct(p); err != nil {
		return malformed[[]string]("%v", err)
	}
	return Parsed[[]string]{Value: p.Concepts}
}

// ParseQuiz reads a quiz generator response.
func ParseQuiz(raw string) Parsed[[]entities.QuizQuestion] {
	var p quizPayload
	if err := decodeJSON(raw, &p); err != nil {
		return malformed[[]entities.QuizQuestion]("%v", err)
	}
	if len(p.Questions) > maxItems {
		p.Questions = p.Questions[:maxItems]
	}
	for i := range p.Questions {
		p.Questions[i].CorrectAnswer = strings.ToUpper(strings.TrimSpace(p.Questions[i].CorrectAnswer))
	}
	if err := utils.ValidateStruct(p); err != nil {
		return malformed[[]entities.QuizQuestion]("%v", err)
	}

	questions := make([]entities.QuizQuestion, 0, len(p.Questions))
	for _, q := range p.Questions {
		questions = append(questions, entities.QuizQuestion{
			Question:      strings.TrimSpace(q.Question),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   strings.TrimSpace(q.Explanation),
		})
	}
	return Parsed[[]entities.QuizQuestion]{Value: questions}
}

// decodeJSON strips markdown code fences the model sometimes wraps JSON in
// and decodes the remaining object strictly.
func decodeJSON(raw string, v interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return errors.New("empty response")
	}
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// cleanList trims items, drops blanks and keeps at most limit items
// (limit 0 keeps all). The result is never nil.
func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
