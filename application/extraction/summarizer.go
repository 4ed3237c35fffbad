package extraction

import (
	"context"
	"strings"
	"unicode/utf8"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/pkg/observability"
)

const (
	userRolePrefix         = "USER:"
	maxFallbackTopics      = 3
	minFallbackQuestionLen = 10
)

// Summarizer condenses a formatted conversation into a Summary.
type Summarizer struct {
	caller *modelCaller
}

// Summarize asks the model for a summary and falls back to FallbackSummary
// on any failure. It always returns a summary.
func (s *Summarizer) Summarize(ctx context.Context, conversation string) (Summary, Origin) {
	raw, err := s.caller.complete(ctx, observability.StageSummarize, summaryPrompt(conversation), ports.CompletionOptions{
		Temperature: 0.3,
		MaxTokens:   1000,
		Format:      "json",
	})
	if err == nil {
		parsed := ParseSummary(raw)
		if parsed.Valid() {
			return parsed.Value, OriginModel
		}
		err = parsed.Malformed
	}
	s.caller.fellBack(observability.StageSummarize, err)
	return FallbackSummary(conversation), OriginFallback
}

// FallbackSummary builds a summary from the user's own questions: lines that
// start with the user role tag, contain a question mark and are longer than
// ten characters once the tag is removed. The first three become the main
// topics; all of them are listed as questions.
func FallbackSummary(conversation string) Summary {
	questions := []string{}
	for _, line := range strings.Split(conversation, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, userRolePrefix) {
			continue
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, userRolePrefix))
		if strings.Contains(text, "?") && utf8.RuneCountInString(text) > minFallbackQuestionLen {
			questions = append(questions, text)
		}
	}

	topics := questions
	if len(topics) > maxFallbackTopics {
		topics = topics[:maxFallbackTopics]
	}
	return Summary{
		MainTopics:  append([]string{}, topics...),
		KeyInsights: []string{},
		Questions:   questions,
		Takeaways:   []string{},
	}
}
