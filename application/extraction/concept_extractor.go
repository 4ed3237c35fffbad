package extraction

import (
	"context"
	"fmt"
	"strings"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/pkg/observability"
)

// DefaultSubject names the subject area when nothing better is known.
const DefaultSubject = "AI-assisted learning"

// ConceptExtractor turns a summary into quiz-ready concept statements.
type ConceptExtractor struct {
	caller *modelCaller
}

// Extract returns between one and five concepts. subject names the
// conversation's subject area and is only used by the fallback and the
// prompt.
func (e *ConceptExtractor) Extract(ctx context.Context, summary Summary, subject string) ([]string, Origin) {
	subject = Subject(subject, summary)
	raw, err := e.caller.complete(ctx, observability.StageConcepts, conceptsPrompt(summary, subject), ports.CompletionOptions{
		Temperature: 0.5,
		MaxTokens:   300,
		Format:      "json",
	})
	if err == nil {
		parsed := ParseConcepts(raw)
		if parsed.Valid() {
			return parsed.Value, OriginModel
		}
		err = parsed.Malformed
	}
	e.caller.fellBack(observability.StageConcepts, err)
	return FallbackConcepts(subject), OriginFallback
}

// FallbackConcepts returns a single generic concept about subject.
func FallbackConcepts(subject string) []string {
	return []string{fmt.Sprintf("Key ideas from a conversation about %s", subject)}
}

// Subject picks the subject area: the given title, else the first main
// topic, else DefaultSubject.
func Subject(title string, summary Summary) string {
	if s := strings.TrimSpace(title); s != "" {
		return s
	}
	if len(summary.MainTopics) > 0 {
		return summary.MainTopics[0]
	}
	return DefaultSubject
}
