package extraction

import (
	"context"
	"fmt"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/pkg/observability"
)

const maxFallbackQuestions = 3

// QuizGenerator writes multiple choice questions for a list of concepts.
type QuizGenerator struct {
	caller *modelCaller
}

// Generate returns between one and five questions for concepts. With no
// concepts it returns nothing.
func (g *QuizGenerator) Generate(ctx context.Context, concepts []string) ([]entities.QuizQuestion, Origin) {
	if len(concepts) == 0 {
		return nil, OriginFallback
	}
	raw, err := g.caller.complete(ctx, observability.StageQuiz, quizPrompt(concepts), ports.CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   1500,
		Format:      "json",
	})
	if err == nil {
		parsed := ParseQuiz(raw)
		if parsed.Valid() {
			return parsed.Value, OriginModel
		}
		err = parsed.Malformed
	}
	g.caller.fellBack(observability.StageQuiz, err)
	return FallbackQuiz(concepts), OriginFallback
}

// FallbackQuiz writes one placeholder question for each of the first three
// concepts. The correct answer is always A.
func FallbackQuiz(concepts []string) []entities.QuizQuestion {
	n := len(concepts)
	if n > maxFallbackQuestions {
		n = maxFallbackQuestions
	}
	questions := make([]entities.QuizQuestion, 0, n)
	for _, concept := range concepts[:n] {
		options := make(map[string]string, len(entities.OptionLabels))
		for _, label := range entities.OptionLabels {
			options[label] = "Option " + label
		}
		questions = append(questions, entities.QuizQuestion{
			Question:      fmt.Sprintf("What did you learn about: %s?", concept),
			Options:       options,
			CorrectAnswer: entities.OptionLabels[0],
			Explanation:   fmt.Sprintf("This question is about: %s", concept),
		})
	}
	return questions
}

// AssignQuestions groups questions by concept: question i belongs to concept
// i modulo the number of concepts. Concepts beyond the question count get no
// questions, so they get no quiz.
func AssignQuestions(concepts []string, questions []entities.QuizQuestion) [][]entities.QuizQuestion {
	groups := make([][]entities.QuizQuestion, len(concepts))
	if len(concepts) == 0 {
		return groups
	}
	for i, q := range questions {
		idx := i % len(concepts)
		groups[idx] = append(groups[idx], q)
	}
	return groups
}
