package entities

import (
	"time"

	"mentraflow-backend/domain/core/valueobjects"
)

// OptionLabels are the labels of the four answer options, in display order.
var OptionLabels = []string{"A", "B", "C", "D"}

// IsOptionLabel reports whether label names one of the four options.
func IsOptionLabel(label string) bool {
	for _, l := range OptionLabels {
		if l == label {
			return true
		}
	}
	return false
}

// QuizQuestion is a multiple choice question with options keyed by label.
type QuizQuestion struct {
	Question      string            `json:"question" dynamodbav:"Question"`
	Options       map[string]string `json:"options" dynamodbav:"Options"`
	CorrectAnswer string            `json:"correct_answer" dynamodbav:"CorrectAnswer"`
	Explanation   string            `json:"explanation" dynamodbav:"Explanation"`
}

// Quiz is the question set generated for a single concept.
type Quiz struct {
	ID           string         `json:"id" dynamodbav:"QuizID"`
	ConceptID    string         `json:"concept_id" dynamodbav:"ConceptID"`
	UserID       string         `json:"user_id" dynamodbav:"UserID"`
	Questions    []QuizQuestion `json:"questions" dynamodbav:"Questions"`
	CreatedAt    time.Time      `json:"created_at" dynamodbav:"CreatedAt"`
	TimesTaken   int            `json:"times_taken" dynamodbav:"TimesTaken"`
	AverageScore float64        `json:"average_score" dynamodbav:"AverageScore"`
	LastTaken    *time.Time     `json:"last_taken,omitempty" dynamodbav:"LastTaken,omitempty"`
}

// NewQuiz creates a quiz for a concept.
func NewQuiz(conceptID, userID string, questions []QuizQuestion, now time.Time) (*Quiz, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return &Quiz{
		ID:        valueobjects.NewQuizID(),
		ConceptID: conceptID,
		UserID:    userID,
		Questions: questions,
		CreatedAt: now,
	}, nil
}

// RecordAttempt folds a score (0 to 100) into the running average.
func (q *Quiz) RecordAttempt(score float64, now time.Time) error {
	if score < 0 || score > 100 {
		return ErrInvalidScore
	}
	total := q.AverageScore*float64(q.TimesTaken) + score
	q.TimesTaken++
	q.AverageScore = total / float64(q.TimesTaken)
	q.LastTaken = &now
	return nil
}
