package services

import (
	"context"

	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	apperrors "mentraflow-backend/pkg/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	// statsScanLimit bounds the records read to compute user statistics.
	statsScanLimit = 1000
)

// ImportStatus is the pollable view of an import.
type ImportStatus struct {
	ImportID          string                `json:"import_id"`
	Status            entities.ImportStatus `json:"status"`
	Progress          int                   `json:"progress"`
	ConceptsExtracted int                   `json:"concepts_extracted"`
	QuizzesGenerated  int                   `json:"quizzes_generated"`
	NodesCreated      int                   `json:"nodes_created"`
	Error             string                `json:"error,omitempty"`
}

// UserStats summarizes a user's ingestion activity.
type UserStats struct {
	TotalImports     int            `json:"total_imports"`
	TotalConcepts    int            `json:"total_concepts"`
	TotalQuizzes     int            `json:"total_quizzes"`
	TotalNodes       int            `json:"total_nodes"`
	PendingRecalls   int            `json:"pending_recalls"`
	CompletedRecalls int            `json:"completed_recalls"`
	Platforms        map[string]int `json:"platforms"`
}

// QueryService serves the read side: import status and history, concepts,
// quizzes and statistics.
type QueryService struct {
	store  ports.Store
	clock  ports.Clock
	logger *zap.Logger
}

func NewQueryService(store ports.Store, clock ports.Clock, logger *zap.Logger) *QueryService {
	return &QueryService{store: store, clock: clock, logger: logger}
}

// NormalizeLimit applies the default and maximum page size.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (q *QueryService) ImportStatus(ctx context.Context, importID string) (*ImportStatus, error) {
	imp, err := q.store.GetImport(ctx, importID)
	if err != nil {
		return nil, err
	}
	return &ImportStatus{
		ImportID:          imp.ID,
		Status:            imp.Status,
		Progress:          imp.Progress(),
		ConceptsExtracted: imp.ConceptsExtracted,
		QuizzesGenerated:  imp.QuizzesGenerated,
		NodesCreated:      imp.NodesCreated,
		Error:             imp.Error,
	}, nil
}

// ImportHistory lists a user's imports, newest first.
func (q *QueryService) ImportHistory(ctx context.Context, userID string, limit int) ([]*entities.Import, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}
	imports, err := q.store.ListImports(ctx, userID, NormalizeLimit(limit))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list imports", err)
	}
	return nonNil(imports), nil
}

// Concepts lists a user's concepts, newest first.
func (q *QueryService) Concepts(ctx context.Context, userID string, limit int) ([]*entities.Concept, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}
	concepts, err := q.store.ListConcepts(ctx, userID, NormalizeLimit(limit))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list concepts", err)
	}
	return nonNil(concepts), nil
}

// QuizForConcept returns the quiz generated for a concept.
func (q *QueryService) QuizForConcept(ctx context.Context, conceptID string) (*entities.Quiz, error) {
	return q.store.GetQuizByConcept(ctx, conceptID)
}

// Quizzes lists a user's quizzes, newest first.
func (q *QueryService) Quizzes(ctx context.Context, userID string, limit int) ([]*entities.Quiz, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}
	quizzes, err := q.store.ListQuizzes(ctx, userID, NormalizeLimit(limit))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list quizzes", err)
	}
	return nonNil(quizzes), nil
}

// RecordQuizResult folds one attempt score into a quiz's usage counters.
func (q *QueryService) RecordQuizResult(ctx context.Context, quizID string, score float64) (*entities.Quiz, error) {
	quiz, err := q.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := quiz.RecordAttempt(score, q.clock.Now()); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := q.store.SaveQuiz(ctx, quiz); err != nil {
		return nil, apperrors.NewDatabaseError("save quiz", err)
	}
	return quiz, nil
}

// Stats computes per-user totals and per-platform import counts.
func (q *QueryService) Stats(ctx context.Context, userID string) (*UserStats, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}
	imports, err := q.store.ListImports(ctx, userID, statsScanLimit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list imports", err)
	}
	quizzes, err := q.store.ListQuizzes(ctx, userID, statsScanLimit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list quizzes", err)
	}
	pending, err := q.store.CountRecallSessions(ctx, userID, entities.SessionStatusPending)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count recall sessions", err)
	}
	completed, err := q.store.CountRecallSessions(ctx, userID, entities.SessionStatusCompleted)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count recall sessions", err)
	}

	stats := &UserStats{
		TotalImports:     len(imports),
		TotalQuizzes:     len(quizzes),
		PendingRecalls:   pending,
		CompletedRecalls: completed,
		Platforms:        make(map[string]int),
	}
	for _, imp := range imports {
		stats.TotalConcepts += imp.ConceptsExtracted
		stats.TotalNodes += imp.NodesCreated
		stats.Platforms[imp.Platform]++
	}
	return stats, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
