package services

import (
	"context"

	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	apperrors "mentraflow-backend/pkg/errors"
	"mentraflow-backend/pkg/observability"
)

// CompletionResult is the outcome of completing a recall session.
type CompletionResult struct {
	Session  *entities.RecallSession `json:"session"`
	FollowUp *entities.RecallSession `json:"next_session,omitempty"`
}

// SessionList is one page of a user's sessions.
type SessionList struct {
	Sessions       []*entities.RecallSession `json:"sessions"`
	CompletedCount int                       `json:"completed_count"`
}

// RecallScheduler owns the spaced-repetition lifecycle of recall sessions.
type RecallScheduler struct {
	sessions ports.RecallSessionRepository
	clock    ports.Clock
	metrics  *observability.Collector
	logger   *zap.Logger
}

func NewRecallScheduler(sessions ports.RecallSessionRepository, clock ports.Clock, metrics *observability.Collector, logger *zap.Logger) *RecallScheduler {
	return &RecallScheduler{
		sessions: sessions,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// ScheduleFirst creates the first review of a new node, due one day from now.
func (s *RecallScheduler) ScheduleFirst(ctx context.Context, userID, nodeID, conceptText string) (*entities.RecallSession, error) {
	session, err := entities.NewRecallSession(userID, nodeID, conceptText,
		entities.FirstIntervalDays, entities.FirstNextIntervalDays, s.clock.Now())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.sessions.SaveRecallSession(ctx, session); err != nil {
		return nil, apperrors.NewDatabaseError("save recall session", err)
	}
	return session, nil
}

// Complete closes a pending session. On success a follow-up session is
// scheduled at the session's next interval; on failure nothing follows and
// the node drops out of the review cycle.
func (s *RecallScheduler) Complete(ctx context.Context, sessionID string, success bool) (*CompletionResult, error) {
	session, err := s.sessions.GetRecallSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := session.Complete(now); err != nil {
		return nil, apperrors.NewConflictError("recall session is already " + string(session.Status))
	}
	if err := s.sessions.SaveRecallSession(ctx, session); err != nil {
		// Another request completed the session after it was read.
		if apperrors.IsConflict(err) {
			return nil, err
		}
		return nil, apperrors.NewDatabaseError("save recall session", err)
	}
	s.metrics.RecordRecallCompletion(success)

	result := &CompletionResult{Session: session}
	if !success {
		s.logger.Info("Recall failed, no follow-up scheduled",
			zap.String("session_id", session.ID),
			zap.String("node_id", session.NodeID))
		return result, nil
	}

	next, err := session.FollowUp(now)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build follow-up session").WithCause(err)
	}
	if err := s.sessions.SaveRecallSession(ctx, next); err != nil {
		return nil, apperrors.NewDatabaseError("save follow-up session", err)
	}
	result.FollowUp = next

	s.logger.Info("Scheduled follow-up recall session",
		zap.String("session_id", next.ID),
		zap.String("node_id", next.NodeID),
		zap.Int("interval_days", next.IntervalDays))
	return result, nil
}

// List returns a user's sessions by due date, optionally filtered by status,
// with the number of sessions the user has completed.
func (s *RecallScheduler) List(ctx context.Context, userID string, status entities.SessionStatus, limit int) (*SessionList, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}
	if status != "" && !status.IsValid() {
		return nil, apperrors.NewValidationError("unknown session status " + string(status))
	}

	sessions, err := s.sessions.ListRecallSessions(ctx, ports.RecallSessionFilter{UserID: userID, Status: status, Limit: limit})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list recall sessions", err)
	}
	completed, err := s.sessions.CountRecallSessions(ctx, userID, entities.SessionStatusCompleted)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count recall sessions", err)
	}
	if sessions == nil {
		sessions = []*entities.RecallSession{}
	}
	return &SessionList{Sessions: sessions, CompletedCount: completed}, nil
}
