package entities

import (
	"time"
	"unicode/utf8"

	"mentraflow-backend/domain/core/valueobjects"
)

// SessionStatus is the state of a recall session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusSkipped   SessionStatus = "skipped"
)

// IsValid reports whether s is a known status.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusPending, SessionStatusCompleted, SessionStatusSkipped:
		return true
	}
	return false
}

const (
	SessionTypeQuiz = "quiz"

	FirstIntervalDays     = 1
	FirstNextIntervalDays = 3

	maxSessionSnippetLength = 100
)

// RecallSession is one scheduled spaced-repetition review of a node.
type RecallSession struct {
	ID               string        `json:"id" dynamodbav:"SessionID"`
	UserID           string        `json:"user_id" dynamodbav:"UserID"`
	NodeID           string        `json:"node_id" dynamodbav:"NodeID"`
	ConceptText      string        `json:"concept_text" dynamodbav:"ConceptText"`
	Type             string        `json:"session_type" dynamodbav:"SessionType"`
	Status           SessionStatus `json:"status" dynamodbav:"Status"`
	DueDate          time.Time     `json:"due_date" dynamodbav:"DueDate"`
	IntervalDays     int           `json:"interval_days" dynamodbav:"IntervalDays"`
	NextIntervalDays int           `json:"next_interval_days" dynamodbav:"NextIntervalDays"`
	Attempts         int           `json:"attempts" dynamodbav:"Attempts"`
	LastAttempt      *time.Time    `json:"last_attempt,omitempty" dynamodbav:"LastAttempt,omitempty"`
	CreatedAt        time.Time     `json:"created_at" dynamodbav:"CreatedAt"`
}

// NewRecallSession creates a pending session due intervalDays after now.
func NewRecallSession(userID, nodeID, conceptText string, intervalDays, nextIntervalDays int, now time.Time) (*RecallSession, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if utf8.RuneCountInString(conceptText) > maxSessionSnippetLength {
		conceptText = string([]rune(conceptText)[:maxSessionSnippetLength])
	}
	return &RecallSession{
		ID:               valueobjects.NewRecallSessionID(),
		UserID:           userID,
		NodeID:           nodeID,
		ConceptText:      conceptText,
		Type:             SessionTypeQuiz,
		Status:           SessionStatusPending,
		DueDate:          now.AddDate(0, 0, intervalDays),
		IntervalDays:     intervalDays,
		NextIntervalDays: nextIntervalDays,
		CreatedAt:        now,
	}, nil
}

// Complete records the attempt and closes the session. A completed session
// never returns to pending.
func (s *RecallSession) Complete(now time.Time) error {
	if s.Status != SessionStatusPending {
		return ErrSessionNotPending
	}
	s.Attempts++
	s.Status = SessionStatusCompleted
	s.LastAttempt = &now
	return nil
}

// FollowUp builds the session that follows a successful review: its interval
// is this session's next interval and its own next interval doubles that.
func (s *RecallSession) FollowUp(now time.Time) (*RecallSession, error) {
	interval := s.NextIntervalDays
	return NewRecallSession(s.UserID, s.NodeID, s.ConceptText, interval, interval*2, now)
}
