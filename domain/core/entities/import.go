package entities

import (
	"time"
)

// ImportStatus is the lifecycle state of an ingestion job.
type ImportStatus string

const (
	ImportStatusQueued    ImportStatus = "queued"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusSucceeded ImportStatus = "succeeded"
	ImportStatusFailed    ImportStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusSucceeded || s == ImportStatusFailed
}

// Import records one batch ingestion job and its running totals.
type Import struct {
	ID                     string       `json:"id" dynamodbav:"ImportID"`
	UserID                 string       `json:"user_id" dynamodbav:"UserID"`
	Platform               string       `json:"platform" dynamodbav:"Platform"`
	ConversationCount      int          `json:"conversation_count" dynamodbav:"ConversationCount"`
	ConversationsProcessed int          `json:"conversations_processed" dynamodbav:"ConversationsProcessed"`
	ConceptsExtracted      int          `json:"concepts_extracted" dynamodbav:"ConceptsExtracted"`
	QuizzesGenerated       int          `json:"quizzes_generated" dynamodbav:"QuizzesGenerated"`
	NodesCreated           int          `json:"nodes_created" dynamodbav:"NodesCreated"`
	Status                 ImportStatus `json:"status" dynamodbav:"Status"`
	Error                  string       `json:"error,omitempty" dynamodbav:"Error,omitempty"`
	CreatedAt              time.Time    `json:"created_at" dynamodbav:"CreatedAt"`
	StartedAt              *time.Time   `json:"started_at,omitempty" dynamodbav:"StartedAt,omitempty"`
	CompletedAt            *time.Time   `json:"completed_at,omitempty" dynamodbav:"CompletedAt,omitempty"`
}

// NewImport creates a queued import.
func NewImport(id, userID, platform string, conversationCount int, now time.Time) (*Import, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return &Import{
		ID:                id,
		UserID:            userID,
		Platform:          platform,
		ConversationCount: conversationCount,
		Status:            ImportStatusQueued,
		CreatedAt:         now,
	}, nil
}

// Start moves a queued import to running. Restarting a running import is
// allowed so a redelivered job can resume.
func (i *Import) Start(now time.Time) error {
	if i.Status.IsTerminal() {
		return ErrImportAlreadyTerminated
	}
	i.Status = ImportStatusRunning
	if i.StartedAt == nil {
		i.StartedAt = &now
	}
	return nil
}

// RecordConversation adds the output of one processed conversation.
func (i *Import) RecordConversation(concepts, quizzes, nodes int) {
	i.ConversationsProcessed++
	i.ConceptsExtracted += concepts
	i.QuizzesGenerated += quizzes
	i.NodesCreated += nodes
}

// RecordError keeps the most recent failure message.
func (i *Import) RecordError(err error) {
	if err != nil {
		i.Error = err.Error()
	}
}

// Succeed finishes the import successfully.
func (i *Import) Succeed(now time.Time) error {
	return i.finish(ImportStatusSucceeded, now)
}

// Fail finishes the import with an error.
func (i *Import) Fail(err error, now time.Time) error {
	i.RecordError(err)
	return i.finish(ImportStatusFailed, now)
}

func (i *Import) finish(status ImportStatus, now time.Time) error {
	if i.Status.IsTerminal() {
		return ErrImportAlreadyTerminated
	}
	i.Status = status
	i.CompletedAt = &now
	return nil
}

// Progress is the share of conversations processed, 0 to 100.
func (i *Import) Progress() int {
	if i.Status == ImportStatusSucceeded {
		return 100
	}
	if i.ConversationCount <= 0 {
		return 0
	}
	p := i.ConversationsProcessed * 100 / i.ConversationCount
	if p > 100 {
		p = 100
	}
	return p
}
