package ports

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"mentraflow-backend/domain/core/entities"
)

// ImportJob is the unit of background work handed from the gateway to the
// import processor.
type ImportJob struct {
	// JobID identifies one delivery attempt for logs and event ids.
	JobID         string                  `json:"job_id"`
	ImportID      string                  `json:"import_id"`
	UserID        string                  `json:"user_id"`
	Platform      string                  `json:"platform"`
	Conversations []entities.Conversation `json:"conversations"`
	EnqueuedAt    time.Time               `json:"enqueued_at"`
}

// NewJobID returns a lexically sortable job id.
func NewJobID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// JobQueue accepts import jobs for asynchronous processing.
type JobQueue interface {
	Enqueue(ctx context.Context, job ImportJob) error
}

// ImportJobProcessor runs one import job to completion.
type ImportJobProcessor interface {
	Process(ctx context.Context, job ImportJob) error
}

// Clock supplies the current time so services can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
