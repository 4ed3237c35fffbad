package eventbridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
)

type fakeEventBridge struct {
	inputs  []*eventbridge.PutEventsInput
	outputs []*eventbridge.PutEventsOutput
	err     error
}

func (f *fakeEventBridge) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.outputs) == 0 {
		return &eventbridge.PutEventsOutput{}, nil
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

func testJob() ports.ImportJob {
	return ports.ImportJob{
		JobID:    "01HV0000000000000000000000",
		ImportID: "mcp_user-1_claude_1709283600000",
		UserID:   "user-1",
		Platform: "claude",
		Conversations: []entities.Conversation{{
			ID:       "conv-1",
			Title:    "Spaced repetition",
			Platform: "claude",
			Messages: []entities.Message{{Role: "user", Content: "What is spaced repetition?"}},
		}},
		EnqueuedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newTestQueue(api API) *Queue {
	q := NewQueue(api, "mentraflow-events", zap.NewNop())
	q.backoff = time.Millisecond
	return q
}

func TestEnqueue_PublishesJobAsEvent(t *testing.T) {
	// Arrange
	api := &fakeEventBridge{}
	job := testJob()

	// Act
	err := newTestQueue(api).Enqueue(context.Background(), job)

	// Assert
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)
	require.Len(t, api.inputs[0].Entries, 1)
	entry := api.inputs[0].Entries[0]
	assert.Equal(t, "mentraflow-events", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, DetailTypeImportJob, aws.ToString(entry.DetailType))

	decoded, err := DecodeJob([]byte(aws.ToString(entry.Detail)))
	require.NoError(t, err)
	assert.Equal(t, job, decoded)
}

func TestEnqueue_RetriesFailedEntries(t *testing.T) {
	api := &fakeEventBridge{outputs: []*eventbridge.PutEventsOutput{{
		FailedEntryCount: 1,
		Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("ThrottlingException"), ErrorMessage: aws.String("slow down")}},
	}}}

	err := newTestQueue(api).Enqueue(context.Background(), testJob())

	require.NoError(t, err)
	assert.Len(t, api.inputs, 2)
}

func TestEnqueue_GivesUpAfterMaxAttempts(t *testing.T) {
	api := &fakeEventBridge{err: errors.New("service unavailable")}

	err := newTestQueue(api).Enqueue(context.Background(), testJob())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, api.inputs, maxAttempts)
}

func TestEnqueue_RejectsOversizedJob(t *testing.T) {
	api := &fakeEventBridge{}
	job := testJob()
	job.Conversations[0].Messages[0].Content = strings.Repeat("x", maxEntryBytes)

	err := newTestQueue(api).Enqueue(context.Background(), job)

	assert.ErrorIs(t, err, ErrJobTooLarge)
	assert.Empty(t, api.inputs)
}

func TestDecodeJob_Invalid(t *testing.T) {
	_, err := DecodeJob([]byte(`{not json`))
	assert.Error(t, err)

	_, err = DecodeJob([]byte(`{"job_id":"x"}`))
	assert.Error(t, err)
}
