package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mentraflow-backend/application/extraction"
	"mentraflow-backend/application/ports"
	"mentraflow-backend/application/ports/mocks"
	"mentraflow-backend/domain/core/entities"
	domainservices "mentraflow-backend/domain/services"
)

func newProcessor(f *fixture, model ports.LanguageModel) *ImportProcessor {
	pipeline := extraction.NewPipeline(
		model,
		domainservices.NewConversationFormatter(domainservices.DefaultFormatPolicy()),
		time.Second,
		f.metrics,
		zap.NewNop(),
	)
	return NewImportProcessor(f.store, pipeline, f.integration, f.clock, f.metrics, zap.NewNop())
}

func offlineModel() *mocks.MockLanguageModel {
	model := new(mocks.MockLanguageModel)
	model.On("IsAvailable").Return(false)
	return model
}

func submit(t *testing.T, f *fixture, convs []entities.Conversation) ports.ImportJob {
	t.Helper()
	var job ports.ImportJob
	queue := new(mocks.MockJobQueue)
	queue.On("Enqueue", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { job = args.Get(1).(ports.ImportJob) }).
		Return(nil)
	gateway := NewIngestionGateway(f.store, queue, f.clock, 10, f.metrics, zap.NewNop())
	_, err := gateway.Submit(context.Background(), SubmitExportRequest{UserID: "user-1", Conversations: convs})
	require.NoError(t, err)
	return job
}

func TestImportProcessor_FallbackRunProducesFullGraph(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	job := submit(t, f, makeConversations(2))
	processor := newProcessor(f, offlineModel())

	// Act
	err := processor.Process(ctx, job)

	// Assert
	require.NoError(t, err)
	imp, err := f.store.GetImport(ctx, job.ImportID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusSucceeded, imp.Status)
	assert.Equal(t, 100, imp.Progress())
	assert.Equal(t, 2, imp.ConversationsProcessed)
	assert.Equal(t, 2, imp.ConceptsExtracted)
	assert.Equal(t, 2, imp.QuizzesGenerated)
	assert.Equal(t, 2, imp.NodesCreated)
	assert.Empty(t, imp.Error)
	require.NotNil(t, imp.CompletedAt)

	concepts, err := f.store.ListConcepts(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	for _, c := range concepts {
		assert.True(t, c.QuizGenerated)
		assert.True(t, c.NodeCreated)
		assert.NotEmpty(t, c.NodeID)
		assert.Equal(t, job.ImportID, c.ImportID)
		assert.Contains(t, c.Summary, "What is spaced repetition?")

		quiz, err := f.store.GetQuizByConcept(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, quiz.Questions, 1)
		assert.Equal(t, "A", quiz.Questions[0].CorrectAnswer)

		node, err := f.store.GetNode(ctx, c.NodeID)
		require.NoError(t, err)
		assert.Equal(t, quiz.ID, node.QuizID)
	}

	// Both fallback concepts share "conversation", so they link to each other.
	nodes, err := f.store.ListNodes(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, []string{nodes[1].ID}, nodes[0].Connections)
	assert.Equal(t, []string{nodes[0].ID}, nodes[1].Connections)

	sessions, err := f.store.ListRecallSessions(ctx, recallFilter("user-1", entities.SessionStatusPending))
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestImportProcessor_OnlyQueuedConversationsAreProcessed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	job := submit(t, f, makeConversations(13))

	require.NoError(t, newProcessor(f, offlineModel()).Process(ctx, job))

	concepts, err := f.store.ListConcepts(ctx, "user-1", 100)
	require.NoError(t, err)
	assert.Len(t, concepts, 10)
	for _, c := range concepts {
		assert.NotContains(t, []string{"conv-11", "conv-12", "conv-13"}, c.ConversationID)
	}
}

func TestImportProcessor_PartialIntegrationFailureSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	job := submit(t, f, makeConversations(1))
	f.store.SetError("SaveRecallSession", errors.New("throttled"))

	err := newProcessor(f, offlineModel()).Process(ctx, job)

	require.NoError(t, err)
	imp, err := f.store.GetImport(ctx, job.ImportID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusSucceeded, imp.Status)
	assert.Equal(t, 1, imp.NodesCreated)
	assert.Contains(t, imp.Error, "schedule_recall")
}

func TestImportProcessor_FailsWhenNothingStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	job := submit(t, f, makeConversations(2))
	f.store.SetError("SaveConcept", errors.New("store down"))

	err := newProcessor(f, offlineModel()).Process(ctx, job)

	require.Error(t, err)
	imp, getErr := f.store.GetImport(ctx, job.ImportID)
	require.NoError(t, getErr)
	assert.Equal(t, entities.ImportStatusFailed, imp.Status)
	assert.Contains(t, imp.Error, "no conversation could be processed")
}

func TestImportProcessor_SkipsFinishedImport(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	job := submit(t, f, makeConversations(1))
	processor := newProcessor(f, offlineModel())
	require.NoError(t, processor.Process(ctx, job))

	require.NoError(t, processor.Process(ctx, job))

	concepts, err := f.store.ListConcepts(ctx, "user-1", 100)
	require.NoError(t, err)
	assert.Len(t, concepts, 1, "redelivered job did no work")
}

func TestImportProcessor_CreatesMissingImportRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	job := ports.ImportJob{
		JobID:         "job-1",
		ImportID:      "mcp_user-1_claude_42",
		UserID:        "user-1",
		Platform:      "claude",
		Conversations: makeConversations(1),
	}

	require.NoError(t, newProcessor(f, offlineModel()).Process(ctx, job))

	imp, err := f.store.GetImport(ctx, job.ImportID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusSucceeded, imp.Status)
	assert.Equal(t, 1, imp.ConversationCount)
}
