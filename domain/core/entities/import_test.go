package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportLifecycle(t *testing.T) {
	imp, err := NewImport("mcp_u_claude_1", "u", "claude", 4, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, ImportStatusQueued, imp.Status)
	assert.Equal(t, 0, imp.Progress())

	require.NoError(t, imp.Start(fixedNow.Add(time.Second)))
	assert.Equal(t, ImportStatusRunning, imp.Status)

	imp.RecordConversation(3, 3, 2)
	assert.Equal(t, 25, imp.Progress())
	assert.Equal(t, 3, imp.ConceptsExtracted)
	assert.Equal(t, 2, imp.NodesCreated)

	require.NoError(t, imp.Succeed(fixedNow.Add(time.Minute)))
	assert.Equal(t, 100, imp.Progress())
	require.NotNil(t, imp.CompletedAt)

	assert.ErrorIs(t, imp.Start(fixedNow), ErrImportAlreadyTerminated)
	assert.ErrorIs(t, imp.Fail(errors.New("late"), fixedNow), ErrImportAlreadyTerminated)
}

func TestImportFail(t *testing.T) {
	imp, err := NewImport("id", "u", "claude", 1, fixedNow)
	require.NoError(t, err)

	require.NoError(t, imp.Fail(errors.New("store unavailable"), fixedNow))

	assert.Equal(t, ImportStatusFailed, imp.Status)
	assert.Equal(t, "store unavailable", imp.Error)
	assert.True(t, imp.Status.IsTerminal())
}

func TestQuizRecordAttempt(t *testing.T) {
	quiz, err := NewQuiz("concept_1", "u", nil, fixedNow)
	require.NoError(t, err)

	require.NoError(t, quiz.RecordAttempt(100, fixedNow))
	require.NoError(t, quiz.RecordAttempt(50, fixedNow.Add(time.Hour)))

	assert.Equal(t, 2, quiz.TimesTaken)
	assert.InDelta(t, 75.0, quiz.AverageScore, 0.0001)
	assert.Equal(t, fixedNow.Add(time.Hour), *quiz.LastTaken)
	assert.ErrorIs(t, quiz.RecordAttempt(101, fixedNow), ErrInvalidScore)
}
