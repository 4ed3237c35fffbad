package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/infrastructure/persistence/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "mentraflow.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return newTestStore(t) })
}

func TestInMemoryDatabase(t *testing.T) {
	s, err := Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Ping(context.Background()))
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "mentraflow.db")
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	imp, err := entities.NewImport("mcp_user-1_claude_1", "user-1", "claude", 2, created)
	require.NoError(t, err)
	require.NoError(t, s.SaveImport(ctx, imp))
	require.NoError(t, s.Close())

	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetImport(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, imp, got)
}

func TestSessionStatusChangeMovesBetweenFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	session, err := entities.NewRecallSession("user-1", "node-1", "Concept", 1, 3, now)
	require.NoError(t, err)
	require.NoError(t, s.SaveRecallSession(ctx, session))
	require.NoError(t, session.Complete(now.Add(time.Hour)))
	require.NoError(t, s.SaveRecallSession(ctx, session))

	pending, err := s.CountRecallSessions(ctx, "user-1", entities.SessionStatusPending)
	require.NoError(t, err)
	completed, err := s.CountRecallSessions(ctx, "user-1", entities.SessionStatusCompleted)
	require.NoError(t, err)
	all, err := s.CountRecallSessions(ctx, "user-1", "")
	require.NoError(t, err)

	assert.Zero(t, pending)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, all)
}
