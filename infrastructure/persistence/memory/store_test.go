package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/infrastructure/persistence/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return NewStore() })
}

func TestStore_InstancesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, b := NewStore(), NewStore()

	require.NoError(t, a.SaveImport(ctx, &entities.Import{ID: "imp", UserID: "u"}))

	_, err := b.GetImport(ctx, "imp")
	assert.Error(t, err)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	node := &entities.KnowledgeNode{ID: "n1", UserID: "u", Connections: []string{"a"}}
	require.NoError(t, store.SaveNode(ctx, node))

	node.Connections[0] = "mutated"
	got, err := store.GetNode(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Connections)
}

func TestStore_SetError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	store.SetError("SaveNode", boom)
	assert.ErrorIs(t, store.SaveNode(ctx, &entities.KnowledgeNode{ID: "n"}), boom)

	store.ClearErrors()
	assert.NoError(t, store.SaveNode(ctx, &entities.KnowledgeNode{ID: "n"}))
}
