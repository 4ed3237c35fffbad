// Package storetest holds the conformance tests every ports.Store adapter
// must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/domain/core/valueobjects"
	apperrors "mentraflow-backend/pkg/errors"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)

// Run exercises store against the repository contracts. newStore must
// return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("import round trip and history order", func(t *testing.T) { testImports(t, newStore(t)) })
	t.Run("concept round trip", func(t *testing.T) { testConcepts(t, newStore(t)) })
	t.Run("quiz round trip", func(t *testing.T) { testQuizzes(t, newStore(t)) })
	t.Run("node round trip and creation order", func(t *testing.T) { testNodes(t, newStore(t)) })
	t.Run("recall sessions filter and order", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("missing records are not found", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

func testImports(t *testing.T, store ports.Store) {
	ctx := context.Background()
	started := base.Add(time.Second)
	completed := base.Add(time.Minute)

	first := &entities.Import{
		ID: valueobjects.NewImportID("user-1", "claude", base), UserID: "user-1", Platform: "claude",
		ConversationCount: 3, ConversationsProcessed: 3, ConceptsExtracted: 9, QuizzesGenerated: 9, NodesCreated: 8,
		Status: entities.ImportStatusSucceeded, Error: "integration failed for one concept",
		CreatedAt: base, StartedAt: &started, CompletedAt: &completed,
	}
	second := &entities.Import{
		ID: valueobjects.NewImportID("user-1", "perplexity", base.Add(time.Hour)), UserID: "user-1", Platform: "perplexity",
		ConversationCount: 1, Status: entities.ImportStatusQueued, CreatedAt: base.Add(time.Hour),
	}
	other := &entities.Import{ID: "mcp_user-2_claude_1", UserID: "user-2", Platform: "claude", Status: entities.ImportStatusQueued, CreatedAt: base}

	for _, imp := range []*entities.Import{first, second, other} {
		require.NoError(t, store.SaveImport(ctx, imp))
	}

	got, err := store.GetImport(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	history, err := store.ListImports(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")
	assert.Equal(t, first.ID, history[1].ID)

	limited, err := store.ListImports(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Saving again overwrites.
	second.Status = entities.ImportStatusRunning
	second.StartedAt = &started
	require.NoError(t, store.SaveImport(ctx, second))
	got, err = store.GetImport(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func testConcepts(t *testing.T, store ports.Store) {
	ctx := context.Background()
	src := entities.ConceptSource{ImportID: "imp-1", UserID: "user-1", ConversationID: "conv-1", Platform: "claude"}

	ids := make(map[string]bool)
	var created []*entities.Concept
	for i := 0; i < 3; i++ {
		c, err := entities.NewConcept(src, "Spaced repetition intervals expand over time", `{"main_topics":["x"]}`, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NotEmpty(t, c.ID)
		assert.False(t, ids[c.ID], "concept ids must be unique")
		ids[c.ID] = true
		created = append(created, c)
	}
	created[0].MarkQuizGenerated()
	created[0].LinkNode("mcp_12345678")

	for _, c := range created {
		require.NoError(t, store.SaveConcept(ctx, c))
	}

	got, err := store.GetConcept(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0], got)

	list, err := store.ListConcepts(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created[2].ID, list[0].ID)
	assert.Equal(t, created[1].ID, list[1].ID)
}

func testQuizzes(t *testing.T, store ports.Store) {
	ctx := context.Background()
	questions := []entities.QuizQuestion{{
		Question:      "What happens to review intervals?",
		Options:       map[string]string{"A": "They expand", "B": "They shrink", "C": "They stay", "D": "They reset"},
		CorrectAnswer: "A",
		Explanation:   "Intervals expand after success.",
	}}

	older, err := entities.NewQuiz("concept_a", "user-1", questions, base)
	require.NoError(t, err)
	newer, err := entities.NewQuiz("concept_b", "user-1", questions, base.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, older.ID, newer.ID)
	require.NoError(t, older.RecordAttempt(80, base.Add(2*time.Hour)))

	require.NoError(t, store.SaveQuiz(ctx, older))
	require.NoError(t, store.SaveQuiz(ctx, newer))

	got, err := store.GetQuiz(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older, got)

	byConcept, err := store.GetQuizByConcept(ctx, "concept_b")
	require.NoError(t, err)
	assert.Equal(t, newer, byConcept)

	list, err := store.ListQuizzes(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
}

func testNodes(t *testing.T, store ports.Store) {
	ctx := context.Background()

	var created []*entities.KnowledgeNode
	for i, title := range []string{"Python decorators modify behavior", "Understanding python decorator patterns", "Sourdough hydration"} {
		concept, err := entities.NewConcept(entities.ConceptSource{UserID: "user-1", ConversationID: "conv-1", Platform: "claude"}, title, "{}", base)
		require.NoError(t, err)
		node, err := entities.NewNodeFromConcept(concept, "quiz_x", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		created = append(created, node)
	}
	created[0].AddConnection(created[1].ID, base.Add(time.Minute))
	created[1].AddConnection(created[0].ID, base.Add(time.Minute))

	for _, n := range created {
		require.NoError(t, store.SaveNode(ctx, n))
	}

	got, err := store.GetNode(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0], got)

	got, err = store.GetNode(ctx, created[2].ID)
	require.NoError(t, err)
	assert.Equal(t, created[2], got, "empty connection sets survive")

	list, err := store.ListNodes(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := range created {
		assert.Equal(t, created[i].ID, list[i].ID, "creation order")
	}

	limited, err := store.ListNodes(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func testSessions(t *testing.T, store ports.Store) {
	ctx := context.Background()

	late, err := entities.NewRecallSession("user-1", "node-1", "Concept one", 3, 6, base)
	require.NoError(t, err)
	early, err := entities.NewRecallSession("user-1", "node-2", "Concept two", 1, 3, base)
	require.NoError(t, err)
	done, err := entities.NewRecallSession("user-1", "node-3", "Concept three", 1, 3, base.Add(-48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, done.Complete(base))
	foreign, err := entities.NewRecallSession("user-2", "node-4", "Concept four", 1, 3, base)
	require.NoError(t, err)

	for _, s := range []*entities.RecallSession{late, early, done, foreign} {
		require.NoError(t, store.SaveRecallSession(ctx, s))
	}

	got, err := store.GetRecallSession(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, done, got)

	all, err := store.ListRecallSessions(ctx, ports.RecallSessionFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{done.ID, early.ID, late.ID}, []string{all[0].ID, all[1].ID, all[2].ID}, "due date ascending")

	pending, err := store.ListRecallSessions(ctx, ports.RecallSessionFilter{UserID: "user-1", Status: entities.SessionStatusPending, Limit: 1})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, early.ID, pending[0].ID)

	completed, err := store.CountRecallSessions(ctx, "user-1", entities.SessionStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	// Pending sessions can be rewritten; completed ones are final.
	require.NoError(t, store.SaveRecallSession(ctx, early))
	stale := *done
	stale.Status = entities.SessionStatusPending
	err = store.SaveRecallSession(ctx, &stale)
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
	got, err = store.GetRecallSession(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusCompleted, got.Status)
}

func testNotFound(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.GetImport(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.GetConcept(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.GetQuiz(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.GetQuizByConcept(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.GetNode(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.GetRecallSession(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	list, err := store.ListImports(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
