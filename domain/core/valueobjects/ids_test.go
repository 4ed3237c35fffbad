package valueobjects

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGeneratedIDs(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
		length int
	}{
		{"concept", NewConceptID, "concept_", len("concept_") + 12},
		{"quiz", NewQuizID, "quiz_", len("quiz_") + 12},
		{"node", NewNodeID, "mcp_", len("mcp_") + 8},
		{"recall session", NewRecallSessionID, "recall_", len("recall_") + 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < 200; i++ {
				id := tt.gen()
				assert.True(t, strings.HasPrefix(id, tt.prefix))
				assert.Len(t, id, tt.length)
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
			}
		})
	}
}

func TestNewImportID(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	id := NewImportID("user-1", "claude", at)

	assert.Equal(t, "mcp_user-1_claude_1700000000123", id)
	assert.Equal(t, id, NewImportID("user-1", "claude", at), "same inputs give the same id")
	assert.NotEqual(t, id, NewImportID("user-1", "claude", at.Add(time.Millisecond)))
}

func TestSummaryIDFor(t *testing.T) {
	assert.Equal(t, "summary_concept_abc", SummaryIDFor("concept_abc"))
}
