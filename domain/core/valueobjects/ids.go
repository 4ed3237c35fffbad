package valueobjects

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identifier prefixes. Records reference each other by these opaque strings,
// so they must stay stable across storage engines.
const (
	ConceptIDPrefix       = "concept_"
	QuizIDPrefix          = "quiz_"
	NodeIDPrefix          = "mcp_"
	RecallSessionIDPrefix = "recall_"
	SummaryIDPrefix       = "summary_"
)

// randomHex returns n hex characters taken from a fresh random UUID.
func randomHex(n int) string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:n]
}

func NewConceptID() string       { return ConceptIDPrefix + randomHex(12) }
func NewQuizID() string          { return QuizIDPrefix + randomHex(12) }
func NewNodeID() string          { return NodeIDPrefix + randomHex(8) }
func NewRecallSessionID() string { return RecallSessionIDPrefix + randomHex(12) }

// SummaryIDFor derives the summary id a node records for its concept.
func SummaryIDFor(conceptID string) string {
	return SummaryIDPrefix + conceptID
}

// NewImportID builds the import id from the submitting user, the source
// platform and the submission time in milliseconds.
func NewImportID(userID, platform string, at time.Time) string {
	return fmt.Sprintf("mcp_%s_%s_%d", userID, platform, at.UnixMilli())
}
