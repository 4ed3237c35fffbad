package entities

import (
	"strings"
	"time"

	"mentraflow-backend/domain/core/valueobjects"
)

// Concept is one atomic learning point extracted from a conversation.
type Concept struct {
	ID             string    `json:"id" dynamodbav:"ConceptID"`
	ImportID       string    `json:"import_id" dynamodbav:"ImportID"`
	UserID         string    `json:"user_id" dynamodbav:"UserID"`
	ConversationID string    `json:"conversation_id" dynamodbav:"ConversationID"`
	Platform       string    `json:"platform" dynamodbav:"Platform"`
	Text           string    `json:"concept_text" dynamodbav:"ConceptText"`
	Summary        string    `json:"summary" dynamodbav:"Summary"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"CreatedAt"`
	QuizGenerated  bool      `json:"quiz_generated" dynamodbav:"QuizGenerated"`
	NodeCreated    bool      `json:"node_created" dynamodbav:"NodeCreated"`
	NodeID         string    `json:"node_id,omitempty" dynamodbav:"NodeID,omitempty"`
}

// ConceptSource identifies where a concept came from.
type ConceptSource struct {
	ImportID       string
	UserID         string
	ConversationID string
	Platform       string
}

// NewConcept validates the text and assigns a fresh id. summary is the
// serialized summary of the source conversation.
func NewConcept(src ConceptSource, text, summary string, now time.Time) (*Concept, error) {
	if src.UserID == "" {
		return nil, ErrEmptyUserID
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyConceptText
	}
	return &Concept{
		ID:             valueobjects.NewConceptID(),
		ImportID:       src.ImportID,
		UserID:         src.UserID,
		ConversationID: src.ConversationID,
		Platform:       src.Platform,
		Text:           text,
		Summary:        summary,
		CreatedAt:      now,
	}, nil
}

func (c *Concept) MarkQuizGenerated() {
	c.QuizGenerated = true
}

// LinkNode records the knowledge node built from this concept.
func (c *Concept) LinkNode(nodeID string) {
	c.NodeCreated = true
	c.NodeID = nodeID
}
