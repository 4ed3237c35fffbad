package entities

import (
	"strings"
	"time"
	"unicode/utf8"

	"mentraflow-backend/domain/core/valueobjects"
)

// NodeState is the memory strength bucket of a knowledge node.
type NodeState string

const (
	NodeStateNew    NodeState = "new"
	NodeStateFading NodeState = "fading"
	NodeStateMedium NodeState = "medium"
	NodeStateHigh   NodeState = "high"
)

const (
	// MaxNodeTitleLength bounds the title derived from concept text.
	MaxNodeTitleLength = 100
	// MaxAutoConnections caps the links a new node receives when it is
	// first linked into the graph.
	MaxAutoConnections = 5
)

// NodeSource records the provenance of a node.
type NodeSource struct {
	Platform       string `json:"platform" dynamodbav:"Platform"`
	ConceptID      string `json:"concept_id" dynamodbav:"ConceptID"`
	ConversationID string `json:"conversation_id" dynamodbav:"ConversationID"`
}

// KnowledgeNode is a vertex of a user's knowledge graph.
type KnowledgeNode struct {
	ID          string     `json:"id" dynamodbav:"NodeID"`
	UserID      string     `json:"user_id" dynamodbav:"UserID"`
	Title       string     `json:"title" dynamodbav:"Title"`
	State       NodeState  `json:"state" dynamodbav:"State"`
	Score       int        `json:"score" dynamodbav:"Score"`
	Connections []string   `json:"connections" dynamodbav:"Connections"`
	Source      NodeSource `json:"source" dynamodbav:"Source"`
	QuizID      string     `json:"quiz_id,omitempty" dynamodbav:"QuizID,omitempty"`
	SummaryID   string     `json:"summary_id,omitempty" dynamodbav:"SummaryID,omitempty"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"CreatedAt"`
	UpdatedAt   time.Time  `json:"updated_at" dynamodbav:"UpdatedAt"`
}

// NewNodeFromConcept builds an unlinked node titled after the concept text.
func NewNodeFromConcept(concept *Concept, quizID string, now time.Time) (*KnowledgeNode, error) {
	if concept.UserID == "" {
		return nil, ErrEmptyUserID
	}
	title := TruncateTitle(concept.Text)
	if title == "" {
		return nil, ErrEmptyConceptText
	}
	return &KnowledgeNode{
		ID:          valueobjects.NewNodeID(),
		UserID:      concept.UserID,
		Title:       title,
		State:       NodeStateNew,
		Score:       0,
		Connections: []string{},
		Source: NodeSource{
			Platform:       concept.Platform,
			ConceptID:      concept.ID,
			ConversationID: concept.ConversationID,
		},
		QuizID:    quizID,
		SummaryID: valueobjects.SummaryIDFor(concept.ID),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TruncateTitle trims text to MaxNodeTitleLength characters.
func TruncateTitle(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= MaxNodeTitleLength {
		return text
	}
	return string([]rune(text)[:MaxNodeTitleLength])
}

// HasConnection reports whether id is already linked.
func (n *KnowledgeNode) HasConnection(id string) bool {
	for _, c := range n.Connections {
		if c == id {
			return true
		}
	}
	return false
}

// AddConnection links id to this node. It returns false for self links and
// duplicates. No cap is applied here.
func (n *KnowledgeNode) AddConnection(id string, now time.Time) bool {
	if id == "" || id == n.ID || n.HasConnection(id) {
		return false
	}
	n.Connections = append(n.Connections, id)
	n.UpdatedAt = now
	return true
}
