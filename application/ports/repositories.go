package ports

import (
	"context"

	"mentraflow-backend/domain/core/entities"
)

// ImportRepository persists ingestion jobs.
type ImportRepository interface {
	SaveImport(ctx context.Context, imp *entities.Import) error
	// GetImport returns a not-found AppError when the import does not exist.
	GetImport(ctx context.Context, importID string) (*entities.Import, error)
	// ListImports returns a user's imports, newest first.
	ListImports(ctx context.Context, userID string, limit int) ([]*entities.Import, error)
}

// ConceptRepository persists extracted concepts.
type ConceptRepository interface {
	SaveConcept(ctx context.Context, concept *entities.Concept) error
	GetConcept(ctx context.Context, conceptID string) (*entities.Concept, error)
	// ListConcepts returns a user's concepts, newest first.
	ListConcepts(ctx context.Context, userID string, limit int) ([]*entities.Concept, error)
}

// QuizRepository persists generated quizzes.
type QuizRepository interface {
	SaveQuiz(ctx context.Context, quiz *entities.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (*entities.Quiz, error)
	GetQuizByConcept(ctx context.Context, conceptID string) (*entities.Quiz, error)
	// ListQuizzes returns a user's quizzes, newest first.
	ListQuizzes(ctx context.Context, userID string, limit int) ([]*entities.Quiz, error)
}

// NodeRepository persists knowledge graph nodes.
type NodeRepository interface {
	SaveNode(ctx context.Context, node *entities.KnowledgeNode) error
	GetNode(ctx context.Context, nodeID string) (*entities.KnowledgeNode, error)
	// ListNodes returns a user's nodes oldest first, so callers see them in
	// the order they joined the graph.
	ListNodes(ctx context.Context, userID string, limit int) ([]*entities.KnowledgeNode, error)
}

// RecallSessionFilter narrows a session listing. An empty Status matches all.
type RecallSessionFilter struct {
	UserID string
	Status entities.SessionStatus
	Limit  int
}

// RecallSessionRepository persists recall sessions.
type RecallSessionRepository interface {
	// SaveRecallSession fails with a conflict error when the stored session
	// is already completed.
	SaveRecallSession(ctx context.Context, session *entities.RecallSession) error
	GetRecallSession(ctx context.Context, sessionID string) (*entities.RecallSession, error)
	// ListRecallSessions returns matching sessions ordered by due date ascending.
	ListRecallSessions(ctx context.Context, filter RecallSessionFilter) ([]*entities.RecallSession, error)
	CountRecallSessions(ctx context.Context, userID string, status entities.SessionStatus) (int, error)
}

// Store groups every repository behind one storage engine.
type Store interface {
	ImportRepository
	ConceptRepository
	QuizRepository
	NodeRepository
	RecallSessionRepository

	// Ping checks that the backing engine is reachable.
	Ping(ctx context.Context) error
	Close() error
}
