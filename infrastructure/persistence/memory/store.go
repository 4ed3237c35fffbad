// Package memory provides an in-process ports.Store. Every Store owns its
// data, so separate instances never share state.
package memory

import (
	"context"
	"sort"
	"sync"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	apperrors "mentraflow-backend/pkg/errors"
)

// Store keeps copies of every record in maps guarded by one lock.
type Store struct {
	mu sync.RWMutex

	imports  map[string]entities.Import
	concepts map[string]entities.Concept
	quizzes  map[string]entities.Quiz
	nodes    map[string]entities.KnowledgeNode
	sessions map[string]entities.RecallSession

	// insertion order of nodes, used to list them in creation order
	nodeOrder []string

	// For testing error scenarios
	shouldFailOn map[string]error
}

var _ ports.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		imports:      make(map[string]entities.Import),
		concepts:     make(map[string]entities.Concept),
		quizzes:      make(map[string]entities.Quiz),
		nodes:        make(map[string]entities.KnowledgeNode),
		sessions:     make(map[string]entities.RecallSession),
		shouldFailOn: make(map[string]error),
	}
}

// SetError makes the named method fail with err until ClearErrors is called.
func (s *Store) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn = make(map[string]error)
}

func (s *Store) checkError(method string) error {
	return s.shouldFailOn[method]
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

func (s *Store) SaveImport(ctx context.Context, imp *entities.Import) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError("SaveImport"); err != nil {
		return err
	}
	s.imports[imp.ID] = *imp
	return nil
}

func (s *Store) GetImport(ctx context.Context, importID string) (*entities.Import, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkError("GetImport"); err != nil {
		return nil, err
	}
	imp, ok := s.imports[importID]
	if !ok {
		return nil, apperrors.NewNotFoundError("import")
	}
	return &imp, nil
}

func (s *Store) ListImports(ctx context.Context, userID string, limit int) ([]*entities.Import, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkError("ListImports"); err != nil {
		return nil, err
	}
	var out []*entities.Import
	for _, imp := range s.imports {
		if imp.UserID == userID {
			imp := imp
			out = append(out, &imp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limitSlice(out, limit), nil
}

func (s *Store) SaveConcept(ctx context.Context, concept *entities.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError("SaveConcept"); err != nil {
		return err
	}
	s.concepts[concept.ID] = *concept
	return nil
}

func (s *Store) GetConcept(ctx context.Context, conceptID string) (*entities.Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.concepts[conceptID]
	if !ok {
		return nil, apperrors.NewNotFoundError("concept")
	}
	return &c, nil
}

func (s *Store) ListConcepts(ctx context.Context, userID string, limit int) ([]*entities.Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkError("ListConcepts"); err != nil {
		return nil, err
	}
	var out []*entities.Concept
	for _, c := range s.concepts {
		if c.UserID == userID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limitSlice(out, limit), nil
}

func (s *Store) SaveQuiz(ctx context.Context, quiz *entities.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError("SaveQuiz"); err != nil {
		return err
	}
	s.quizzes[quiz.ID] = copyQuiz(*quiz)
	return nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (*entities.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return nil, apperrors.NewNotFoundError("quiz")
	}
	q = copyQuiz(q)
	return &q, nil
}

func (s *Store) GetQuizByConcept(ctx context.Context, conceptID string) (*entities.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.ConceptID == conceptID {
			q = copyQuiz(q)
			return &q, nil
		}
	}
	return nil, apperrors.NewNotFoundError("quiz")
}

func (s *Store) ListQuizzes(ctx context.Context, userID string, limit int) ([]*entities.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entities.Quiz
	for _, q := range s.quizzes {
		if q.UserID == userID {
			q := copyQuiz(q)
			out = append(out, &q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limitSlice(out, limit), nil
}

func (s *Store) SaveNode(ctx context.Context, node *entities.KnowledgeNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError("SaveNode"); err != nil {
		return err
	}
	if _, exists := s.nodes[node.ID]; !exists {
		s.nodeOrder = append(s.nodeOrder, node.ID)
	}
	n := *node
	n.Connections = append([]string{}, node.Connections...)
	s.nodes[node.ID] = n
	return nil
}

func (s *Store) GetNode(ctx context.Context, nodeID string) (*entities.KnowledgeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, apperrors.NewNotFoundError("knowledge node")
	}
	n.Connections = append([]string{}, n.Connections...)
	return &n, nil
}

func (s *Store) ListNodes(ctx context.Context, userID string, limit int) ([]*entities.KnowledgeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkError("ListNodes"); err != nil {
		return nil, err
	}
	var out []*entities.KnowledgeNode
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		if n.UserID != userID {
			continue
		}
		n.Connections = append([]string{}, n.Connections...)
		out = append(out, &n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) SaveRecallSession(ctx context.Context, session *entities.RecallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError("SaveRecallSession"); err != nil {
		return err
	}
	if stored, ok := s.sessions[session.ID]; ok && stored.Status == entities.SessionStatusCompleted {
		return apperrors.NewConflictError("recall session " + session.ID + " is already completed")
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) GetRecallSession(ctx context.Context, sessionID string) (*entities.RecallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.NewNotFoundError("recall session")
	}
	return &rs, nil
}

func (s *Store) ListRecallSessions(ctx context.Context, filter ports.RecallSessionFilter) ([]*entities.RecallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entities.RecallSession
	for _, rs := range s.sessions {
		if rs.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && rs.Status != filter.Status {
			continue
		}
		rs := rs
		out = append(out, &rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return limitSlice(out, filter.Limit), nil
}

func (s *Store) CountRecallSessions(ctx context.Context, userID string, status entities.SessionStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, rs := range s.sessions {
		if rs.UserID == userID && (status == "" || rs.Status == status) {
			count++
		}
	}
	return count, nil
}

func copyQuiz(q entities.Quiz) entities.Quiz {
	if q.Questions == nil {
		return q
	}
	questions := make([]entities.QuizQuestion, len(q.Questions))
	for i, question := range q.Questions {
		if question.Options != nil {
			opts := make(map[string]string, len(question.Options))
			for k, v := range question.Options {
				opts[k] = v
			}
			question.Options = opts
		}
		questions[i] = question
	}
	q.Questions = questions
	return q
}

func limitSlice[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
