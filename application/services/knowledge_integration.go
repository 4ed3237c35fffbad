package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/domain/core/valueobjects"
	domainservices "mentraflow-backend/domain/services"
	apperrors "mentraflow-backend/pkg/errors"
	"mentraflow-backend/pkg/observability"
)

// IntegrationStep names one sub-operation of integrating a concept.
type IntegrationStep string

const (
	StepCreateNode     IntegrationStep = "create_node"
	StepLinkNode       IntegrationStep = "link_node"
	StepScheduleRecall IntegrationStep = "schedule_recall"
)

// StepResult reports how one sub-operation ended.
type StepResult struct {
	Step IntegrationStep `json:"step"`
	Err  error           `json:"-"`
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool { return r.Err == nil }

// IntegrationResult aggregates the steps run for one concept. Steps that
// completed before a failure stay applied; nothing is rolled back.
type IntegrationResult struct {
	Steps       []StepResult
	Node        *entities.KnowledgeNode
	Connections []string
	Session     *entities.RecallSession
}

// Success reports whether every step ran and succeeded.
func (r *IntegrationResult) Success() bool {
	if len(r.Steps) != 3 {
		return false
	}
	for _, s := range r.Steps {
		if !s.OK() {
			return false
		}
	}
	return true
}

// Err returns the first step error, naming the step.
func (r *IntegrationResult) Err() error {
	for _, s := range r.Steps {
		if !s.OK() {
			return fmt.Errorf("%s: %w", s.Step, s.Err)
		}
	}
	return nil
}

func (r *IntegrationResult) record(step IntegrationStep, err error) error {
	r.Steps = append(r.Steps, StepResult{Step: step, Err: err})
	return err
}

// maxNodeIDAttempts bounds how many fresh ids CreateNode draws when a
// generated node id is already stored.
const maxNodeIDAttempts = 3

// IntegrationConfig tunes graph linking.
type IntegrationConfig struct {
	// LinkCandidateLimit bounds how many existing nodes are scanned.
	LinkCandidateLimit int
	MaxConnections     int
}

// KnowledgeIntegrationService places concepts into the user's knowledge graph.
type KnowledgeIntegrationService struct {
	nodes     ports.NodeRepository
	scheduler *RecallScheduler
	linker    *domainservices.GraphLinker
	newNodeID func() string
	clock     ports.Clock
	config    IntegrationConfig
	metrics   *observability.Collector
	logger    *zap.Logger
}

func NewKnowledgeIntegrationService(
	nodes ports.NodeRepository,
	scheduler *RecallScheduler,
	clock ports.Clock,
	config IntegrationConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *KnowledgeIntegrationService {
	if config.LinkCandidateLimit <= 0 {
		config.LinkCandidateLimit = 100
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = entities.MaxAutoConnections
	}
	return &KnowledgeIntegrationService{
		nodes:     nodes,
		scheduler: scheduler,
		linker:    domainservices.NewGraphLinker(config.MaxConnections),
		newNodeID: valueobjects.NewNodeID,
		clock:     clock,
		config:    config,
		metrics:   metrics,
		logger:    logger,
	}
}

// Integrate creates a node for concept, links it into the graph and
// schedules its first review. Each step runs only if the previous one
// succeeded.
func (s *KnowledgeIntegrationService) Integrate(ctx context.Context, concept *entities.Concept, quizID string) *IntegrationResult {
	ctx, span := observability.StartSpan(ctx, "integration.concept",
		attribute.String("concept.id", concept.ID),
		attribute.String("user.id", concept.UserID),
	)
	result := &IntegrationResult{}
	defer func() { observability.EndSpan(span, result.Err()) }()

	node, err := s.CreateNode(ctx, concept, quizID)
	if result.record(StepCreateNode, err) != nil {
		return result
	}
	result.Node = node

	connections, err := s.LinkNode(ctx, node)
	if result.record(StepLinkNode, err) != nil {
		return result
	}
	result.Connections = connections

	session, err := s.scheduler.ScheduleFirst(ctx, node.UserID, node.ID, concept.Text)
	if result.record(StepScheduleRecall, err) != nil {
		return result
	}
	result.Session = session

	s.metrics.RecordIntegration(len(connections))
	s.logger.Info("Concept integrated",
		zap.String("concept_id", concept.ID),
		zap.String("node_id", node.ID),
		zap.Int("connections", len(connections)),
		zap.String("session_id", session.ID))
	return result
}

// CreateNode builds and stores the node for concept. Node ids are short, so
// an id that is already stored is replaced before the write instead of
// overwriting another node.
func (s *KnowledgeIntegrationService) CreateNode(ctx context.Context, concept *entities.Concept, quizID string) (*entities.KnowledgeNode, error) {
	node, err := entities.NewNodeFromConcept(concept, quizID, s.clock.Now())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	node.ID = s.newNodeID()
	for attempt := 1; ; attempt++ {
		_, err := s.nodes.GetNode(ctx, node.ID)
		if apperrors.IsNotFound(err) {
			break
		}
		if err != nil {
			return nil, apperrors.NewDatabaseError("check knowledge node id", err)
		}
		if attempt == maxNodeIDAttempts {
			return nil, apperrors.NewConflictError("no free knowledge node id after retries")
		}
		s.logger.Warn("Generated node id already taken, drawing another",
			zap.String("node_id", node.ID),
			zap.String("concept_id", concept.ID))
		node.ID = s.newNodeID()
	}
	if err := s.nodes.SaveNode(ctx, node); err != nil {
		return nil, apperrors.NewDatabaseError("save knowledge node", err)
	}
	return node, nil
}

// LinkNode connects node to existing nodes that share a title keyword, up
// to the connection cap, and adds node back onto each of them. The
// back-links are not capped. Reads and writes are not transactional.
func (s *KnowledgeIntegrationService) LinkNode(ctx context.Context, node *entities.KnowledgeNode) ([]string, error) {
	candidates, err := s.nodes.ListNodes(ctx, node.UserID, s.config.LinkCandidateLimit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list knowledge nodes", err)
	}

	selected := s.linker.SelectConnections(node, candidates)
	if len(selected) == 0 {
		return []string{}, nil
	}

	now := s.clock.Now()
	connections := make([]string, 0, len(selected))
	for _, candidate := range selected {
		node.AddConnection(candidate.ID, now)
		connections = append(connections, candidate.ID)

		if !candidate.AddConnection(node.ID, now) {
			continue
		}
		if err := s.nodes.SaveNode(ctx, candidate); err != nil {
			// The forward link is still stored; the graph is left one-sided.
			s.logger.Error("Failed to store back-link",
				zap.String("node_id", candidate.ID),
				zap.String("linked_node_id", node.ID),
				zap.Error(err))
		}
	}

	if err := s.nodes.SaveNode(ctx, node); err != nil {
		return nil, apperrors.NewDatabaseError("save knowledge node connections", err)
	}
	return connections, nil
}
