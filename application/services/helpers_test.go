package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/infrastructure/persistence/memory"
	"mentraflow-backend/pkg/observability"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store       *memory.Store
	clock       *fakeClock
	metrics     *observability.Collector
	scheduler   *RecallScheduler
	integration *KnowledgeIntegrationService
}

func newFixture() *fixture {
	store := memory.NewStore()
	clock := newFakeClock()
	metrics := observability.NewCollector("test")
	logger := zap.NewNop()
	scheduler := NewRecallScheduler(store, clock, metrics, logger)
	return &fixture{
		store:       store,
		clock:       clock,
		metrics:     metrics,
		scheduler:   scheduler,
		integration: NewKnowledgeIntegrationService(store, scheduler, clock, IntegrationConfig{}, metrics, logger),
	}
}

func recallFilter(userID string, status entities.SessionStatus) ports.RecallSessionFilter {
	return ports.RecallSessionFilter{UserID: userID, Status: status}
}
