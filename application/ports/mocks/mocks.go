// Package mocks provides testify mocks of the application ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mentraflow-backend/application/ports"
)

// MockLanguageModel is a mock ports.LanguageModel.
type MockLanguageModel struct {
	mock.Mock
}

func (m *MockLanguageModel) Complete(ctx context.Context, prompt string, options ports.CompletionOptions) (string, error) {
	args := m.Called(ctx, prompt, options)
	return args.String(0), args.Error(1)
}

func (m *MockLanguageModel) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockJobQueue is a mock ports.JobQueue.
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job ports.ImportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockJobProcessor is a mock ports.ImportJobProcessor.
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) Process(ctx context.Context, job ports.ImportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
