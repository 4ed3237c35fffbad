//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"mentraflow-backend/infrastructure/config"
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
