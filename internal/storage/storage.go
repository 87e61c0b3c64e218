// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/streetsync/launchpad-engine/internal/storage/models"
)

// Storage persists the protocol's transition history.
type Storage interface {
	SaveTransition(ctx context.Context, t *models.Transition) error
	GetTransition(ctx context.Context, signature string) (*models.Transition, error)
	ListTransitions(ctx context.Context, mint string, limit, offset int) ([]*models.Transition, error)

	RunMigrations() error
}
