package storage

import (
	"context"

	"pyuml/internal/model"
)

// Store persists one registry snapshot between CLI invocations.
type Store interface {
	// SaveSnapshot replaces the stored snapshot with reg. The write is
	// transactional; a failed save leaves the previous snapshot intact.
	SaveSnapshot(ctx context.Context, reg *model.Registry, origins model.OriginIndex) error

	// LoadSnapshot reconstructs the registry in its saved order along
	// with the class→unit origin index.
	LoadSnapshot(ctx context.Context) (*model.Registry, model.OriginIndex, error)

	Close() error
}
