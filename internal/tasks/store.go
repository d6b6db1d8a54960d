package tasks

import (
	"context"

	"github.com/mailcouncil/pkg/models"
)

// Store persists finished task snapshots. The tracker stays the source of
// truth for live tasks; the store only sees terminal ones, delivered by the
// archival queue.
type Store interface {
	Save(ctx context.Context, task models.Task) error
	Load(ctx context.Context, id string) (models.Task, error)
}
