package port

import (
	"context"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
)

// SeedStore persists accumulator seeds keyed by heater unique id.
// Load reports found=false when the heater has never been checkpointed.
type SeedStore interface {
	Load(ctx context.Context, uniqueId string) (domain.Seed, bool, error)
	Save(ctx context.Context, uniqueId string, seed domain.Seed) error
}
