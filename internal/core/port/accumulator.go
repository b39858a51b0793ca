package port

import (
	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
)

type AccumulatorEngine interface {
	Restore(seed domain.Seed)
	Recovered() bool
	Update(snapshot kwb.Snapshot) bool
	Checkpoint() domain.Seed
	Totals() domain.HeaterTotals
}
