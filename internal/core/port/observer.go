package port

import "github.com/berfenger/kwb2mqtt/internal/core/domain"

// HeaterObserver receives the outcome of every poll cycle.
type HeaterObserver interface {
	ObserveScrape(ok bool, consecutiveFailures uint, available bool)
	ObserveTotals(totals domain.HeaterTotals)
}
