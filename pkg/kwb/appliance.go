package kwb

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateReading
	StateDecoding
	StateClosedSuccess
	StateClosedFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReading:
		return "reading"
	case StateDecoding:
		return "decoding"
	case StateClosedSuccess:
		return "closed_success"
	case StateClosedFailure:
		return "closed_failure"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type ApplianceConfig struct {
	MessageIDs  []uint8
	ReadTimeout time.Duration
}

// Appliance runs scrape cycles against one controller and owns the latest
// merged snapshot. Concurrent Scrape calls are serialized; the other methods
// never wait for a scrape in progress.
type Appliance struct {
	source      MessageSource
	groups      []SignalGroup
	messageIDs  []uint8
	readTimeout time.Duration
	logger      *zap.Logger
	instrument  []Instrument

	scrapeMu sync.Mutex

	mu         sync.RWMutex
	latest     Snapshot
	state      State
	lastErr    error
	lastScrape time.Time
}

func NewAppliance(source MessageSource, groups []SignalGroup, cfg ApplianceConfig, logger *zap.Logger, instrument ...Instrument) *Appliance {
	ids := cfg.MessageIDs
	if len(ids) == 0 {
		ids = DefaultMessageIDs
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Appliance{
		source:      source,
		groups:      groups,
		messageIDs:  append([]uint8(nil), ids...),
		readTimeout: timeout,
		logger:      logger,
		instrument:  instrument,
		latest:      Snapshot{},
		state:       StateIdle,
	}
}

// Scrape runs one open, read, decode, close cycle and merges the decoded
// signals into the latest snapshot. It reports whether at least one signal
// was decoded. Failures are logged and kept in LastError.
func (a *Appliance) Scrape() (ok bool) {
	a.scrapeMu.Lock()
	defer a.scrapeMu.Unlock()
	defer RecordTimer("Scrape", a.instrument)()

	defer func() {
		if r := recover(); r != nil {
			a.fail(fmt.Errorf("kwb: scrape panic: %v", r))
			ok = false
		}
		if err := a.source.Close(); err != nil {
			a.logger.Warn("kwb: close failed", zap.Error(err))
		}
		if ok {
			a.setState(StateClosedSuccess)
			RecordEvent("scrape_success", a.instrument)
		} else {
			a.setState(StateClosedFailure)
			RecordEvent("scrape_failure", a.instrument)
		}
	}()

	a.setState(StateConnecting)
	if err := a.source.Open(); err != nil {
		a.fail(err)
		return false
	}

	a.setState(StateReading)
	msgs, err := a.source.ReadMessages(a.messageIDs, a.readTimeout)
	if err != nil {
		if len(msgs) == 0 {
			a.fail(err)
			return false
		}
		a.logger.Warn("kwb: partial read", zap.Int("messages", len(msgs)), zap.Error(err))
	}

	a.setState(StateDecoding)
	fresh := Snapshot{}
	for _, msg := range msgs {
		for key, reading := range Decode(msg, a.groups) {
			fresh[key] = reading.Value
		}
	}
	if len(fresh) == 0 {
		a.fail(fmt.Errorf("%w: %d messages carried no known signal", ErrNoData, len(msgs)))
		return false
	}

	a.mu.Lock()
	a.latest.Merge(fresh)
	a.lastErr = nil
	a.lastScrape = time.Now()
	a.mu.Unlock()

	a.logger.Debug("kwb: scrape done", zap.Int("messages", len(msgs)), zap.Int("signals", len(fresh)))
	return true
}

// Snapshot returns a copy of the latest merged scrape.
func (a *Appliance) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest.Clone()
}

func (a *Appliance) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Appliance) LastError() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

func (a *Appliance) LastScrape() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastScrape
}

func (a *Appliance) SignalGroups() []SignalGroup {
	return a.groups
}

func (a *Appliance) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Appliance) fail(err error) {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
	a.logger.Warn("kwb: scrape failed", zap.Error(err))
}
