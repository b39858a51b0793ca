package kwb

import "time"

type Instrument struct {
	RecordTime  func(name string, elapsed time.Duration)
	RecordEvent func(name string)
}

func RecordTimer(name string, instrument []Instrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			if instrument[i].RecordTime != nil {
				instrument[i].RecordTime(name, duration)
			}
		}
	}
}

func RecordEvent(name string, instrument []Instrument) {
	for i := range instrument {
		if instrument[i].RecordEvent != nil {
			instrument[i].RecordEvent(name)
		}
	}
}
