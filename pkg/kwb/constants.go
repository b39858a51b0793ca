package kwb

import "time"

// Wire framing
const (
	StartByte      byte = 0x02
	StuffByte      byte = 0x00
	MaxPayloadSize      = 250
	headerSize          = 3 // id, length, counter
)

const (
	DefaultSignalSource = 10
	DefaultReadTimeout  = 2 * time.Second
	DefaultTCPPort      = 8899
	DefaultModbusPort   = 502
	DefaultModbusUnitId = 1
)

// MaxScrapeDuration bounds one scrape cycle: the dial and the read each get
// the full read timeout.
func MaxScrapeDuration(readTimeout time.Duration) time.Duration {
	return 2 * readTimeout
}

// DefaultMessageIDs are the message families a Comfort 3 controller broadcasts
// with live readings and counters.
var DefaultMessageIDs = []uint8{32, 33, 64, 65}
