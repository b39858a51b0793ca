package kwb

import "fmt"

// Frame layout on the wire:
//
//	0x02 | id | len | counter | payload[len] | checksum
//
// Every 0x02 after the start marker is sent as 0x02 0x00. An unstuffed 0x02
// always starts a new frame. The checksum is the 8-bit sum of id, len,
// counter and the payload bytes.

const (
	stateIdle = iota
	stateID
	stateLength
	stateCounter
	statePayload
	stateChecksum
)

// Decoder is a byte-at-a-time frame decoder. It is not safe for concurrent use.
type Decoder struct {
	state   int
	escape  bool
	id      uint8
	length  uint8
	counter uint8
	sum     uint8
	payload []byte
}

func NewDecoder() *Decoder {
	return &Decoder{
		state:   stateIdle,
		payload: make([]byte, 0, MaxPayloadSize),
	}
}

// Reset drops any partially decoded frame.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.escape = false
	d.resetFrame()
}

func (d *Decoder) resetFrame() {
	d.id = 0
	d.length = 0
	d.counter = 0
	d.sum = 0
	d.payload = d.payload[:0]
}

func (d *Decoder) begin() {
	d.resetFrame()
	d.state = stateID
}

// DecodeByte feeds one byte into the state machine. It returns a message when
// a frame completes, or an error when the current frame had to be dropped.
// Errors are never fatal: the decoder is ready for the next byte.
func (d *Decoder) DecodeByte(b byte) (*RawMessage, error) {
	if d.escape {
		d.escape = false
		if b == StuffByte {
			if d.state == stateIdle {
				return nil, nil
			}
			return d.accept(StartByte)
		}
		// the previous 0x02 was a start marker
		var err error
		if d.state != stateIdle && d.state != stateID {
			err = fmt.Errorf("%w: frame interrupted by start marker", ErrMalformedFrame)
		}
		d.begin()
		if b == StartByte {
			d.escape = true
			return nil, err
		}
		msg, aerr := d.accept(b)
		if err != nil {
			return msg, err
		}
		return msg, aerr
	}

	if b == StartByte {
		d.escape = true
		return nil, nil
	}
	if d.state == stateIdle {
		return nil, nil
	}
	return d.accept(b)
}

func (d *Decoder) accept(b byte) (*RawMessage, error) {
	switch d.state {
	case stateID:
		d.id = b
		d.sum = b
		d.state = stateLength
	case stateLength:
		if int(b) > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("%w: invalid length %d (max %d)", ErrMalformedFrame, b, MaxPayloadSize)
		}
		d.length = b
		d.sum += b
		d.state = stateCounter
	case stateCounter:
		d.counter = b
		d.sum += b
		if d.length == 0 {
			d.state = stateChecksum
		} else {
			d.state = statePayload
		}
	case statePayload:
		d.payload = append(d.payload, b)
		d.sum += b
		if len(d.payload) == int(d.length) {
			d.state = stateChecksum
		}
	case stateChecksum:
		if b != d.sum {
			err := fmt.Errorf("%w: message %d expected 0x%02X, got 0x%02X", ErrChecksum, d.id, d.sum, b)
			d.state = stateIdle
			d.resetFrame()
			return nil, err
		}
		payload := make([]byte, len(d.payload))
		copy(payload, d.payload)
		msg := &RawMessage{
			ID:      d.id,
			Counter: d.counter,
			Payload: payload,
		}
		d.state = stateIdle
		d.resetFrame()
		return msg, nil
	}
	return nil, nil
}
