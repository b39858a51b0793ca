package kwb

import (
	"errors"
	"time"
)

// Sample payloads for source 10, decoded values are listed in the package tests.
var samplePayloads = map[uint8][]byte{
	32: {
		0x02, 0xD5, // boiler 72.5
		0x05, 0xAA, // flue gas 145.0
		0xFF, 0xDD, // outdoor -3.5
		0x02, 0xA8, // buffer top 68.0
		0x01, 0x9C, // buffer bottom 41.2
		0x02, 0x0B, // hot water 52.3
		0x01, 0xE0, // return 48.0
		0x00, 0xD7, // room 21.5
		0x4B,       // output 75 %
		0x3C,       // fan 60 %
		0x0A,       // auger + boiler pump
		0x04,       // operating state
		0x03, 0x3E, // combustion chamber 830
		0x00, 0x7D, // negative pressure 12.5
	},
	33: {
		0x00, 0x00, 0x10, 0xE1, // burner hours 4321
		0x00, 0x00, 0x04, 0xD2, // ignitions 1234
		0x00, 0x01, 0x81, 0xCD, // auger run time 98765
	},
	64: {
		0x02, 0xEE, // boiler setpoint 75.0
		0x02, 0x26, // hot water setpoint 55.0
		0x02,       // program
		0x03,       // heating + hot water mode
		0x00, 0xD2, // room setpoint 21.0
	},
	65: {
		0x01, 0xC7, // flow hc1 45.5
		0x01, 0xD6, // flow setpoint hc1 47.0
		0x01, 0x7C, // flow hc2 38.0
		0x05, // pump 1 + mixer opening
		0x28, // mixer position 40 %
	},
}

func SamplePayload(id uint8) []byte {
	p, ok := samplePayloads[id]
	if !ok {
		return nil
	}
	return append([]byte(nil), p...)
}

func SampleMessages() []RawMessage {
	var msgs []RawMessage
	for i, id := range DefaultMessageIDs {
		msgs = append(msgs, RawMessage{ID: id, Counter: uint8(i), Payload: SamplePayload(id)})
	}
	return msgs
}

// SampleStream is a wire capture of the sample messages with some line noise.
func SampleStream() []byte {
	stream := []byte{0x55, 0xAA, 0x00}
	for _, msg := range SampleMessages() {
		frame, _ := EncodeFrame(msg.ID, msg.Counter, msg.Payload)
		stream = append(stream, frame...)
	}
	return stream
}

// TestByteReader replays chunks of bytes and times out once exhausted.
type TestByteReader struct {
	Chunks  [][]byte
	OpenErr error
	ReadErr error

	Opens  int
	Closes int
	IsOpen bool
	next   int
}

func CreateTestByteReader(chunks ...[]byte) *TestByteReader {
	return &TestByteReader{Chunks: chunks}
}

func (r *TestByteReader) Open() error {
	if r.OpenErr != nil {
		return r.OpenErr
	}
	r.Opens++
	r.IsOpen = true
	r.next = 0
	return nil
}

func (r *TestByteReader) Read(p []byte, timeout time.Duration) (int, error) {
	if !r.IsOpen {
		return 0, ErrConnection
	}
	for r.next < len(r.Chunks) && len(r.Chunks[r.next]) == 0 {
		r.next++
	}
	if r.next >= len(r.Chunks) {
		if r.ReadErr != nil {
			return 0, r.ReadErr
		}
		return 0, ErrTimeout
	}
	n := copy(p, r.Chunks[r.next])
	r.Chunks[r.next] = r.Chunks[r.next][n:]
	return n, nil
}

func (r *TestByteReader) Close() error {
	if r.IsOpen {
		r.Closes++
	}
	r.IsOpen = false
	return nil
}

// TestMessageSource serves fixed messages without any framing.
type TestMessageSource struct {
	Messages []RawMessage
	OpenErr  error
	ReadErr  error
	Panic    bool
	// Delay is slept inside ReadMessages, to simulate a slow controller
	Delay time.Duration
	// OpenDelay is slept inside Open, to simulate a slow gateway
	OpenDelay time.Duration

	Opens  int
	Closes int
}

func CreateTestMessageSource() *TestMessageSource {
	return &TestMessageSource{Messages: SampleMessages()}
}

func (s *TestMessageSource) Open() error {
	if s.OpenDelay > 0 {
		time.Sleep(s.OpenDelay)
	}
	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.Opens++
	return nil
}

func (s *TestMessageSource) ReadMessages(ids []uint8, timeout time.Duration) ([]RawMessage, error) {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	if s.Panic {
		panic(errors.New("test source panic"))
	}
	var out []RawMessage
	for _, msg := range s.Messages {
		for _, id := range ids {
			if msg.ID == id {
				out = append(out, msg)
				break
			}
		}
	}
	if s.ReadErr != nil {
		return out, s.ReadErr
	}
	if len(out) == 0 {
		return nil, ErrTimeout
	}
	return out, nil
}

func (s *TestMessageSource) Close() error {
	s.Closes++
	return nil
}
