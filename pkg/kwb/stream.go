package kwb

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MessageSource yields raw controller messages for a set of ids.
type MessageSource interface {
	Open() error
	// ReadMessages returns one message per target id seen before the timeout.
	// It fails with ErrTimeout when no target message arrived at all. On an
	// I/O error after some messages were read, both are returned.
	ReadMessages(ids []uint8, timeout time.Duration) ([]RawMessage, error)
	Close() error
}

type StreamStats struct {
	Frames         uint64
	Ignored        uint64
	Malformed      uint64
	ChecksumErrors uint64
}

// StreamSource frames a ByteReader byte stream into messages.
type StreamSource struct {
	reader     ByteReader
	decoder    *Decoder
	buf        []byte
	off, n     int
	stats      StreamStats
	logger     *zap.Logger
	instrument []Instrument
}

func NewStreamSource(reader ByteReader, logger *zap.Logger, instrument ...Instrument) *StreamSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamSource{
		reader:     reader,
		decoder:    NewDecoder(),
		buf:        make([]byte, 512),
		logger:     logger,
		instrument: instrument,
	}
}

func (s *StreamSource) Open() error {
	s.decoder.Reset()
	s.off, s.n = 0, 0
	return s.reader.Open()
}

func (s *StreamSource) Close() error {
	s.decoder.Reset()
	s.off, s.n = 0, 0
	return s.reader.Close()
}

func (s *StreamSource) Stats() StreamStats {
	return s.stats
}

func (s *StreamSource) ReadMessages(ids []uint8, timeout time.Duration) ([]RawMessage, error) {
	defer RecordTimer("ReadMessages", s.instrument)()

	if len(ids) == 0 {
		return nil, nil
	}
	want := make(map[uint8]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	deadline := time.Now().Add(timeout)
	var out []RawMessage
	for len(want) > 0 {
		msg, err := s.next(deadline)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				break
			}
			return out, err
		}
		if !want[msg.ID] {
			s.stats.Ignored++
			continue
		}
		delete(want, msg.ID)
		out = append(out, *msg)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no target message within %s", ErrTimeout, timeout)
	}
	if len(want) > 0 {
		s.logger.Debug("kwb: missing messages after timeout", zap.Int("missing", len(want)), zap.Int("received", len(out)))
	}
	return out, nil
}

// Next returns the next valid frame of any id.
func (s *StreamSource) Next(timeout time.Duration) (*RawMessage, error) {
	return s.next(time.Now().Add(timeout))
}

func (s *StreamSource) next(deadline time.Time) (*RawMessage, error) {
	for {
		for s.off < s.n {
			b := s.buf[s.off]
			s.off++
			msg, err := s.decoder.DecodeByte(b)
			if err != nil {
				s.recordError(err)
			}
			if msg != nil {
				s.stats.Frames++
				return msg, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		n, err := s.reader.Read(s.buf, remaining)
		s.off, s.n = 0, n
		if err != nil {
			return nil, err
		}
	}
}

func (s *StreamSource) recordError(err error) {
	if errors.Is(err, ErrChecksum) {
		s.stats.ChecksumErrors++
		RecordEvent("checksum_error", s.instrument)
	} else {
		s.stats.Malformed++
		RecordEvent("malformed_frame", s.instrument)
	}
	s.logger.Debug("kwb: frame dropped", zap.Error(err))
}

// ensure interface compliance
var _ MessageSource = (*StreamSource)(nil)
