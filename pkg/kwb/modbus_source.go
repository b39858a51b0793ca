package kwb

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// ModbusMessageSource reads message payloads from a Modbus TCP gateway that
// mirrors each message family into a block of holding registers.
type ModbusMessageSource struct {
	client     *modbus.ModbusClient
	open       bool
	groups     []SignalGroup
	counter    uint8
	logger     *zap.Logger
	instrument []Instrument
}

func NewModbusMessageSource(host string, port uint, unitId uint8, timeout time.Duration,
	groups []SignalGroup, logger *zap.Logger, instrument ...Instrument) (*ModbusMessageSource, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	if unitId > 0 {
		err = client.SetUnitId(unitId)
		if err != nil {
			return nil, err
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &ModbusMessageSource{
		client:     client,
		groups:     groups,
		logger:     logger,
		instrument: instrument,
	}, nil
}

func (s *ModbusMessageSource) Open() error {
	if err := s.client.Open(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	s.open = true
	return nil
}

func (s *ModbusMessageSource) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	return s.client.Close()
}

func (s *ModbusMessageSource) ReadMessages(ids []uint8, timeout time.Duration) ([]RawMessage, error) {
	defer RecordTimer("ReadMessages", s.instrument)()

	var out []RawMessage
	var lastErr error
	for _, id := range ids {
		group := s.group(id)
		if group == nil || group.Length <= 0 {
			continue
		}
		payload, err := s.readRawBytes(group.Register, uint16(group.Length))
		if err != nil {
			s.logger.Debug("kwb: modbus read failed", zap.Uint8("message", id), zap.Error(err))
			lastErr = err
			continue
		}
		s.counter++
		out = append(out, RawMessage{
			ID:      id,
			Counter: s.counter,
			Payload: payload,
		})
	}

	if len(out) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, lastErr)
		}
		return nil, fmt.Errorf("%w: no readable message among %v", ErrTimeout, ids)
	}
	return out, nil
}

func (s *ModbusMessageSource) readRawBytes(addr uint16, quantity uint16) ([]byte, error) {
	defer RecordTimer("ReadRawBytes", s.instrument)()
	return s.client.ReadRawBytes(addr, quantity, modbus.HOLDING_REGISTER)
}

func (s *ModbusMessageSource) group(id uint8) *SignalGroup {
	for i := range s.groups {
		if s.groups[i].MessageID == id {
			return &s.groups[i]
		}
	}
	return nil
}

var _ MessageSource = (*ModbusMessageSource)(nil)
