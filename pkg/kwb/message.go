package kwb

import (
	"encoding/binary"
	"encoding/json"
	"strconv"
)

type RawMessage struct {
	ID      uint8
	Counter uint8
	Payload []byte
}

type ValueKind uint8

const (
	NumberValue ValueKind = iota
	BoolValue
)

// Value is a decoded signal reading: either a number or a boolean.
type Value struct {
	Kind   ValueKind
	Number float64
	Bool   bool
}

func Number(v float64) Value {
	return Value{Kind: NumberValue, Number: v}
}

func Bool(v bool) Value {
	return Value{Kind: BoolValue, Bool: v}
}

func (v Value) IsBool() bool {
	return v.Kind == BoolValue
}

// Float returns the numeric reading, booleans map to 0 and 1.
func (v Value) Float() float64 {
	if v.Kind == BoolValue {
		if v.Bool {
			return 1
		}
		return 0
	}
	return v.Number
}

func (v Value) String() string {
	if v.Kind == BoolValue {
		return strconv.FormatBool(v.Bool)
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == BoolValue {
		return json.Marshal(v.Bool)
	}
	return json.Marshal(v.Number)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Number(n)
	return nil
}

type Reading struct {
	Value      Value
	Definition SignalDefinition
}

// Snapshot maps canonical signal keys to their latest value.
type Snapshot map[string]Value

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge overwrites existing keys and adds new ones. Nothing is evicted.
func (s Snapshot) Merge(other Snapshot) {
	for k, v := range other {
		s[k] = v
	}
}

func (s Snapshot) Number(key string) (float64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	return v.Float(), true
}

func (s Snapshot) Bool(key string) (bool, bool) {
	v, ok := s[key]
	if !ok {
		return false, false
	}
	if v.Kind == BoolValue {
		return v.Bool, true
	}
	return v.Number != 0, true
}

// Decode interprets a message payload with the signal group of the same id.
// It never fails: fields outside the payload and unknown message ids are skipped.
func Decode(msg RawMessage, groups []SignalGroup) map[string]Reading {
	out := make(map[string]Reading)
	for gi := range groups {
		if groups[gi].MessageID != msg.ID {
			continue
		}
		for _, def := range groups[gi].Signals {
			if value, ok := decodeField(msg.Payload, def); ok {
				out[def.Key] = Reading{Value: value, Definition: def}
			}
		}
	}
	return out
}

func decodeField(payload []byte, def SignalDefinition) (Value, bool) {
	size := def.Type.Size()
	if size == 0 || def.Position < 0 || def.Position+size > len(payload) {
		return Value{}, false
	}
	field := payload[def.Position : def.Position+size]

	var raw float64
	switch def.Type {
	case TypeBool:
		if def.Bit > 7 {
			return Value{}, false
		}
		return Bool(field[0]&(1<<def.Bit) != 0), true
	case TypeU8:
		raw = float64(field[0])
	case TypeS8:
		raw = float64(int8(field[0]))
	case TypeU16:
		raw = float64(binary.BigEndian.Uint16(field))
	case TypeS16:
		raw = float64(int16(binary.BigEndian.Uint16(field)))
	case TypeU32:
		raw = float64(binary.BigEndian.Uint32(field))
	case TypeS32:
		raw = float64(int32(binary.BigEndian.Uint32(field)))
	default:
		return Value{}, false
	}
	return Number(raw*def.scale() + def.Bias), true
}
