package kwb

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type SignalType string

const (
	TypeBool SignalType = "b"
	TypeU8   SignalType = "u8"
	TypeS8   SignalType = "s8"
	TypeU16  SignalType = "u16"
	TypeS16  SignalType = "s16"
	TypeU32  SignalType = "u32"
	TypeS32  SignalType = "s32"
)

// Size is the number of payload bytes a field of this type occupies.
func (t SignalType) Size() int {
	switch t {
	case TypeBool, TypeU8, TypeS8:
		return 1
	case TypeU16, TypeS16:
		return 2
	case TypeU32, TypeS32:
		return 4
	}
	return 0
}

const (
	StateClassMeasurement     = "measurement"
	StateClassTotalIncreasing = "total_increasing"
)

type SignalDefinition struct {
	RawKey      string     `yaml:"raw"`
	Key         string     `yaml:"key"`
	Name        string     `yaml:"name"`
	Type        SignalType `yaml:"type"`
	Position    int        `yaml:"position"`
	Bit         uint8      `yaml:"bit"`
	Scale       float64    `yaml:"scale"`
	Bias        float64    `yaml:"bias"`
	Unit        string     `yaml:"unit"`
	StateClass  string     `yaml:"state_class"`
	DeviceClass string     `yaml:"device_class"`
	Icon        string     `yaml:"icon"`
	Decimals    uint       `yaml:"decimals"`
}

func (d SignalDefinition) IsBool() bool {
	return d.Type == TypeBool
}

func (d SignalDefinition) scale() float64 {
	if d.Scale == 0 {
		return 1
	}
	return d.Scale
}

type SignalGroup struct {
	MessageID uint8              `yaml:"message_id"`
	Register  uint16             `yaml:"register"`
	Length    int                `yaml:"length"`
	Signals   []SignalDefinition `yaml:"signals"`
}

type signalMapFile struct {
	Source int           `yaml:"source"`
	Name   string        `yaml:"name"`
	Groups []SignalGroup `yaml:"groups"`
}

//go:embed signals/*.yaml
var signalFiles embed.FS

var (
	signalMapsMu    sync.Mutex
	signalMapsCache = map[int][]SignalGroup{}
)

// LoadSignalMaps returns the signal groups of a message family. Results are
// cached for the process lifetime and must not be modified by callers.
func LoadSignalMaps(source int) ([]SignalGroup, error) {
	signalMapsMu.Lock()
	defer signalMapsMu.Unlock()

	if groups, ok := signalMapsCache[source]; ok {
		return groups, nil
	}

	data, err := signalFiles.ReadFile(fmt.Sprintf("signals/source_%d.yaml", source))
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSource, source)
	}
	groups, err := parseSignalMaps(data, source)
	if err != nil {
		return nil, err
	}
	signalMapsCache[source] = groups
	return groups, nil
}

// AvailableSources lists the message families shipped with the package.
func AvailableSources() []int {
	entries, err := signalFiles.ReadDir("signals")
	if err != nil {
		return nil
	}
	var sources []int
	for _, e := range entries {
		var source int
		if _, err := fmt.Sscanf(e.Name(), "source_%d.yaml", &source); err == nil {
			sources = append(sources, source)
		}
	}
	return sources
}

func parseSignalMaps(data []byte, source int) ([]SignalGroup, error) {
	var file signalMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("kwb: signal map %d: %w", source, err)
	}
	if file.Source != source {
		return nil, fmt.Errorf("kwb: signal map file declares source %d, expected %d", file.Source, source)
	}

	seen := map[string]bool{}
	for gi := range file.Groups {
		group := &file.Groups[gi]
		if group.MessageID == 0 {
			return nil, fmt.Errorf("kwb: signal map %d: group %d has no message id", source, gi)
		}
		for si := range group.Signals {
			def := &group.Signals[si]
			if def.RawKey == "" {
				return nil, fmt.Errorf("kwb: signal map %d: message %d signal %d has no raw key", source, group.MessageID, si)
			}
			if def.Type.Size() == 0 {
				return nil, fmt.Errorf("kwb: signal map %d: %q has unknown type %q", source, def.RawKey, def.Type)
			}
			if def.Type == TypeBool && def.Bit > 7 {
				return nil, fmt.Errorf("kwb: signal map %d: %q bit %d out of range", source, def.RawKey, def.Bit)
			}
			if group.Length > 0 && def.Position+def.Type.Size() > group.Length {
				return nil, fmt.Errorf("kwb: signal map %d: %q exceeds message %d length", source, def.RawKey, group.MessageID)
			}
			if def.Key == "" {
				def.Key = CanonicalKey(def.RawKey)
			}
			if def.Name == "" {
				def.Name = def.RawKey
			}
			if seen[def.Key] {
				return nil, fmt.Errorf("kwb: signal map %d: duplicate key %q", source, def.Key)
			}
			seen[def.Key] = true
		}
	}
	return file.Groups, nil
}

// CanonicalKey derives a snapshot key from a raw signal name.
func CanonicalKey(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
}

// FindSignal looks a definition up by canonical key.
func FindSignal(groups []SignalGroup, key string) (SignalDefinition, bool) {
	for gi := range groups {
		for _, def := range groups[gi].Signals {
			if def.Key == key {
				return def, true
			}
		}
	}
	return SignalDefinition{}, false
}
