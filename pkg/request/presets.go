package request

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrUnknownPreset = errors.New("unknown preset")

//go:embed presets.yaml
var presetsYAML []byte

var loadPresets = sync.OnceValues(func() (map[string]map[string]any, error) {
	presets := map[string]map[string]any{}
	if err := yaml.Unmarshal(presetsYAML, &presets); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	return presets, nil
})

// PresetNames lists the character presets in sorted order.
func PresetNames() []string {
	presets, err := loadPresets()
	if err != nil {
		return nil
	}
	return slices.Sorted(maps.Keys(presets))
}

// Preset returns the normalized request for a character ability score
// preset such as "normal", "high" or "low".
func Preset(level string) (*Normalized, error) {
	presets, err := loadPresets()
	if err != nil {
		return nil, err
	}
	raw, ok := presets[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, level)
	}
	return NormalizeMap(raw)
}
