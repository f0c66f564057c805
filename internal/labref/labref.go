// Package labref holds the static analyte reference table used for lab form hints.
package labref

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed ranges.yaml
var rangesYAML []byte

// Groups in display order
var Groups = []string{"hematology", "chemistry", "lipids"}

// Range is the normal range of one analyte
type Range struct {
	Key          string  `yaml:"key"`
	Label        string  `yaml:"label"`
	Unit         string  `yaml:"unit"`
	Low          float64 `yaml:"low"`
	High         float64 `yaml:"high"`
	CriticalLow  float64 `yaml:"critical_low"`
	CriticalHigh float64 `yaml:"critical_high"`
	Decimals     int     `yaml:"decimals"`
	Group        string  `yaml:"-"`
}

// Hint renders the range for display, e.g. "Normal: 12.0-16.0 g/dL"
func (r Range) Hint() string {
	s := fmt.Sprintf("Normal: %s-%s", r.format(r.Low), r.format(r.High))
	if r.Unit != "" {
		s += " " + r.Unit
	}
	return s
}

func (r Range) format(v float64) string {
	return strconv.FormatFloat(v, 'f', r.Decimals, 64)
}

// Table maps normalized analyte keys to ranges
type Table struct {
	ranges map[string]Range
}

// Parse builds a table from grouped YAML
func Parse(data []byte) (*Table, error) {
	var groups map[string][]Range
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse reference ranges: %w", err)
	}

	t := &Table{ranges: make(map[string]Range)}
	for group, entries := range groups {
		for _, r := range entries {
			if r.Key == "" {
				return nil, fmt.Errorf("reference range in %s has no key", group)
			}
			if r.High < r.Low {
				return nil, fmt.Errorf("reference range %s: high %v below low %v", r.Key, r.High, r.Low)
			}
			r.Group = group
			r.Key = Normalize(r.Key)
			t.ranges[r.Key] = r
		}
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded reference table
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(rangesYAML)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Normalize lowercases a key and maps spaces and dashes to underscores
func Normalize(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}

// Lookup finds the range for an analyte
func (t *Table) Lookup(key string) (Range, bool) {
	r, ok := t.ranges[Normalize(key)]
	return r, ok
}

// Hint returns the display hint for an analyte, or "" when unknown
func (t *Table) Hint(key string) string {
	r, ok := t.Lookup(key)
	if !ok {
		return ""
	}
	return r.Hint()
}

// Label returns the display label for an analyte, falling back to the key
func (t *Table) Label(key string) string {
	if r, ok := t.Lookup(key); ok {
		return r.Label
	}
	return key
}

// Keys returns all analyte keys sorted by group then key
func (t *Table) Keys() []string {
	order := make(map[string]int, len(Groups))
	for i, g := range Groups {
		order[g] = i
	}
	keys := make([]string, 0, len(t.ranges))
	for k := range t.ranges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		gi, gj := order[t.ranges[keys[i]].Group], order[t.ranges[keys[j]].Group]
		if gi != gj {
			return gi < gj
		}
		return keys[i] < keys[j]
	})
	return keys
}
