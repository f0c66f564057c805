package models

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// LabValueSet maps analyte keys to the raw text typed by the user
type LabValueSet map[string]string

// Forwardable returns the numeric entries that may be sent to the backend.
// Empty and unparseable values are dropped silently.
func (l LabValueSet) Forwardable() map[string]float64 {
	out := make(map[string]float64, len(l))
	for key, raw := range l {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[key] = v
	}
	return out
}

// Dropped returns the sorted keys of non-empty entries that failed to parse
func (l LabValueSet) Dropped() []string {
	keep := l.Forwardable()
	var dropped []string
	for key, raw := range l {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, ok := keep[key]; !ok {
			dropped = append(dropped, key)
		}
	}
	sort.Strings(dropped)
	return dropped
}
