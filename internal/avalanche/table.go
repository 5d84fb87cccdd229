// Package avalanche maps massifs to avalanche risk from the latest bulletins.
package avalanche

import (
	"sort"
	"strings"
	"time"
)

const (
	// MaxLevel is the highest bulletin danger level.
	MaxLevel = 5

	// DefaultRisk is used for unknown massifs or bulletins without a level.
	// It is equivalent to level 3/5.
	DefaultRisk = 0.6
)

// Bulletin is a daily avalanche bulletin for one massif.
type Bulletin struct {
	Massif string `json:"massif"`

	// Level is the current danger level 1-5, or 0 when absent.
	Level int `json:"level"`

	// NextDayLevel is the forecast level for the following day, or 0 when absent.
	NextDayLevel int `json:"nextDayLevel,omitempty"`

	ValidAt time.Time `json:"validAt"`
	Summary string    `json:"summary,omitempty"`
}

// HasLevel reports whether the bulletin carries a usable level.
func (b Bulletin) HasLevel() bool {
	return b.Level >= 1 && b.Level <= MaxLevel
}

// NormalizeMassif trims and uppercases a massif key.
func NormalizeMassif(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Table holds the latest bulletin per massif. It is read-only after construction.
type Table struct {
	bulletins map[string]Bulletin
}

// NewTable builds a table, keeping the most recent bulletin for each massif.
func NewTable(bulletins []Bulletin) *Table {
	t := &Table{bulletins: make(map[string]Bulletin, len(bulletins))}

	for _, b := range bulletins {
		key := NormalizeMassif(b.Massif)
		if key == "" {
			continue
		}
		b.Massif = key

		if prev, ok := t.bulletins[key]; ok && prev.ValidAt.After(b.ValidAt) {
			continue
		}
		t.bulletins[key] = b
	}

	return t
}

// Risk returns the avalanche risk in [0,1] for a massif: level/5, or
// DefaultRisk when the massif is unknown or its bulletin has no level.
func (t *Table) Risk(massif string) float64 {
	b, ok := t.Lookup(massif)
	if !ok || !b.HasLevel() {
		return DefaultRisk
	}
	return float64(b.Level) / MaxLevel
}

// Lookup returns the bulletin for a massif.
func (t *Table) Lookup(massif string) (Bulletin, bool) {
	if t == nil {
		return Bulletin{}, false
	}
	b, ok := t.bulletins[NormalizeMassif(massif)]
	return b, ok
}

// Len returns the number of massifs with a bulletin.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bulletins)
}

// Bulletins returns all bulletins sorted by massif.
func (t *Table) Bulletins() []Bulletin {
	if t == nil {
		return nil
	}
	out := make([]Bulletin, 0, len(t.bulletins))
	for _, b := range t.bulletins {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Massif < out[j].Massif })
	return out
}
