// Package chart converts goal scores into bar and radar geometry for the
// web templates. Bad input never fails: scores are clamped to 0..100 and
// entries with an unknown goal or a non-numeric value are dropped.
package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"ecomind/api/internal/sdg"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Scores for alignment levels written as words.
const (
	LevelHigh   = 90.0
	LevelMedium = 60.0
	LevelLow    = 30.0
)

// Item is one raw input row. Value may be a number, a numeric string or a
// comment starting with High, Medium or Low.
type Item struct {
	ID    int
	Name  string
	Value any
}

type Entry struct {
	Goal  sdg.Goal
	Label string
	Score float64
}

// Entries keeps the order of items, dropping duplicates and invalid rows.
func Entries(items []Item) []Entry {
	seen := make(map[sdg.Goal]bool, len(items))
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		g := sdg.Goal(it.ID)
		if !g.Valid() || seen[g] {
			continue
		}
		v, ok := score(it.Value)
		if !ok {
			continue
		}
		seen[g] = true
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = g.Name()
		}
		out = append(out, Entry{Goal: g, Label: fmt.Sprintf("%d: %s", int(g), name), Score: v})
	}
	return out
}

// FromMap reads a goal-id keyed mapping such as {"6": "High alignment"}.
// Entries come back ordered by goal.
func FromMap[V any](m map[string]V) []Entry {
	items := make([]Item, 0, len(m))
	for k, v := range m {
		g, err := sdg.Parse(k)
		if err != nil {
			continue
		}
		items = append(items, Item{ID: int(g), Value: v})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return Entries(items)
}

func score(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		var ok bool
		if f, ok = parseScore(t); !ok {
			return 0, false
		}
	default:
		var err error
		if f, err = cast.ToFloat64E(t); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return math.Max(MinScore, math.Min(MaxScore, f)), true
}

func parseScore(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := cast.ToFloat64E(strings.TrimSpace(strings.TrimSuffix(s, "%"))); err == nil {
		return f, true
	}
	l := strings.ToLower(s)
	switch {
	case strings.HasPrefix(l, "high"):
		return LevelHigh, true
	case strings.HasPrefix(l, "medium"), strings.HasPrefix(l, "moderate"):
		return LevelMedium, true
	case strings.HasPrefix(l, "low"):
		return LevelLow, true
	}
	return 0, false
}
