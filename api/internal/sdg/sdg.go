// Package sdg holds the fixed catalog of UN Sustainable Development Goals.
package sdg

import (
	"fmt"
	"strconv"
	"strings"
)

// Goal is an SDG number, 1..17.
type Goal int

const (
	First Goal = 1
	Last  Goal = 17
)

var names = map[Goal]string{
	1:  "No Poverty",
	2:  "Zero Hunger",
	3:  "Good Health",
	4:  "Quality Education",
	5:  "Gender Equality",
	6:  "Clean Water",
	7:  "Affordable Energy",
	8:  "Decent Work",
	9:  "Industry/Innovation",
	10: "Reduced Inequalities",
	11: "Sustainable Cities",
	12: "Responsible Consumption",
	13: "Climate Action",
	14: "Life Below Water",
	15: "Life on Land",
	16: "Peace & Justice",
	17: "Partnerships",
}

func (g Goal) Valid() bool { return g >= First && g <= Last }

// Name returns the short goal name, or "SDG n" for ids outside the catalog.
func (g Goal) Name() string {
	if n, ok := names[g]; ok {
		return n
	}
	return fmt.Sprintf("SDG %d", int(g))
}

// Label is "n: Name", used for chart axes and select options.
func (g Goal) Label() string { return fmt.Sprintf("%d: %s", int(g), g.Name()) }

// All lists goals in ascending order.
func All() []Goal {
	out := make([]Goal, 0, int(Last))
	for g := First; g <= Last; g++ {
		out = append(out, g)
	}
	return out
}

// Parse accepts "6", " 6 ", "SDG 6" or "sdg6".
func Parse(s string) (Goal, error) {
	t := strings.TrimSpace(strings.ToLower(s))
	t = strings.TrimSpace(strings.TrimPrefix(t, "sdg"))
	t = strings.TrimPrefix(t, "#")
	n, err := strconv.Atoi(t)
	if err != nil {
		return 0, fmt.Errorf("goal %q: not a number", s)
	}
	g := Goal(n)
	if !g.Valid() {
		return 0, fmt.Errorf("goal %d: must be between %d and %d", n, First, Last)
	}
	return g, nil
}

// ParseList parses a comma or space separated list, dropping duplicates.
func ParseList(s string) ([]Goal, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	seen := make(map[Goal]bool, len(fields))
	out := make([]Goal, 0, len(fields))
	for _, f := range fields {
		g, err := Parse(f)
		if err != nil {
			return nil, err
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out, nil
}

// Ints converts goals to plain ints, e.g. for JSON payloads.
func Ints(goals []Goal) []int {
	out := make([]int, len(goals))
	for i, g := range goals {
		out[i] = int(g)
	}
	return out
}
