package config

import (
	"fmt"
	"sort"
)

// Period is a named span of years, inclusive at both ends. Years before the
// common era are negative.
type Period struct {
	Name  string `yaml:"name"`
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
}

// Contains reports whether year falls inside p.
func (p Period) Contains(year int) bool { return year >= p.Start && year <= p.End }

// Chronology is an ordered list of periods. Declaration order is
// chronological order: starts may not decrease, and where two periods
// overlap the earlier one claims the shared years.
type Chronology struct {
	periods []Period
	index   map[string]int
}

// NewChronology validates periods and builds a Chronology.
func NewChronology(periods []Period) (*Chronology, error) {
	c := &Chronology{
		periods: append([]Period(nil), periods...),
		index:   make(map[string]int, len(periods)),
	}
	for i, p := range c.periods {
		if p.Name == "" {
			return nil, fmt.Errorf("period %d has no name", i)
		}
		if p.Start > p.End {
			return nil, fmt.Errorf("period %s starts after it ends (%d > %d)", p.Name, p.Start, p.End)
		}
		if _, dup := c.index[p.Name]; dup {
			return nil, fmt.Errorf("period %s declared twice", p.Name)
		}
		if i > 0 && p.Start < c.periods[i-1].Start {
			return nil, fmt.Errorf("period %s starts before %s", p.Name, c.periods[i-1].Name)
		}
		c.index[p.Name] = i
	}
	return c, nil
}

// PeriodFor returns the name of the first period containing year, or "".
func (c *Chronology) PeriodFor(year int) string {
	for _, p := range c.periods {
		if p.Contains(year) {
			return p.Name
		}
	}
	return ""
}

// Names returns period names in chronological order.
func (c *Chronology) Names() []string {
	out := make([]string, len(c.periods))
	for i, p := range c.periods {
		out[i] = p.Name
	}
	return out
}

// Lookup returns the named period.
func (c *Chronology) Lookup(name string) (Period, bool) {
	i, ok := c.index[name]
	if !ok {
		return Period{}, false
	}
	return c.periods[i], true
}

// Order sorts names chronologically. Names the chronology does not know are
// kept, after the known ones, in their given order.
func (c *Chronology) Order(names []string) []string {
	var known, unknown []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if _, ok := c.index[n]; ok {
			known = append(known, n)
		} else {
			unknown = append(unknown, n)
		}
	}
	sort.SliceStable(known, func(i, j int) bool { return c.index[known[i]] < c.index[known[j]] })
	return append(known, unknown...)
}
