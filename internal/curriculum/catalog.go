package curriculum

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog is the validated, ordered belt list. Belts partition [1..TotalDays]
// into contiguous, non-overlapping windows ordered by StartDay.
type Catalog struct {
	belts []Belt
}

// NewCatalog sorts belts by StartDay and validates the partition.
func NewCatalog(belts []Belt) (*Catalog, error) {
	sorted := make([]Belt, len(belts))
	copy(sorted, belts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDay < sorted[j].StartDay
	})

	if err := validateBelts(sorted); err != nil {
		return nil, err
	}
	return &Catalog{belts: sorted}, nil
}

// validateBelts performs all structural checks on an ordered belt list.
// Returns a combined error describing all problems found, or nil if valid.
func validateBelts(belts []Belt) error {
	if len(belts) == 0 {
		return fmt.Errorf("catalog validation failed: no belts")
	}

	var errs []string
	names := make(map[string]bool, len(belts))

	for i, b := range belts {
		if strings.TrimSpace(b.Name) == "" {
			errs = append(errs, fmt.Sprintf("belt %d has no name", i))
		}
		if names[b.Name] {
			errs = append(errs, fmt.Sprintf("duplicate belt name: %q", b.Name))
		}
		names[b.Name] = true

		if b.EndDay < b.StartDay {
			errs = append(errs, fmt.Sprintf("belt %q ends (day %d) before it starts (day %d)", b.Name, b.EndDay, b.StartDay))
		}

		if i == 0 {
			if b.StartDay != 1 {
				errs = append(errs, fmt.Sprintf("first belt %q must start at day 1, got %d", b.Name, b.StartDay))
			}
			continue
		}
		prev := belts[i-1]
		if b.StartDay != prev.EndDay+1 {
			errs = append(errs, fmt.Sprintf("belt %q starts at day %d, want %d (right after %q)", b.Name, b.StartDay, prev.EndDay+1, prev.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Belts returns the belts in day order.
func (c *Catalog) Belts() []Belt {
	out := make([]Belt, len(c.belts))
	copy(out, c.belts)
	return out
}

// First returns the first belt.
func (c *Catalog) First() Belt {
	return c.belts[0]
}

// TotalDays returns the curriculum length N.
func (c *Catalog) TotalDays() int {
	return c.belts[len(c.belts)-1].EndDay
}

// BeltFor returns the belt whose window contains day.
func (c *Catalog) BeltFor(day int) (Belt, bool) {
	i := c.indexOf(day)
	if i < 0 {
		return Belt{}, false
	}
	return c.belts[i], true
}

// BeltByName looks a belt up by name, ignoring case.
func (c *Catalog) BeltByName(name string) (Belt, bool) {
	for _, b := range c.belts {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return Belt{}, false
}

// Title returns the catalog title for day, or "Day N" when none was served.
func (c *Catalog) Title(day int) string {
	if b, ok := c.BeltFor(day); ok {
		if t := b.Title(day); t != "" {
			return t
		}
	}
	return fmt.Sprintf("Day %d", day)
}

func (c *Catalog) indexOf(day int) int {
	i := sort.Search(len(c.belts), func(i int) bool {
		return c.belts[i].EndDay >= day
	})
	if i < len(c.belts) && c.belts[i].Contains(day) {
		return i
	}
	return -1
}
