package curriculum

// Belt is a tier of the curriculum covering the contiguous day range
// [StartDay, EndDay].
type Belt struct {
	Name     string `json:"name" yaml:"name"`
	Color    string `json:"color" yaml:"color"`
	StartDay int    `json:"startDay" yaml:"startDay"`
	EndDay   int    `json:"endDay" yaml:"endDay"`

	// Days optionally carries the per-day titles the catalog was served with.
	Days []DayInfo `json:"days,omitempty" yaml:"-"`
}

// DayInfo is the catalog's summary of one day.
type DayInfo struct {
	Day   int    `json:"day"`
	Title string `json:"title"`
}

// DayCount returns the number of days in the belt.
func (b Belt) DayCount() int {
	return b.EndDay - b.StartDay + 1
}

// Contains reports whether day falls inside the belt's window.
func (b Belt) Contains(day int) bool {
	return day >= b.StartDay && day <= b.EndDay
}

// Title returns the catalog title for day, if the catalog carried one.
func (b Belt) Title(day int) string {
	for _, d := range b.Days {
		if d.Day == day {
			return d.Title
		}
	}
	return ""
}
