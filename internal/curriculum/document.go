package curriculum

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var defaultCurriculum []byte

// Document is a full curriculum: the belt catalog plus every lesson.
type Document struct {
	Catalog *Catalog
	lessons map[int]Lesson
}

type documentFile struct {
	Belts []beltFile `yaml:"belts"`
}

type beltFile struct {
	Belt    `yaml:",inline"`
	Lessons []Lesson `yaml:"lessons"`
}

// Default returns the curriculum embedded in the binary.
func Default() (*Document, error) {
	return Parse(defaultCurriculum)
}

// LoadFile parses a curriculum YAML file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	return Parse(data)
}

// Parse decodes curriculum YAML and validates that belts partition the day
// range and that every day has exactly one lesson inside its belt.
func Parse(data []byte) (*Document, error) {
	var f documentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}

	belts := make([]Belt, 0, len(f.Belts))
	lessons := make(map[int]Lesson)
	var errs []string

	for _, bf := range f.Belts {
		b := bf.Belt
		for _, l := range bf.Lessons {
			if !b.Contains(l.Day) {
				errs = append(errs, fmt.Sprintf("lesson day %d lies outside belt %q (%d-%d)", l.Day, b.Name, b.StartDay, b.EndDay))
				continue
			}
			if _, dup := lessons[l.Day]; dup {
				errs = append(errs, fmt.Sprintf("duplicate lesson for day %d", l.Day))
				continue
			}
			lessons[l.Day] = l
			b.Days = append(b.Days, DayInfo{Day: l.Day, Title: l.Title})
		}
		sort.Slice(b.Days, func(i, j int) bool { return b.Days[i].Day < b.Days[j].Day })
		belts = append(belts, b)
	}

	catalog, err := NewCatalog(belts)
	if err != nil {
		return nil, err
	}

	for d := 1; d <= catalog.TotalDays(); d++ {
		if _, ok := lessons[d]; !ok {
			errs = append(errs, fmt.Sprintf("no lesson for day %d", d))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("curriculum validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return &Document{Catalog: catalog, lessons: lessons}, nil
}

// Lesson returns the lesson for day.
func (d *Document) Lesson(day int) (Lesson, bool) {
	l, ok := d.lessons[day]
	return l, ok
}
