// Package fixtures loads the student payloads driven through smoke runs.
package fixtures

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/students-e2e/internal/filecfg"
	"github.com/samvad-hq/students-e2e/pkg/students"
)

// RunPlaceholder is replaced by a per-run token in fixture names and emails.
const RunPlaceholder = "{{run}}"

// Fixture is one student exercised through the full CRUD cycle.
type Fixture struct {
	ID          string            `json:"id" yaml:"id"`
	Student     students.Student  `json:"student" yaml:"student"`
	Replacement *students.Student `json:"replace" yaml:"replace"`
	Patch       students.Patch    `json:"patch" yaml:"patch"`
	StepDelayMs int               `json:"step_delay_ms" yaml:"step_delay_ms"`
}

type fixtureFile struct {
	Fixtures []Fixture `json:"fixtures" yaml:"fixtures"`
}

// Set is an ordered, id-indexed collection of fixtures.
type Set struct {
	fixtures []Fixture
	idx      map[string]Fixture
}

// Load reads fixtures from a YAML/JSON file.
func Load(path string) (*Set, error) {
	var parsed fixtureFile
	if err := filecfg.Read(path, "fixtures", &parsed); err != nil {
		return nil, err
	}
	return newSet(parsed)
}

// Parse decodes fixture content. ext selects the decoder; empty means YAML.
func Parse(data []byte, ext string) (*Set, error) {
	var parsed fixtureFile
	if err := filecfg.Decode(data, ext, "fixtures", &parsed); err != nil {
		return nil, err
	}
	return newSet(parsed)
}

func newSet(parsed fixtureFile) (*Set, error) {
	if len(parsed.Fixtures) == 0 {
		return nil, errors.New("fixtures file contains no fixtures entries")
	}

	set := &Set{
		fixtures: make([]Fixture, len(parsed.Fixtures)),
		idx:      make(map[string]Fixture, len(parsed.Fixtures)),
	}
	for i := range parsed.Fixtures {
		f := sanitizeFixture(parsed.Fixtures[i])
		if err := validateFixture(f); err != nil {
			return nil, fmt.Errorf("fixtures[%d]: %w", i, err)
		}
		if _, exists := set.idx[f.ID]; exists {
			return nil, fmt.Errorf("duplicate fixture id %q", f.ID)
		}
		set.fixtures[i] = f
		set.idx[f.ID] = f
	}
	return set, nil
}

func sanitizeStudent(s students.Student) students.Student {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	return s
}

func sanitizeFixture(f Fixture) Fixture {
	f.ID = strings.TrimSpace(f.ID)
	f.Student = sanitizeStudent(f.Student)
	if f.Replacement != nil {
		r := sanitizeStudent(*f.Replacement)
		f.Replacement = &r
	}
	if f.StepDelayMs < 0 {
		f.StepDelayMs = 0
	}
	return f
}

func validateFixture(f Fixture) error {
	if f.ID == "" {
		return errors.New("id is required")
	}
	if err := validateStudent(f.Student); err != nil {
		return fmt.Errorf("student of fixture %q: %w", f.ID, err)
	}
	if f.Replacement != nil {
		if err := validateStudent(*f.Replacement); err != nil {
			return fmt.Errorf("replace of fixture %q: %w", f.ID, err)
		}
	}
	return nil
}

// validateStudent checks struct tags. The placeholder is expanded first so
// "user+{{run}}@example.com" passes the email rule.
func validateStudent(s students.Student) error {
	return filecfg.Validate(expand(s, "0"))
}

func expand(s students.Student, run string) students.Student {
	s.Name = strings.ReplaceAll(s.Name, RunPlaceholder, run)
	s.Email = strings.ReplaceAll(s.Email, RunPlaceholder, run)
	return s
}

// ForRun returns a copy with the run placeholder expanded and the replace
// and patch bodies defaulted.
func (f Fixture) ForRun(run string) Fixture {
	out := f
	out.Student = expand(f.Student, run)

	if f.Replacement != nil {
		r := expand(*f.Replacement, run)
		out.Replacement = &r
	} else {
		r := out.Student
		r.Name += " (replaced)"
		out.Replacement = &r
	}

	if len(f.Patch) == 0 {
		out.Patch = students.Patch{"age": out.Replacement.Age + 1}
	} else {
		out.Patch = make(students.Patch, len(f.Patch))
		for k, v := range f.Patch {
			if s, ok := v.(string); ok {
				v = strings.ReplaceAll(s, RunPlaceholder, run)
			}
			out.Patch[k] = v
		}
	}
	return out
}

// StepDelay returns the pause inserted between requests of this fixture.
func (f Fixture) StepDelay() time.Duration {
	return time.Duration(f.StepDelayMs) * time.Millisecond
}

// All returns a copy of the fixtures in file order.
func (s *Set) All() []Fixture {
	if s == nil {
		return nil
	}
	out := make([]Fixture, len(s.fixtures))
	copy(out, s.fixtures)
	return out
}

// ByID returns the fixture with the given id.
func (s *Set) ByID(id string) (Fixture, bool) {
	if s == nil {
		return Fixture{}, false
	}
	f, ok := s.idx[strings.TrimSpace(id)]
	return f, ok
}

// Len returns the number of fixtures.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fixtures)
}
