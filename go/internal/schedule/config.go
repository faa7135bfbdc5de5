package schedule

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/fileupload/go/internal/models"
	"github.com/mcdev12/fileupload/go/internal/rangeset"
)

const (
	dateLayout = "2006-01-02"
)

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type document struct {
	Tournaments []tournamentDoc `yaml:"tournaments"`
}

type tournamentDoc struct {
	Name   string            `yaml:"name"`
	Date   string            `yaml:"date"`
	Teams  map[string]string `yaml:"teams"`
	Events []eventDoc        `yaml:"events"`
}

// Interval keys are kept as raw nodes so that a key given with no value
// ("BC:") can be told apart from a key that is missing.
type eventDoc struct {
	Name string    `yaml:"name"`
	A    yaml.Node `yaml:"A"`
	B    yaml.Node `yaml:"B"`
	C    yaml.Node `yaml:"C"`
	BC   yaml.Node `yaml:"BC"`
}

type intervalDoc struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadLocation resolves the time zone every schedule date and time is read in.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", name, err)
	}
	return loc, nil
}

// LoadFile reads the schedule document at path.
func LoadFile(path string, loc *time.Location) ([]models.Tournament, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to open schedule file: %w", err)}
	}
	defer f.Close()
	return Load(f, loc)
}

// Load parses a schedule document. Local dates and times are interpreted in loc.
// Either every tournament loads or an error is returned.
func Load(r io.Reader, loc *time.Location) ([]models.Tournament, error) {
	if loc == nil {
		return nil, &ConfigError{Err: errors.New("no time zone configured")}
	}

	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ConfigError{Err: errors.New("document is empty")}
		}
		return nil, &ConfigError{Err: fmt.Errorf("failed to parse document: %w", err)}
	}
	if len(doc.Tournaments) == 0 {
		return nil, &ConfigError{Err: errors.New("no tournaments defined")}
	}

	seen := make(map[string]bool, len(doc.Tournaments))
	tournaments := make([]models.Tournament, 0, len(doc.Tournaments))
	for _, td := range doc.Tournaments {
		t, err := convertTournament(td, loc)
		if err != nil {
			return nil, err
		}
		if seen[t.Name] {
			return nil, &ConfigError{Tournament: t.Name, Err: errors.New("duplicate tournament name")}
		}
		seen[t.Name] = true
		tournaments = append(tournaments, t)
	}
	return tournaments, nil
}

func convertTournament(td tournamentDoc, loc *time.Location) (models.Tournament, error) {
	name := strings.TrimSpace(td.Name)
	if name == "" {
		return models.Tournament{}, &ConfigError{Err: errors.New("tournament has no name")}
	}
	fail := func(event string, err error) error {
		return &ConfigError{Tournament: name, Event: event, Err: err}
	}

	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(td.Date), loc)
	if err != nil {
		return models.Tournament{}, fail("", fmt.Errorf("invalid date %q: %w", td.Date, err))
	}

	teams := make(map[models.Division]rangeset.Set, len(td.Teams))
	for key, descriptor := range td.Teams {
		div, err := models.ParseDivision(key)
		if err != nil {
			return models.Tournament{}, fail("", fmt.Errorf("invalid teams key: %w", err))
		}
		set, err := rangeset.Parse(descriptor)
		if err != nil {
			return models.Tournament{}, fail("", fmt.Errorf("invalid team list for division %s: %w", div, err))
		}
		teams[div] = set
	}

	events := make(map[models.Event]map[models.Division]models.TimeInterval, len(td.Events))
	for _, ed := range td.Events {
		ev, err := models.ParseEvent(ed.Name)
		if err != nil {
			return models.Tournament{}, fail(ed.Name, err)
		}
		if _, dup := events[ev]; dup {
			return models.Tournament{}, fail(ed.Name, errors.New("duplicate event"))
		}
		intervals, err := convertIntervals(ev, ed, date, loc)
		if err != nil {
			return models.Tournament{}, fail(ed.Name, err)
		}
		events[ev] = intervals
	}

	return models.Tournament{Name: name, Date: date, Teams: teams, Events: events}, nil
}

func present(n *yaml.Node) bool { return n.Kind != 0 }

func convertIntervals(ev models.Event, ed eventDoc, date time.Time, loc *time.Location) (map[models.Division]models.TimeInterval, error) {
	result := make(map[models.Division]models.TimeInterval, 2)

	if present(&ed.BC) {
		if present(&ed.A) || present(&ed.B) || present(&ed.C) {
			return nil, errors.New("cannot have an A, B, or C time interval if it has a BC one")
		}
		ti, err := convertInterval(&ed.BC, date, loc)
		if err != nil {
			return nil, fmt.Errorf("BC interval: %w", err)
		}
		result[models.DivisionB] = ti
		result[models.DivisionC] = ti
	} else {
		for _, d := range []struct {
			div  models.Division
			node *yaml.Node
		}{
			{models.DivisionA, &ed.A},
			{models.DivisionB, &ed.B},
			{models.DivisionC, &ed.C},
		} {
			if !present(d.node) {
				continue
			}
			ti, err := convertInterval(d.node, date, loc)
			if err != nil {
				return nil, fmt.Errorf("%s interval: %w", d.div, err)
			}
			result[d.div] = ti
		}
	}

	if len(result) == 0 {
		return nil, errors.New("has no time interval")
	}
	for div := range result {
		if !ev.OfferedIn(div) {
			return nil, fmt.Errorf("is not offered in division %s (only %s)", div, ev.DivisionsString())
		}
	}
	return result, nil
}

func convertInterval(n *yaml.Node, date time.Time, loc *time.Location) (models.TimeInterval, error) {
	var doc intervalDoc
	switch {
	case n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null":
	case n.Kind == yaml.MappingNode:
		if err := n.Decode(&doc); err != nil {
			return models.TimeInterval{}, fmt.Errorf("failed to decode interval: %w", err)
		}
	default:
		return models.TimeInterval{}, fmt.Errorf("line %d: expected a {from, to} mapping", n.Line)
	}

	if strings.TrimSpace(doc.From) == "" || strings.TrimSpace(doc.To) == "" {
		return models.WholeDay(date, loc), nil
	}
	from, err := parseLocal(doc.From, loc)
	if err != nil {
		return models.TimeInterval{}, err
	}
	to, err := parseLocal(doc.To, loc)
	if err != nil {
		return models.TimeInterval{}, err
	}
	if from.After(to) {
		return models.TimeInterval{}, fmt.Errorf("from %q is after to %q", doc.From, doc.To)
	}
	return models.NewTimeInterval(from, to), nil
}

func parseLocal(s string, loc *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid local date-time %q", s)
}
