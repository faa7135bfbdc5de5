package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/fileupload/go/internal/models"
)

// Stage identifies which filter rejected a submission.
type Stage string

const (
	StageOffering   Stage = "offering"
	StageTimeWindow Stage = "time_window"
	StageRoster     Stage = "roster"
)

// IneligibilityError is returned when no tournament accepts the submission.
type IneligibilityError struct {
	Stage   Stage
	Message string
}

func (e *IneligibilityError) Error() string { return e.Message }

// Candidate is the part of a submission the checks look at.
type Candidate struct {
	Event      models.Event
	Division   models.Division
	TeamNumber int
	Timestamp  time.Time
}

// CandidateOf extracts the eligibility fields of a submission.
func CandidateOf(s *models.Submission) Candidate {
	return Candidate{
		Event:      s.Event,
		Division:   s.Division,
		TeamNumber: s.TeamNumber,
		Timestamp:  s.Timestamp,
	}
}

// Validate runs the offering, time-window and roster checks in that order. Each
// check narrows the tournaments left by the previous one and the first check
// that leaves none decides the error.
func Validate(c Candidate, tournaments []models.Tournament) error {
	eventDiv := fmt.Sprintf("%s-%s", c.Event.Label(), c.Division)

	offering := filter(tournaments, func(t models.Tournament) bool {
		return t.Offers(c.Event, c.Division)
	})
	if len(offering) == 0 {
		return &IneligibilityError{
			Stage:   StageOffering,
			Message: fmt.Sprintf("%s is not an event in division %s.", c.Event.Label(), c.Division),
		}
	}

	open := filter(offering, func(t models.Tournament) bool {
		ti, _ := t.Window(c.Event, c.Division)
		return ti.Contains(c.Timestamp)
	})
	if len(open) == 0 {
		return &IneligibilityError{
			Stage:   StageTimeWindow,
			Message: fmt.Sprintf("%s is not accepting submissions at this time.", eventDiv),
		}
	}

	competing := filter(open, func(t models.Tournament) bool {
		return t.HasTeam(c.Division, c.TeamNumber)
	})
	if len(competing) == 0 {
		names := make([]string, len(open))
		for i, t := range open {
			names[i] = t.Name
		}
		return &IneligibilityError{
			Stage: StageRoster,
			Message: fmt.Sprintf(
				"Team %s%d is not competing at any of the tournaments that are accepting %s submissions (%s).",
				c.Division, c.TeamNumber, eventDiv, strings.Join(names, ", ")),
		}
	}
	return nil
}

func filter(in []models.Tournament, keep func(models.Tournament) bool) []models.Tournament {
	var out []models.Tournament
	for _, t := range in {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Validator binds a loaded schedule. It is safe for concurrent use since the
// schedule is never modified after load.
type Validator struct {
	tournaments []models.Tournament
}

// NewValidator returns a Validator over tournaments.
func NewValidator(tournaments []models.Tournament) *Validator {
	return &Validator{tournaments: tournaments}
}

// Validate checks s against the bound schedule.
func (v *Validator) Validate(s *models.Submission) error {
	return Validate(CandidateOf(s), v.tournaments)
}

// Tournaments returns the bound schedule.
func (v *Validator) Tournaments() []models.Tournament {
	return v.tournaments
}
