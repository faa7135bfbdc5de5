package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxFiles is the number of file-name columns in the ledger layout.
const MaxFiles = 10

// Submission is one accepted entry of the ledger. It is immutable once committed.
type Submission struct {
	ID             int                 `json:"id"`
	Event          Event               `json:"event"`
	Division       Division            `json:"division"`
	TeamNumber     int                 `json:"team_number"`
	SchoolName     string              `json:"school_name"`
	TeamName       string              `json:"team_name,omitempty"`
	StudentNames   string              `json:"student_names"`
	Notes          string              `json:"notes,omitempty"`
	HelicopterMode HelicopterMode      `json:"helicopter_mode,omitempty"`
	FlightDuration decimal.NullDecimal `json:"flight_duration"`
	PassCode       string              `json:"pass_code,omitempty"`
	LoadEstimate   decimal.NullDecimal `json:"load_estimate"`
	FileNames      []string            `json:"file_names"`
	Timestamp      time.Time           `json:"timestamp"`
}

// ValidationError collects every field problem found in a submission.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "\n")
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// cleanText trims s and converts CRLF and lone CR line endings to LF, the only
// form the ledger reads back.
func cleanText(s string) string {
	return strings.TrimSpace(lineEndings.Replace(s))
}

// Normalize cleans free-text fields and clears the event-specific fields that do not
// belong to the submission's event.
func (s *Submission) Normalize() {
	s.SchoolName = cleanText(s.SchoolName)
	s.TeamName = cleanText(s.TeamName)
	s.StudentNames = cleanText(s.StudentNames)
	s.Notes = cleanText(s.Notes)
	s.PassCode = cleanText(s.PassCode)

	if s.Event != EventHelicopterFinish {
		s.HelicopterMode = ""
		s.FlightDuration = decimal.NullDecimal{}
	}
	if s.Event != EventHelicopterStart && s.Event != EventHelicopterFinish {
		s.PassCode = ""
	}
	if s.Event != EventBridge {
		s.LoadEstimate = decimal.NullDecimal{}
	}
}

// Validate reports every missing or out-of-range field at once.
func (s *Submission) Validate() error {
	var problems []string
	required := func(ok bool, field string) {
		if !ok {
			problems = append(problems, fmt.Sprintf("%s is a required field", field))
		}
	}

	if s.ID < 0 {
		problems = append(problems, fmt.Sprintf("Submission ID '%d' must be a non-negative integer", s.ID))
	}
	required(s.Event.Valid(), "the event name (in the URL)")
	required(s.Division.Valid(), "Division")
	if s.TeamNumber < 1 {
		problems = append(problems, "Team Number must be a positive integer")
	}
	required(s.SchoolName != "", "School Name")
	required(s.StudentNames != "", "Student Name(s)")
	if s.Event == EventHelicopterFinish {
		required(s.HelicopterMode != "", "Kind of Submission")
	}
	if s.Event == EventHelicopterStart {
		required(s.PassCode != "", "Pass Code")
	}
	required(!s.Timestamp.IsZero(), "timeStamp")
	if len(s.FileNames) > MaxFiles {
		problems = append(problems, fmt.Sprintf("At most %d files may be attached", MaxFiles))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// FinishTime is the deadline for a Helicopter final submission, one hour after the start.
func (s *Submission) FinishTime() time.Time {
	return s.Timestamp.Add(time.Hour)
}
