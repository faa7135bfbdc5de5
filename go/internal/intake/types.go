package intake

import (
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mcdev12/fileupload/go/internal/models"
)

// Form holds the raw text fields of a submission as the sender typed them.
type Form struct {
	Division       string `json:"division"`
	TeamNumber     string `json:"teamNumber"`
	SchoolName     string `json:"schoolName"`
	TeamName       string `json:"teamName"`
	StudentNames   string `json:"studentNames"`
	Notes          string `json:"notes"`
	HelicopterMode string `json:"helicopterMode"`
	FlightDuration string `json:"flightDuration"`
	PassCode       string `json:"passCode"`
	LoadEstimate   string `json:"loadEstimate"`
}

// Upload is one attached file. A nil Upload or one with zero Size is an empty slot.
type Upload struct {
	Field    string // form field, used when the sender gave no file name
	FileName string
	Size     int64
	Content  io.Reader
}

// FileStoreError reports a failed upload transfer. Files already stored for the
// submission have been removed.
type FileStoreError struct {
	FileName string
	Err      error
}

func (e *FileStoreError) Error() string {
	return "failed to store uploaded file " + e.FileName + ": " + e.Err.Error()
}

func (e *FileStoreError) Unwrap() error { return e.Err }

// toSubmission parses the form strictly. Every bad field is reported, together
// with the missing required fields found by Submission.Validate.
func (f Form) toSubmission(ev models.Event) (models.Submission, []string) {
	s := models.Submission{
		Event:        ev,
		SchoolName:   f.SchoolName,
		TeamName:     f.TeamName,
		StudentNames: f.StudentNames,
		Notes:        f.Notes,
		PassCode:     f.PassCode,
	}
	var problems []string

	if v := strings.TrimSpace(f.Division); v != "" {
		d, err := models.ParseDivision(v)
		if err != nil {
			problems = append(problems, err.Error())
		}
		s.Division = d
	}
	if v := strings.TrimSpace(f.TeamNumber); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			problems = append(problems, "Team Number must be a positive integer")
		} else {
			s.TeamNumber = n
		}
	}
	if v := strings.TrimSpace(f.HelicopterMode); v != "" && ev == models.EventHelicopterFinish {
		m, err := models.ParseHelicopterMode(v)
		if err != nil {
			problems = append(problems, err.Error())
		}
		s.HelicopterMode = m
	}
	if v := strings.TrimSpace(f.FlightDuration); v != "" && ev == models.EventHelicopterFinish {
		d, err := parseDecimal("Flight Duration", v)
		if err != nil {
			problems = append(problems, err.Error())
		}
		s.FlightDuration = d
	}
	if v := strings.TrimSpace(f.LoadEstimate); v != "" && ev == models.EventBridge {
		d, err := parseDecimal("Load Estimate", v)
		if err != nil {
			problems = append(problems, err.Error())
		}
		s.LoadEstimate = d
	}
	return s, problems
}

func parseDecimal(field, v string) (decimal.NullDecimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, &models.EnumError{Field: field, Value: v, Allowed: []string{"a decimal number"}}
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, &models.EnumError{Field: field, Value: v, Allowed: []string{"a non-negative number"}}
	}
	return decimal.NewNullDecimal(d), nil
}
