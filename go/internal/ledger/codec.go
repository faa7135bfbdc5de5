package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdev12/fileupload/go/internal/models"
)

// ErrUnknownLayout is returned when a ledger header does not match the layout
// this package writes.
var ErrUnknownLayout = errors.New("unknown ledger layout")

const (
	colID = iota
	colEvent
	colDivision
	colTeamNumber
	colSchoolName
	colTeamName
	colStudentNames
	colNotes
	colHelicopterMode
	colFlightDuration
	colPassCode
	colLoadEstimate
	colTimeStamp
	colFirstFileName
)

var fixedColumns = []string{
	"ID",
	"EVENT",
	"DIVISION",
	"TEAM_NUMBER",
	"SCHOOL_NAME",
	"TEAM_NAME",
	"STUDENT_NAMES",
	"NOTES",
	"HELICOPTER_MODE",
	"FLIGHT_DURATION",
	"PASS_CODE",
	"LOAD_ESTIMATE",
	"UTC_TIME_STAMP",
}

// Header returns the column names of the ledger layout.
func Header() []string {
	h := append([]string(nil), fixedColumns...)
	for i := 0; i < models.MaxFiles; i++ {
		h = append(h, fmt.Sprintf("FILE_NAME_%d", i))
	}
	return h
}

// RowError locates a ledger row that failed to parse.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("ledger line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Encode writes the header followed by one row per record.
func Encode(w io.Writer, records []models.Submission) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range records {
		row, err := encodeRow(&records[i])
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", records[i].ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeRow(s *models.Submission) ([]string, error) {
	if len(s.FileNames) > models.MaxFiles {
		return nil, fmt.Errorf("record %d has %d files, at most %d fit", s.ID, len(s.FileNames), models.MaxFiles)
	}
	row := make([]string, colFirstFileName+models.MaxFiles)
	row[colID] = strconv.Itoa(s.ID)
	row[colEvent] = string(s.Event)
	row[colDivision] = string(s.Division)
	row[colTeamNumber] = strconv.Itoa(s.TeamNumber)
	row[colSchoolName] = s.SchoolName
	row[colTeamName] = s.TeamName
	row[colStudentNames] = s.StudentNames
	row[colNotes] = s.Notes
	row[colHelicopterMode] = string(s.HelicopterMode)
	row[colFlightDuration] = nullDecimal(s.FlightDuration)
	row[colPassCode] = s.PassCode
	row[colLoadEstimate] = nullDecimal(s.LoadEstimate)
	row[colTimeStamp] = s.Timestamp.UTC().Format(time.RFC3339Nano)
	copy(row[colFirstFileName:], s.FileNames)
	return row, nil
}

func nullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// Decode reads a ledger written by Encode. Any malformed field fails the whole
// read. An empty input decodes to no records.
func Decode(r io.Reader) ([]models.Submission, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !sameColumns(header, Header()) {
		return nil, fmt.Errorf("%w: header %q", ErrUnknownLayout, strings.Join(header, ","))
	}

	var records []models.Submission
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		s, err := decodeRow(row)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		records = append(records, s)
	}
	return records, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != b[i] {
			return false
		}
	}
	return true
}

func decodeRow(row []string) (models.Submission, error) {
	var s models.Submission
	var err error

	if s.ID, err = strconv.Atoi(strings.TrimSpace(row[colID])); err != nil {
		return s, fmt.Errorf("invalid ID %q: %w", row[colID], err)
	}
	if s.Event, err = models.ParseEvent(row[colEvent]); err != nil {
		return s, err
	}
	if s.Division, err = models.ParseDivision(row[colDivision]); err != nil {
		return s, err
	}
	if s.TeamNumber, err = strconv.Atoi(strings.TrimSpace(row[colTeamNumber])); err != nil {
		return s, fmt.Errorf("invalid team number %q: %w", row[colTeamNumber], err)
	}
	s.SchoolName = row[colSchoolName]
	s.TeamName = row[colTeamName]
	s.StudentNames = row[colStudentNames]
	s.Notes = row[colNotes]
	if mode := strings.TrimSpace(row[colHelicopterMode]); mode != "" {
		if s.HelicopterMode, err = models.ParseHelicopterMode(mode); err != nil {
			return s, err
		}
	}
	if s.FlightDuration, err = parseNullDecimal("flight duration", row[colFlightDuration]); err != nil {
		return s, err
	}
	s.PassCode = row[colPassCode]
	if s.LoadEstimate, err = parseNullDecimal("load estimate", row[colLoadEstimate]); err != nil {
		return s, err
	}
	if s.Timestamp, err = time.Parse(time.RFC3339Nano, strings.TrimSpace(row[colTimeStamp])); err != nil {
		return s, fmt.Errorf("invalid time stamp %q: %w", row[colTimeStamp], err)
	}
	s.Timestamp = s.Timestamp.UTC()
	for _, name := range row[colFirstFileName:] {
		if name != "" {
			s.FileNames = append(s.FileNames, name)
		}
	}
	return s, nil
}

func parseNullDecimal(field, v string) (decimal.NullDecimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid %s %q: %w", field, v, err)
	}
	return decimal.NewNullDecimal(d), nil
}
