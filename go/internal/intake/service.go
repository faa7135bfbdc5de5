package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/eligibility"
	"github.com/mcdev12/fileupload/go/internal/ledger"
	"github.com/mcdev12/fileupload/go/internal/models"
)

// FileFields are the multipart fields carrying attachments, in slot order.
var FileFields = []string{"fileA", "fileB", "fileC", "fileD", "fileE", "fileF", "fileG", "fileH", "fileI", "fileJ"}

const displayTimeLayout = "2006-01-02, at 15:04:05 (MST)"

// IntakeApp defines what the service layer needs from the intake application
type IntakeApp interface {
	Submit(ctx context.Context, eventURI string, form Form, uploads []*Upload) (*models.Submission, error)
}

// Service exposes the intake App over HTTP.
type Service struct {
	app          IntakeApp
	loc          *time.Location
	maxBodyBytes int64
}

// NewService creates a new intake HTTP service. Times in responses are shown in loc.
func NewService(app IntakeApp, loc *time.Location, maxBodyBytes int64) *Service {
	return &Service{app: app, loc: loc, maxBodyBytes: maxBodyBytes}
}

// RegisterRoutes registers the intake routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /fileUpload/{event}", s.HandleSubmit)
	mux.HandleFunc("GET /events", s.HandleListEvents)
}

// SubmitResponse is returned for an accepted submission.
type SubmitResponse struct {
	Submission     models.Submission `json:"submission"`
	SubmissionTime string            `json:"submissionTime"`
	FinishTime     string            `json:"finishTime,omitempty"`
	FinishURL      string            `json:"finishUrl,omitempty"`
}

// ErrorResponse is returned for a rejected submission.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Problems []string `json:"problems,omitempty"`
}

// HandleSubmit accepts a multipart submission for the event in the path.
func (s *Service) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: fmt.Sprintf("failed to read form: %v", err)})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	form := Form{
		Division:       r.FormValue("division"),
		TeamNumber:     r.FormValue("teamNumber"),
		SchoolName:     r.FormValue("schoolName"),
		TeamName:       r.FormValue("teamName"),
		StudentNames:   r.FormValue("studentNames"),
		Notes:          r.FormValue("notes"),
		HelicopterMode: r.FormValue("helicopterMode"),
		FlightDuration: r.FormValue("flightDuration"),
		PassCode:       r.FormValue("passCode"),
		LoadEstimate:   r.FormValue("loadEstimate"),
	}

	uploads, closeAll, err := openUploads(r.MultipartForm)
	defer closeAll()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
		return
	}

	eventURI := r.PathValue("event")
	sub, err := s.app.Submit(r.Context(), eventURI, form, uploads)
	if err != nil {
		status, resp := errorResponse(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("event", eventURI).Msg("Submission failed")
		}
		writeJSON(w, status, resp)
		return
	}

	resp := SubmitResponse{
		Submission:     *sub,
		SubmissionTime: sub.Timestamp.In(s.loc).Format(displayTimeLayout),
	}
	if sub.Event == models.EventHelicopterStart {
		resp.FinishTime = sub.FinishTime().In(s.loc).Format(displayTimeLayout)
		resp.FinishURL = "/fileUpload/" + models.EventHelicopterFinish.URI()
	}
	writeJSON(w, http.StatusOK, resp)
}

func openUploads(mf *multipart.Form) ([]*Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	uploads := make([]*Upload, len(FileFields))
	if mf == nil {
		return uploads, closeAll, nil
	}
	for i, field := range FileFields {
		headers := mf.File[field]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to open %s: %w", field, err)
		}
		files = append(files, f)
		uploads[i] = &Upload{Field: field, FileName: fh.Filename, Size: fh.Size, Content: f}
	}
	return uploads, closeAll, nil
}

func errorResponse(err error) (int, ErrorResponse) {
	var (
		ve *models.ValidationError
		ee *models.EnumError
		ie *eligibility.IneligibilityError
		fe *FileStoreError
		se *ledger.StorageError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ErrorResponse{Error: "validation", Message: ve.Error(), Problems: ve.Problems}
	case errors.As(err, &ee):
		return http.StatusBadRequest, ErrorResponse{Error: "validation", Message: ee.Error()}
	case errors.As(err, &ie):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "ineligible", Message: ie.Message}
	case errors.As(err, &fe), errors.As(err, &se):
		return http.StatusInternalServerError, ErrorResponse{Error: "storage", Message: "The submission could not be saved. Please try again."}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "Internal error"}
	}
}

// EventInfo describes one event for form clients.
type EventInfo struct {
	Name         string   `json:"name"`
	URI          string   `json:"uri"`
	Label        string   `json:"label"`
	Divisions    []string `json:"divisions"`
	NotesUpload  bool     `json:"notesUpload"`
	TemplateName string   `json:"templateName"`
}

// HandleListEvents lists every event sorted by label.
func (s *Service) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	events := models.AllEvents()
	out := make([]EventInfo, 0, len(events))
	for _, ev := range events {
		var divs []string
		for _, d := range ev.Divisions() {
			divs = append(divs, string(d))
		}
		out = append(out, EventInfo{
			Name:         string(ev),
			URI:          ev.URI(),
			Label:        ev.Label(),
			Divisions:    divs,
			NotesUpload:  ev.NotesUpload(),
			TemplateName: ev.TemplateName(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
