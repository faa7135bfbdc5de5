package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/fileupload/go/internal/ledger"
)

func newTestServer(t *testing.T, h *harness) *httptest.Server {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewService(h.app, loc, 1<<20).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postForm(t *testing.T, srv *httptest.Server, event string, fields map[string]string, files map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("contents of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/fileUpload/"+event, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func validFields() map[string]string {
	return map[string]string{
		"division":     "B",
		"teamNumber":   "31",
		"schoolName":   "Hook Middle",
		"studentNames": "Ada, Grace",
	}
}

func TestHandleSubmitAccepted(t *testing.T) {
	h := newHarness()
	srv := newTestServer(t, h)

	resp := postForm(t, srv, "vehicleDesign", validFields(), map[string]string{
		"fileA": "design.pdf",
		"fileC": "photo.jpg",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 42, got.Submission.ID)
	assert.Equal(t, []string{"B31-design-042a.pdf", "B31-photo-042c.jpg"}, got.Submission.FileNames)
	assert.Equal(t, "2021-02-06, at 10:30:00 (EST)", got.SubmissionTime)
	assert.Empty(t, got.FinishTime)
	assert.Equal(t, "contents of photo.jpg", h.files.stored["vehicleDesign-B/B31-photo-042c.jpg"])
}

func TestHandleSubmitHelicopterStart(t *testing.T) {
	h := newHarness()
	srv := newTestServer(t, h)

	resp := postForm(t, srv, "helicopterStart", validFields(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Regexp(t, `^[A-Z]{5,7}$`, got.Submission.PassCode)
	assert.Equal(t, "2021-02-06, at 11:30:00 (EST)", got.FinishTime)
	assert.Equal(t, "/fileUpload/helicopterFinish", got.FinishURL)
}

func TestHandleSubmitErrors(t *testing.T) {
	tests := []struct {
		name       string
		event      string
		fields     func(map[string]string)
		setup      func(*harness)
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown event",
			event:      "quidditch",
			wantStatus: http.StatusBadRequest,
			wantError:  "validation",
		},
		{
			name:       "missing school",
			event:      "vehicleDesign",
			fields:     func(f map[string]string) { delete(f, "schoolName") },
			wantStatus: http.StatusBadRequest,
			wantError:  "validation",
		},
		{
			name:       "not on roster",
			event:      "vehicleDesign",
			fields:     func(f map[string]string) { f["teamNumber"] = "30" },
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "ineligible",
		},
		{
			name:       "event not offered",
			event:      "vehicleDesign",
			fields:     func(f map[string]string) { f["division"] = "C"; f["teamNumber"] = "43" },
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "ineligible",
		},
		{
			name:  "ledger failure",
			event: "vehicleDesign",
			setup: func(h *harness) {
				h.ledger.err = &ledger.StorageError{Op: "replace", Err: errors.New("disk full")}
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "storage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			if tt.setup != nil {
				tt.setup(h)
			}
			srv := newTestServer(t, h)
			fields := validFields()
			if tt.fields != nil {
				tt.fields(fields)
			}

			resp := postForm(t, srv, tt.event, fields, map[string]string{"fileA": "a.pdf"})
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var got ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.wantError, got.Error)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestHandleSubmitValidationProblems(t *testing.T) {
	h := newHarness()
	srv := newTestServer(t, h)

	resp := postForm(t, srv, "vehicleDesign", map[string]string{"teamNumber": "-3"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.ElementsMatch(t, []string{
		"Team Number must be a positive integer",
		"Division is a required field",
		"School Name is a required field",
		"Student Name(s) is a required field",
	}, got.Problems)
}

func TestHandleListEvents(t *testing.T) {
	srv := newTestServer(t, newHarness())

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []EventInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].Label, events[i].Label)
	}

	var forensics EventInfo
	for _, ev := range events {
		if ev.Name == "FORENSICS" {
			forensics = ev
		}
	}
	assert.Equal(t, []string{"C"}, forensics.Divisions)
	assert.True(t, forensics.NotesUpload)
	assert.Equal(t, "notes", forensics.TemplateName)
}
