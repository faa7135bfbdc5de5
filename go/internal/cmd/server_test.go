package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/fileupload/go/internal/config"
	"github.com/mcdev12/fileupload/go/internal/feed"
	"github.com/mcdev12/fileupload/go/internal/intake"
	"github.com/mcdev12/fileupload/go/internal/ledger"
)

func TestSetupServerRoutes(t *testing.T) {
	app := intake.NewApp(intake.Deps{})
	server := setupServer(":0",
		intake.NewService(app, time.UTC, 0),
		feed.NewWebSocketHandler(feed.NewConnectionManager(feed.DefaultConnectionConfig())),
	)
	srv := httptest.NewServer(server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	events, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer events.Body.Close()
	assert.Equal(t, http.StatusOK, events.StatusCode)
	assert.Equal(t, "*", events.Header.Get("Access-Control-Allow-Origin"), "cors applies")
}

func TestSetupStorageFilesystem(t *testing.T) {
	cfg := config.Config{
		StorageBackend: config.StorageFS,
		SubmissionRoot: t.TempDir(),
		LedgerFileName: "submissions.csv",
	}
	backing, err := setupStorage(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer backing.Close()

	store, err := ledger.Open(context.Background(), backing.backend, ledger.Options{})
	require.NoError(t, err)
	assert.Equal(t, -1, store.MaxID())
	assert.NotNil(t, backing.files)
}

func TestSetupStorageUnknownBackend(t *testing.T) {
	_, err := setupStorage(context.Background(), config.Config{StorageBackend: "s3"}, nil)
	assert.Error(t, err)
}
