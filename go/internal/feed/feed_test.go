package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/fileupload/go/internal/models"
	"github.com/mcdev12/fileupload/go/internal/notify"
)

func startFeed(t *testing.T) (*ConnectionManager, *httptest.Server) {
	t.Helper()
	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return cm, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/submissions" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func event(id int, ev models.Event) notify.Event {
	return notify.Accepted(models.Submission{
		ID:           id,
		Event:        ev,
		Division:     models.DivisionB,
		TeamNumber:   31,
		SchoolName:   "Hook Middle",
		StudentNames: "Ada",
		Timestamp:    time.Date(2021, 2, 6, 15, 0, 0, 0, time.UTC),
	}, time.Now())
}

func TestBroadcastBySubscription(t *testing.T) {
	cm, srv := startFeed(t)

	all := dial(t, srv, "")
	wici := dial(t, srv, "?event=wici")
	require.Eventually(t, func() bool {
		return cm.GetConnectionStats().TotalConnections == 2
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, cm.Publish(context.Background(), event(1, models.EventVehicleDesign)))
	require.NoError(t, cm.Publish(context.Background(), event(2, models.EventWICI)))

	var msg Message
	require.NoError(t, all.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, all.ReadJSON(&msg))
	assert.Equal(t, 1, msg.Submission.ID)
	assert.Equal(t, notify.EventTypeAccepted, msg.Type)
	require.NoError(t, all.ReadJSON(&msg))
	assert.Equal(t, 2, msg.Submission.ID)

	require.NoError(t, wici.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, wici.ReadJSON(&msg))
	assert.Equal(t, 2, msg.Submission.ID, "wici subscriber only sees wici submissions")
	assert.Equal(t, models.EventWICI, msg.Submission.Event)
}

func TestUnknownEventIsRejected(t *testing.T) {
	_, srv := startFeed(t)

	resp, err := http.Get(srv.URL + "/ws/submissions?event=quidditch")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	cm, srv := startFeed(t)
	dial(t, srv, "?event=bridge")
	require.Eventually(t, func() bool {
		return cm.GetConnectionStats().TotalConnections == 1
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ByEvent["bridge"])
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	for i := 0; i < cap(cm.broadcastCh); i++ {
		require.NoError(t, cm.Publish(context.Background(), event(i, models.EventWICI)))
	}
	assert.ErrorIs(t, cm.Publish(context.Background(), event(-1, models.EventWICI)), ErrQueueFull)
}
