package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/fileupload/go/internal/models"
)

var baseTime = time.Date(2021, 2, 6, 15, 4, 5, 123000000, time.UTC)

func submission(id int) models.Submission {
	return models.Submission{
		ID:           id,
		Event:        models.EventVehicleDesign,
		Division:     models.DivisionB,
		TeamNumber:   31,
		SchoolName:   "Hook Middle",
		TeamName:     "Blue, \"the\" best",
		StudentNames: "Ada\nGrace",
		Timestamp:    baseTime.Add(time.Duration(id) * time.Minute),
		FileNames:    []string{fmt.Sprintf("B31-vehicleDesign-%03da.pdf", id)},
	}
}

func TestOpenMissingLedger(t *testing.T) {
	s, err := Open(context.Background(), &memBackend{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, -1, s.MaxID())
}

func TestCommitThreeAndReload(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s, err := Open(ctx, backend, Options{})
	require.NoError(t, err)

	finish := submission(2)
	finish.Event = models.EventHelicopterFinish
	finish.HelicopterMode = models.HelicopterOneHelicopterOneStudentOneVid
	finish.FlightDuration = decimal.NewNullDecimal(decimal.RequireFromString("37.12"))
	finish.PassCode = "QWERTY"
	finish.FileNames = nil

	bridge := submission(1)
	bridge.Event = models.EventBridge
	bridge.LoadEstimate = decimal.NewNullDecimal(decimal.RequireFromString("15.5"))

	want := []models.Submission{submission(0), bridge, finish}
	for _, rec := range want {
		require.NoError(t, s.Commit(ctx, rec))
	}
	assert.Equal(t, 3, backend.replaces)

	lines := strings.Count(backend.content(), "\n")
	// header, three rows, plus one embedded newline per row from StudentNames
	assert.Equal(t, 1+3*2, lines)

	reloaded, err := Open(ctx, backend, Options{Strict: true})
	require.NoError(t, err)
	got := reloaded.Records()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("reloaded ledger mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, reloaded.MaxID())
}

func TestLoadSortsByID(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s, err := Open(ctx, backend, Options{})
	require.NoError(t, err)

	for _, id := range []int{5, 3, 4} {
		require.NoError(t, s.Commit(ctx, submission(id)))
	}
	assert.Equal(t, []int{5, 3, 4}, ids(s.Records()))

	reloaded, err := Open(ctx, backend, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, ids(reloaded.Records()))
	assert.Equal(t, 5, reloaded.MaxID())
}

func ids(records []models.Submission) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestCommitRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s, err := Open(ctx, backend, Options{})
	require.NoError(t, err)

	require.NoError(t, s.Commit(ctx, submission(7)))
	err = s.Commit(ctx, submission(7))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, backend.replaces)
}

func TestCommitFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s, err := Open(ctx, backend, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx, submission(0)))
	before := backend.content()

	backend.replaceErr = errors.New("disk full")
	err = s.Commit(ctx, submission(1))

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "replace", se.Op)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, before, backend.content())
	assert.Equal(t, 1, backend.discarded)

	// the ID was never committed, so a retry with it succeeds
	backend.replaceErr = nil
	require.NoError(t, s.Commit(ctx, submission(1)))
	assert.Equal(t, 2, s.Len())
}

func TestCommitCreateTempFailure(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{createErr: errors.New("read-only")}
	s, err := Open(ctx, backend, Options{})
	require.NoError(t, err)

	err = s.Commit(ctx, submission(0))
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "create temp", se.Op)
	assert.Equal(t, 0, s.Len())
}

func TestOpenBrokenLedger(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{exists: true, primary: []byte("NOT,A,LEDGER\n1,2,3\n")}

	s, err := Open(ctx, backend, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	_, err = Open(ctx, backend, Options{Strict: true})
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, ErrUnknownLayout)

	backend.openErr = errors.New("permission denied")
	_, err = Open(ctx, backend, Options{Strict: true})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "open", se.Op)
}

func TestConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s, err := Open(ctx, backend, Options{})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, s.Commit(ctx, submission(id)))
		}(i)
	}
	wg.Wait()

	reloaded, err := Open(ctx, backend, Options{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, n, reloaded.Len())
	assert.Equal(t, n-1, reloaded.MaxID())
}
