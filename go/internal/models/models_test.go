package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDivision(t *testing.T) {
	d, err := ParseDivision(" B ")
	require.NoError(t, err)
	assert.Equal(t, DivisionB, d)

	_, err = ParseDivision("BC")
	var ee *EnumError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "Unrecognized Division value 'BC' (should be one of A, B, C)", err.Error())
}

func TestParseHelicopterMode(t *testing.T) {
	m, err := ParseHelicopterMode(" TWO_HELICOPTERS_ONE_STUDENT ")
	require.NoError(t, err)
	assert.Equal(t, HelicopterTwoHelicoptersOneStudent, m)
	assert.Equal(t, "Two helicopters, one student, two videos", m.Label())

	_, err = ParseHelicopterMode("THREE_HELIS")
	require.Error(t, err)
	assert.Regexp(t, `^Unrecognized HelicopterMode value 'THREE_HELIS' \(should be one of .*\)$`, err.Error())
}

func TestEventLookups(t *testing.T) {
	ev, err := EventForURI(" wici ")
	require.NoError(t, err)
	assert.Equal(t, EventWICI, ev)
	assert.Equal(t, "wici", ev.TemplateName())

	_, err = EventForURI("")
	require.Error(t, err)
	assert.Regexp(t, `^'' is not a recognized Science Olympiad event\.  Must be one of .*$`, err.Error())

	ev, err = ParseEvent("ANATOMY")
	require.NoError(t, err)
	assert.Equal(t, "notes", ev.TemplateName())
	assert.True(t, ev.OfferedIn(DivisionC))
	assert.False(t, ev.OfferedIn(DivisionA))

	_, err = ParseEvent("anatomy")
	var ee *EnumError
	assert.True(t, errors.As(err, &ee))
}

func TestEventDivisionsString(t *testing.T) {
	assert.Equal(t, "B or C", EventVehicleDesign.DivisionsString())
	assert.Equal(t, "A", EventWindPower.DivisionsString())
	assert.Equal(t, "A, B, or C", EventMiscellaneous.DivisionsString())
}

func TestEventListsAreSortedByLabel(t *testing.T) {
	all := AllEvents()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Label(), all[i].Label())
	}
	for _, ev := range NotesUploadEvents() {
		assert.True(t, ev.NotesUpload(), ev.String())
	}
}

func TestTimeIntervalBoundaries(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	from := time.Date(2021, 1, 17, 1, 0, 0, 0, loc)
	to := time.Date(2021, 1, 30, 12, 0, 0, 0, loc)
	ti := NewTimeInterval(from, to)

	assert.True(t, ti.Contains(from))
	assert.True(t, ti.Contains(to))
	assert.True(t, ti.Contains(from.Add(time.Hour)))
	assert.False(t, ti.Contains(from.Add(-time.Second)))
	assert.False(t, ti.Contains(to.Add(time.Second)))
}

func TestWholeDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ti := WholeDay(time.Date(2021, 2, 6, 0, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, "2021-02-06T05:00:00Z", ti.From.UTC().Format(time.RFC3339))
	assert.Equal(t, "2021-02-07T04:59:59Z", ti.To.UTC().Format(time.RFC3339))
}
