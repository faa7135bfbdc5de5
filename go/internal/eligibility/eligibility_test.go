package eligibility

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/fileupload/go/internal/models"
	"github.com/mcdev12/fileupload/go/internal/rangeset"
)

var (
	windowFrom = time.Date(2021, 1, 17, 6, 0, 0, 0, time.UTC)
	windowTo   = time.Date(2021, 1, 30, 17, 0, 0, 0, time.UTC)
)

func tournament(name string, teamsB rangeset.Set) models.Tournament {
	return models.Tournament{
		Name:  name,
		Date:  time.Date(2021, 2, 6, 0, 0, 0, 0, time.UTC),
		Teams: map[models.Division]rangeset.Set{models.DivisionB: teamsB},
		Events: map[models.Event]map[models.Division]models.TimeInterval{
			models.EventVehicleDesign: {
				models.DivisionB: models.NewTimeInterval(windowFrom, windowTo),
			},
		},
	}
}

func schedule() []models.Tournament {
	late := tournament("Late Regional", rangeset.Of(29))
	late.Events[models.EventVehicleDesign][models.DivisionB] = models.NewTimeInterval(
		windowTo.Add(24*time.Hour), windowTo.Add(48*time.Hour))
	return []models.Tournament{
		tournament("Hook", rangeset.Of(1, 2, 3)),
		tournament("Leibniz Regional", rangeset.Of(4, 5)),
		late,
	}
}

func TestValidate(t *testing.T) {
	inside := windowFrom.Add(time.Hour)

	tests := []struct {
		name  string
		c     Candidate
		stage Stage
		msg   string
	}{
		{
			name: "accepted",
			c:    Candidate{models.EventVehicleDesign, models.DivisionB, 4, inside},
		},
		{
			name: "from boundary is inside",
			c:    Candidate{models.EventVehicleDesign, models.DivisionB, 1, windowFrom},
		},
		{
			name: "to boundary is inside",
			c:    Candidate{models.EventVehicleDesign, models.DivisionB, 1, windowTo},
		},
		{
			name:  "second before from",
			c:     Candidate{models.EventVehicleDesign, models.DivisionB, 1, windowFrom.Add(-time.Second)},
			stage: StageTimeWindow,
			msg:   "Vehicle Design-B is not accepting submissions at this time.",
		},
		{
			name:  "second after to",
			c:     Candidate{models.EventVehicleDesign, models.DivisionB, 1, windowTo.Add(time.Second)},
			stage: StageTimeWindow,
			msg:   "Vehicle Design-B is not accepting submissions at this time.",
		},
		{
			name:  "not offered even though team and time would match",
			c:     Candidate{models.EventVehicleDesign, models.DivisionC, 1, inside},
			stage: StageOffering,
			msg:   "Vehicle Design is not an event in division C.",
		},
		{
			name:  "window closed wins over roster",
			c:     Candidate{models.EventVehicleDesign, models.DivisionB, 99, windowTo.Add(time.Hour)},
			stage: StageTimeWindow,
			msg:   "Vehicle Design-B is not accepting submissions at this time.",
		},
		{
			name:  "roster lists only the open tournaments",
			c:     Candidate{models.EventVehicleDesign, models.DivisionB, 29, inside},
			stage: StageRoster,
			msg:   "Team B29 is not competing at any of the tournaments that are accepting Vehicle Design-B submissions (Hook, Leibniz Regional).",
		},
		{
			name: "team only at the later tournament",
			c:    Candidate{models.EventVehicleDesign, models.DivisionB, 29, windowTo.Add(36 * time.Hour)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.c, schedule())
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			var ie *IneligibilityError
			require.True(t, errors.As(err, &ie), "want IneligibilityError, got %v", err)
			assert.Equal(t, tt.stage, ie.Stage)
			assert.Equal(t, tt.msg, ie.Message)
		})
	}
}

func TestValidateEmptySchedule(t *testing.T) {
	err := Validate(Candidate{models.EventWICI, models.DivisionB, 1, windowFrom}, nil)
	var ie *IneligibilityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, StageOffering, ie.Stage)
}

func TestValidatorUsesSubmissionFields(t *testing.T) {
	v := NewValidator(schedule())
	s := &models.Submission{
		Event:      models.EventVehicleDesign,
		Division:   models.DivisionB,
		TeamNumber: 5,
		Timestamp:  windowFrom.Add(time.Minute),
	}
	assert.NoError(t, v.Validate(s))

	s.TeamNumber = 6
	assert.Error(t, v.Validate(s))
	assert.Len(t, v.Tournaments(), 3)
}
