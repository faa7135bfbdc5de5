package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/fileupload/go/internal/models"
)

const EventTypeAccepted = "submission.accepted"

// Event announces a committed submission.
type Event struct {
	ID         uuid.UUID
	Type       string
	Submission models.Submission
	OccurredAt time.Time
}

// Publisher delivers events to an outside audience. Delivery is best effort;
// the submission is already committed when Publish is called.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Accepted builds the event for a committed submission. The ID is derived from
// the submission so that publishing the same submission twice dedupes.
func Accepted(s models.Submission, now time.Time) Event {
	key := fmt.Sprintf("%s/%d/%s", EventTypeAccepted, s.ID, s.Timestamp.UTC().Format(time.RFC3339Nano))
	return Event{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)),
		Type:       EventTypeAccepted,
		Submission: s,
		OccurredAt: now.UTC(),
	}
}
