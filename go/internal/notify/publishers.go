package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// LogPublisher writes each event to the global logger.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event Event) error {
	s := event.Submission
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.Type).
		Int("submission_id", s.ID).
		Str("event", string(s.Event)).
		Str("division", string(s.Division)).
		Int("team_number", s.TeamNumber).
		Strs("files", s.FileNames).
		Msg("Submission accepted")
	return nil
}

// Multi fans an event out to several publishers. Every publisher is tried and
// the failures are joined.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
