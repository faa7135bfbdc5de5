package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/models"
	"github.com/mcdev12/fileupload/go/internal/notify"
)

// Validator decides whether a candidate submission is eligible.
type Validator interface {
	Validate(s *models.Submission) error
}

// IDAllocator hands out submission IDs.
type IDAllocator interface {
	Next() int
}

// FileStore places uploaded bytes in their final location.
type FileStore interface {
	StoreUploadedFile(ctx context.Context, r io.Reader, dir, name string) error
	RemoveUploadedFile(ctx context.Context, dir, name string) error
}

// Ledger commits accepted submissions.
type Ledger interface {
	Commit(ctx context.Context, s models.Submission) error
}

// Deps are the collaborators of the App.
type Deps struct {
	Validator Validator
	IDs       IDAllocator
	Files     FileStore
	Ledger    Ledger
	Publisher notify.Publisher // optional
	Clock     clockwork.Clock
	Rand      *rand.Rand
}

// App runs the intake sequence: parse, check eligibility, allocate an ID,
// store the files, commit, announce.
type App struct {
	validator Validator
	ids       IDAllocator
	files     FileStore
	ledger    Ledger
	publisher notify.Publisher
	clock     clockwork.Clock

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewApp creates a new intake App
func NewApp(deps Deps) *App {
	a := &App{
		validator: deps.Validator,
		ids:       deps.IDs,
		files:     deps.Files,
		ledger:    deps.Ledger,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		rand:      deps.Rand,
	}
	if a.clock == nil {
		a.clock = clockwork.NewRealClock()
	}
	if a.rand == nil {
		a.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a
}

// Submit accepts one submission for the event at eventURI. uploads are the
// attachment slots in order; nil entries are empty slots. Nothing is allocated
// or stored unless the submission is valid and eligible.
func (a *App) Submit(ctx context.Context, eventURI string, form Form, uploads []*Upload) (*models.Submission, error) {
	ev, err := models.EventForURI(eventURI)
	if err != nil {
		return nil, err
	}

	sub, problems := form.toSubmission(ev)
	sub.Timestamp = a.clock.Now().UTC()
	if ev == models.EventHelicopterStart {
		sub.PassCode = a.passCode()
	}
	sub.Normalize()
	if len(uploads) > models.MaxFiles {
		problems = append(problems, fmt.Sprintf("At most %d files may be attached", models.MaxFiles))
	}
	if err := sub.Validate(); err != nil {
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		problems = append(problems, ve.Problems...)
	}
	if len(problems) > 0 {
		err := &models.ValidationError{Problems: dedupe(problems)}
		log.Info().Str("event", string(ev)).Strs("problems", err.Problems).Msg("Rejected invalid submission")
		return nil, err
	}

	if err := a.validator.Validate(&sub); err != nil {
		log.Info().
			Err(err).
			Str("event", string(ev)).
			Str("division", string(sub.Division)).
			Int("team_number", sub.TeamNumber).
			Msg("Rejected ineligible submission")
		return nil, err
	}

	sub.ID = a.ids.Next()

	dir := EventDirName(ev, sub.Division)
	if err := a.storeFiles(ctx, &sub, dir, uploads); err != nil {
		return nil, err
	}

	if err := a.ledger.Commit(ctx, sub); err != nil {
		a.removeFiles(ctx, dir, sub.FileNames)
		return nil, fmt.Errorf("failed to commit submission %d: %w", sub.ID, err)
	}

	log.Info().
		Int("submission_id", sub.ID).
		Str("event", string(ev)).
		Str("division", string(sub.Division)).
		Int("team_number", sub.TeamNumber).
		Int("files", len(sub.FileNames)).
		Msg("Accepted submission")

	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, notify.Accepted(sub, a.clock.Now())); err != nil {
			log.Warn().Err(err).Int("submission_id", sub.ID).Msg("Failed to publish accepted submission")
		}
	}
	return &sub, nil
}

func (a *App) storeFiles(ctx context.Context, sub *models.Submission, dir string, uploads []*Upload) error {
	for slot, up := range uploads {
		if up == nil || up.Size == 0 || up.Content == nil {
			continue
		}
		original := up.FileName
		if strings.TrimSpace(original) == "" {
			original = up.Field
		}
		name := StoredFileName(sub.Division, sub.TeamNumber, original, sub.ID, slotLabel(slot))

		if err := a.files.StoreUploadedFile(ctx, up.Content, dir, name); err != nil {
			log.Error().Err(err).Int("submission_id", sub.ID).Str("file", name).Msg("Upload transfer failed")
			a.removeFiles(ctx, dir, append(sub.FileNames, name))
			sub.FileNames = nil
			return &FileStoreError{FileName: name, Err: err}
		}
		sub.FileNames = append(sub.FileNames, name)
	}
	return nil
}

func (a *App) removeFiles(ctx context.Context, dir string, names []string) {
	for _, name := range names {
		if err := a.files.RemoveUploadedFile(context.WithoutCancel(ctx), dir, name); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Failed to remove orphaned upload")
		}
	}
}

const (
	passCodeMinLen = 5
	passCodeMaxLen = 7
)

// passCode returns five to seven random capital letters.
func (a *App) passCode() string {
	a.randMu.Lock()
	defer a.randMu.Unlock()

	n := passCodeMinLen + a.rand.IntN(passCodeMaxLen-passCodeMinLen+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('A' + a.rand.IntN(26))
	}
	return string(b)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, p := range in {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
