package progression

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ecoQuestAPI/internal/types/mission"

	"github.com/google/uuid"
)

// Catalog is the read-only mission definition store.
type Catalog interface {
	// GetMission returns ErrMissionNotFound for unknown ids.
	GetMission(ctx context.Context, missionID uuid.UUID) (*mission.Mission, error)
}

// ProgressStore is the durable home of per-user mission state. Implementations
// must provide per-row atomicity; multi-statement transactions are not assumed.
type ProgressStore interface {
	// GetProgress returns (nil, nil) when no row exists for the pair.
	GetProgress(ctx context.Context, userID, missionID uuid.UUID) (*mission.Progress, error)

	// InsertProgress returns ErrAlreadyStarted when a row for the pair exists.
	InsertProgress(ctx context.Context, p *mission.Progress) (*mission.Progress, error)

	// SetProgressValue updates progress on the active row only.
	// Returns ErrNotActive when no active row matches.
	SetProgressValue(ctx context.Context, userID, missionID uuid.UUID, value int) (*mission.Progress, error)

	// AttachVerification stores the photo reference on the active row
	// without changing status. Returns ErrNotActive when no active row matches.
	AttachVerification(ctx context.Context, userID, missionID uuid.UUID, photoURL string) (*mission.Progress, error)

	// CompleteProgress conditionally moves the active row to completed,
	// setting progress=100 and completed_at in the same write. The status
	// check and the write are a single atomic operation. Returns
	// ErrCompletionGuardFailed when no active row matched.
	CompleteProgress(ctx context.Context, userID, missionID uuid.UUID, photoURL *string, at time.Time) (*mission.Progress, error)
}

// Ledger credits mission points and reports the resulting totals.
type Ledger interface {
	AwardPoints(ctx context.Context, userID uuid.UUID, amount int) (totalPoints, level int, err error)
}

// Notifier receives completion events. Best effort only; failures never
// affect the mission operation.
type Notifier interface {
	MissionCompleted(ctx context.Context, userID uuid.UUID, missionTitle string, points int)
}

// Tracker owns the per-user-per-mission lifecycle:
// absent -> active -> completed. "failed" stays reserved and unreachable.
type Tracker struct {
	catalog  Catalog
	store    ProgressStore
	ledger   Ledger
	notifier Notifier
	now      func() time.Time
}

func NewTracker(catalog Catalog, store ProgressStore, ledger Ledger) *Tracker {
	return &Tracker{
		catalog: catalog,
		store:   store,
		ledger:  ledger,
		now:     time.Now,
	}
}

// SetNotifier injects an optional completion notifier.
func (t *Tracker) SetNotifier(n Notifier) {
	t.notifier = n
}

// StartMission creates the active row for the pair. The mission must exist
// in the catalog and the pair must not have been started before.
func (t *Tracker) StartMission(ctx context.Context, userID, missionID uuid.UUID) (*mission.Progress, error) {
	if _, err := t.catalog.GetMission(ctx, missionID); err != nil {
		return nil, err
	}

	p := &mission.Progress{
		ID:        uuid.New(),
		UserID:    userID,
		MissionID: missionID,
		Status:    mission.StatusActive,
		Progress:  0,
		StartedAt: t.now(),
	}

	created, err := t.store.InsertProgress(ctx, p)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateProgress sets the progress value on the active row. Values are
// clamped to nothing: out-of-range input is rejected, and a decrease is
// rejected too, so progress is monotonically non-decreasing while active.
func (t *Tracker) UpdateProgress(ctx context.Context, userID, missionID uuid.UUID, newProgress int) (*mission.Progress, error) {
	if newProgress < 0 || newProgress > 100 {
		return nil, &ValidationError{Field: "progress", Reason: "must be between 0 and 100"}
	}

	current, err := t.store.GetProgress(ctx, userID, missionID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Status != mission.StatusActive {
		return nil, ErrNotActive
	}
	if newProgress < current.Progress {
		return nil, &ValidationError{Field: "progress", Reason: "cannot decrease"}
	}

	return t.store.SetProgressValue(ctx, userID, missionID, newProgress)
}

// SubmitVerification attaches optional photo evidence to the active row.
// It is not a transition; the row stays active.
func (t *Tracker) SubmitVerification(ctx context.Context, userID, missionID uuid.UUID, photoURL string) (*mission.Progress, error) {
	if photoURL == "" {
		return nil, &ValidationError{Field: "photoUrl", Reason: "is required"}
	}
	return t.store.AttachVerification(ctx, userID, missionID, photoURL)
}

// CompleteMission moves the active row to completed and credits the mission's
// points, exactly once per pair. The guarded store write is the at-most-once
// gate: points are only awarded after it succeeds, so a racing second call
// can never double-award.
func (t *Tracker) CompleteMission(ctx context.Context, userID, missionID uuid.UUID, photoURL *string) (*mission.CompletionResult, error) {
	m, err := t.catalog.GetMission(ctx, missionID)
	if err != nil {
		// Points must never be awarded without a known value.
		return nil, err
	}

	row, err := t.store.CompleteProgress(ctx, userID, missionID, photoURL, t.now())
	if err != nil {
		if errors.Is(err, ErrCompletionGuardFailed) {
			return nil, t.classifyGuardFailure(ctx, userID, missionID, err)
		}
		return nil, err
	}

	total, level, err := t.ledger.AwardPoints(ctx, userID, m.Points)
	if err != nil {
		// The row is already terminal; surface the award failure rather
		// than pretending the composite operation succeeded.
		return nil, fmt.Errorf("mission completed but point award failed: %w", err)
	}

	if t.notifier != nil {
		t.notifier.MissionCompleted(ctx, userID, m.Title, m.Points)
	}

	return &mission.CompletionResult{
		Progress:         row,
		TotalPointsAfter: total,
		LevelAfter:       level,
	}, nil
}

// classifyGuardFailure distinguishes "already completed" and "never started"
// from a genuine concurrent loss. The re-read is advisory; the guard already
// made the correctness decision.
func (t *Tracker) classifyGuardFailure(ctx context.Context, userID, missionID uuid.UUID, guardErr error) error {
	current, err := t.store.GetProgress(ctx, userID, missionID)
	if err != nil {
		log.Printf("CompleteMission: could not classify guard failure for user %s mission %s: %v", userID, missionID, err)
		return guardErr
	}
	if current == nil {
		return ErrNotActive
	}
	if current.Status == mission.StatusCompleted {
		return ErrAlreadyCompleted
	}
	return guardErr
}
