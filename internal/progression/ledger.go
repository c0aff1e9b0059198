package progression

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PointsPerLevel is the fixed level threshold.
const PointsPerLevel = 100

// Level derives a user's level from accumulated points. Level is always
// recomputed from the total, never stored independently of it.
func Level(totalPoints int) int {
	if totalPoints < 0 {
		return 1
	}
	return totalPoints/PointsPerLevel + 1
}

// ProfileStore is the ledger's view of the profile row.
type ProfileStore interface {
	// AddPoints atomically increments total_points (recomputing the stored
	// level in the same write) and returns the new total.
	AddPoints(ctx context.Context, userID uuid.UUID, amount int) (int, error)
}

// PointsLedger maintains total_points and the derived level. Level-up has no
// separate side effect; callers observe it via the recomputed level only.
type PointsLedger struct {
	store ProfileStore
}

func NewPointsLedger(store ProfileStore) *PointsLedger {
	return &PointsLedger{store: store}
}

func (l *PointsLedger) AwardPoints(ctx context.Context, userID uuid.UUID, amount int) (int, int, error) {
	if amount < 0 {
		return 0, 0, &ValidationError{Field: "amount", Reason: "must be non-negative"}
	}

	total, err := l.store.AddPoints(ctx, userID, amount)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to award points: %w", err)
	}
	return total, Level(total), nil
}
