package mission

import (
	"time"

	"github.com/google/uuid"
)

type Category string
type Difficulty string
type Status string

const (
	CategoryEnergy    Category = "energy"
	CategoryTransport Category = "transport"
	CategoryWaste     Category = "waste"
	CategoryWater     Category = "water"
	CategoryFood      Category = "food"
	CategoryOther     Category = "other"

	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"

	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	// StatusFailed is reserved. Clients render it but no operation sets it.
	StatusFailed Status = "failed"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryEnergy, CategoryTransport, CategoryWaste, CategoryWater, CategoryFood, CategoryOther:
		return true
	}
	return false
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Mission is an immutable catalog entry. The engine only reads these.
type Mission struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	Category     Category   `json:"category" db:"category"`
	Difficulty   Difficulty `json:"difficulty" db:"difficulty"`
	Points       int        `json:"points" db:"points"`
	DurationDays int        `json:"durationDays" db:"duration_days"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// Progress is the per-user attempt at a mission. Unique on (user_id, mission_id).
// Rows are never deleted; they are the historical record.
type Progress struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"userId" db:"user_id"`
	MissionID         uuid.UUID  `json:"missionId" db:"mission_id"`
	Status            Status     `json:"status" db:"status"`
	Progress          int        `json:"progress" db:"progress"`
	StartedAt         time.Time  `json:"startedAt" db:"started_at"`
	CompletedAt       *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	VerificationPhoto *string    `json:"verificationPhoto,omitempty" db:"verification_photo"`
}

// UserMission is a Progress row joined with its catalog entry for display.
type UserMission struct {
	Progress Progress `json:"progress"`
	Mission  Mission  `json:"mission"`
}

// CompletionResult is the composite outcome of completing a mission:
// the terminal row plus the profile totals after the point award.
type CompletionResult struct {
	Progress         *Progress `json:"progress"`
	TotalPointsAfter int       `json:"totalPointsAfter"`
	LevelAfter       int       `json:"levelAfter"`
}

type ListFilter struct {
	Category   string
	Difficulty string
}

type UpdateProgressRequest struct {
	Progress int `json:"progress"`
}

type VerificationRequest struct {
	PhotoURL string `json:"photoUrl"`
}

type CompleteRequest struct {
	PhotoURL string `json:"photoUrl,omitempty"`
}
