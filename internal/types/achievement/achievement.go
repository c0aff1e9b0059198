package achievement

import (
	"time"

	"github.com/google/uuid"
)

type Achievement struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IconURL     string    `json:"iconUrl" db:"icon_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// UserAchievement is an unlocked achievement joined with its definition.
type UserAchievement struct {
	Achievement Achievement `json:"achievement"`
	UnlockedAt  time.Time   `json:"unlockedAt" db:"unlocked_at"`
}

type UnlockRequest struct {
	AchievementID uuid.UUID `json:"achievementId"`
}
