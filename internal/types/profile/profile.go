package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds a user's progression state. The points ledger is the only
// writer of TotalPoints and Level; everything else is user-editable.
type Profile struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ClerkID         string    `json:"clerkId" db:"clerk_id"`
	Email           string    `json:"email" db:"email"`
	Username        string    `json:"username" db:"username"`
	FullName        string    `json:"fullName" db:"full_name"`
	AvatarURL       string    `json:"avatarUrl" db:"avatar_url"`
	Location        string    `json:"location" db:"location"`
	TotalPoints     int       `json:"totalPoints" db:"total_points"`
	Level           int       `json:"level" db:"level"`
	StreakDays      int       `json:"streakDays" db:"streak_days"`
	CarbonFootprint float64   `json:"carbonFootprint" db:"carbon_footprint"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateProfileRequest struct {
	ClerkID   string `json:"clerkId"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

type UpdateProfileRequest struct {
	Username        string   `json:"username"`
	FullName        string   `json:"fullName"`
	AvatarURL       string   `json:"avatarUrl"`
	Location        string   `json:"location"`
	CarbonFootprint *float64 `json:"carbonFootprint"`
}

type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"userId" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	FullName    string    `json:"fullName" db:"full_name"`
	AvatarURL   string    `json:"avatarUrl" db:"avatar_url"`
	TotalPoints int       `json:"totalPoints" db:"total_points"`
	Level       int       `json:"level" db:"level"`
	StreakDays  int       `json:"streakDays" db:"streak_days"`
	Rank        int       `json:"rank"`
}
