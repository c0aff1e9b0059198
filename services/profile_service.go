package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecoQuestAPI/internal/types/achievement"
	"ecoQuestAPI/internal/types/profile"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileService owns the profiles table. It implements
// progression.ProfileStore for the points ledger.
type ProfileService struct {
	db *pgxpool.Pool
}

func NewProfileService(db *pgxpool.Pool) *ProfileService {
	return &ProfileService{db: db}
}

// CreateProfile provisions the profile row on first sign-in. New users start
// at level 1 with zero points.
func (s *ProfileService) CreateProfile(ctx context.Context, req *profile.CreateProfileRequest) (*profile.Profile, error) {
	p := &profile.Profile{
		ID:        uuid.New(),
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Level:     1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
	INSERT INTO profiles (id, clerk_id, email, username, full_name, avatar_url, total_points, level, streak_days, carbon_footprint, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, 0, 1, 0, 0, $7, $8)
	RETURNING id, clerk_id, email, username, full_name, avatar_url, location, total_points, level, streak_days, carbon_footprint, created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		p.ID, p.ClerkID, p.Email, p.Username, p.FullName, p.AvatarURL, p.CreatedAt, p.UpdatedAt,
	).Scan(
		&p.ID, &p.ClerkID, &p.Email, &p.Username, &p.FullName, &p.AvatarURL, &p.Location,
		&p.TotalPoints, &p.Level, &p.StreakDays, &p.CarbonFootprint, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return p, nil
}

func (s *ProfileService) GetProfileByClerkID(ctx context.Context, clerkID string) (*profile.Profile, error) {
	query := `
	SELECT id, clerk_id, email, username, full_name, avatar_url, location, total_points, level, streak_days, carbon_footprint, created_at, updated_at
	FROM profiles
	WHERE clerk_id = $1
	`

	p := &profile.Profile{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&p.ID, &p.ClerkID, &p.Email, &p.Username, &p.FullName, &p.AvatarURL, &p.Location,
		&p.TotalPoints, &p.Level, &p.StreakDays, &p.CarbonFootprint, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// UserIDByClerkID maps the session identity onto the internal profile id.
func (s *ProfileService) UserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM profiles WHERE clerk_id = $1`, clerkID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrProfileNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, clerkID string, req *profile.UpdateProfileRequest) (*profile.Profile, error) {
	query := `
	UPDATE profiles
	SET
		username = COALESCE(NULLIF($2, ''), username),
		full_name = COALESCE(NULLIF($3, ''), full_name),
		avatar_url = COALESCE(NULLIF($4, ''), avatar_url),
		location = COALESCE(NULLIF($5, ''), location),
		carbon_footprint = COALESCE($6, carbon_footprint),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING id, clerk_id, email, username, full_name, avatar_url, location, total_points, level, streak_days, carbon_footprint, created_at, updated_at
	`

	p := &profile.Profile{}
	err := s.db.QueryRow(ctx, query,
		clerkID, req.Username, req.FullName, req.AvatarURL, req.Location, req.CarbonFootprint,
	).Scan(
		&p.ID, &p.ClerkID, &p.Email, &p.Username, &p.FullName, &p.AvatarURL, &p.Location,
		&p.TotalPoints, &p.Level, &p.StreakDays, &p.CarbonFootprint, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return p, nil
}

func (s *ProfileService) DeleteProfileByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// AddPoints is the ledger's single guarded write: the increment and the
// level recompute happen in one statement, so there is no read-modify-write
// window to race through.
func (s *ProfileService) AddPoints(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	query := `
	UPDATE profiles
	SET total_points = total_points + $2,
	    level = (total_points + $2) / 100 + 1,
	    updated_at = NOW()
	WHERE id = $1
	RETURNING total_points
	`

	var total int
	err := s.db.QueryRow(ctx, query, userID, amount).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to add points: %w", err)
	}
	return total, nil
}

func (s *ProfileService) GetLeaderboard(ctx context.Context, limit int) ([]*profile.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := `
	SELECT id, username, full_name, avatar_url, total_points, level, streak_days
	FROM profiles
	ORDER BY total_points DESC, streak_days DESC
	LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*profile.LeaderboardEntry
	rank := 0
	for rows.Next() {
		rank++
		e := &profile.LeaderboardEntry{Rank: rank}
		if err := rows.Scan(
			&e.UserID, &e.Username, &e.FullName, &e.AvatarURL, &e.TotalPoints, &e.Level, &e.StreakDays,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *ProfileService) GetAchievements(ctx context.Context, clerkID string) ([]*achievement.UserAchievement, error) {
	query := `
	SELECT a.id, a.name, a.description, a.icon_url, a.created_at, ua.unlocked_at
	FROM user_achievements ua
	JOIN achievements a ON a.id = ua.achievement_id
	JOIN profiles p ON p.id = ua.user_id
	WHERE p.clerk_id = $1
	ORDER BY ua.unlocked_at DESC
	`

	rows, err := s.db.Query(ctx, query, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.UserAchievement
	for rows.Next() {
		ua := &achievement.UserAchievement{}
		if err := rows.Scan(
			&ua.Achievement.ID,
			&ua.Achievement.Name,
			&ua.Achievement.Description,
			&ua.Achievement.IconURL,
			&ua.Achievement.CreatedAt,
			&ua.UnlockedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, ua)
	}

	return achievements, rows.Err()
}

func (s *ProfileService) UnlockAchievement(ctx context.Context, clerkID string, achievementID uuid.UUID) (*achievement.UserAchievement, error) {
	userID, err := s.UserIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	insert := `
	INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
	VALUES ($1, $2, NOW())
	RETURNING unlocked_at
	`

	ua := &achievement.UserAchievement{}
	err = s.db.QueryRow(ctx, insert, userID, achievementID).Scan(&ua.UnlockedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("achievement already unlocked")
		}
		return nil, fmt.Errorf("failed to unlock achievement: %w", err)
	}

	query := `SELECT id, name, description, icon_url, created_at FROM achievements WHERE id = $1`
	err = s.db.QueryRow(ctx, query, achievementID).Scan(
		&ua.Achievement.ID,
		&ua.Achievement.Name,
		&ua.Achievement.Description,
		&ua.Achievement.IconURL,
		&ua.Achievement.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement: %w", err)
	}

	return ua, nil
}
