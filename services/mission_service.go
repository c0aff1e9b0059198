package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecoQuestAPI/internal/progression"
	"ecoQuestAPI/internal/types/mission"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MissionService is the pgx-backed mission catalog and progress store.
// It implements progression.Catalog and progression.ProgressStore.
type MissionService struct {
	db *pgxpool.Pool
}

func NewMissionService(db *pgxpool.Pool) *MissionService {
	return &MissionService{db: db}
}

func (s *MissionService) ListMissions(ctx context.Context, filter mission.ListFilter) ([]*mission.Mission, error) {
	query := `
	SELECT id, title, description, category, difficulty, points, duration_days, created_at
	FROM missions
	WHERE 1=1
	`
	args := []any{}

	if filter.Category != "" && filter.Category != "all" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Difficulty != "" && filter.Difficulty != "all" {
		args = append(args, filter.Difficulty)
		query += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []*mission.Mission
	for rows.Next() {
		m := &mission.Mission{}
		if err := rows.Scan(
			&m.ID,
			&m.Title,
			&m.Description,
			&m.Category,
			&m.Difficulty,
			&m.Points,
			&m.DurationDays,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, m)
	}

	return missions, rows.Err()
}

func (s *MissionService) GetMission(ctx context.Context, missionID uuid.UUID) (*mission.Mission, error) {
	query := `
	SELECT id, title, description, category, difficulty, points, duration_days, created_at
	FROM missions
	WHERE id = $1
	`

	m := &mission.Mission{}
	err := s.db.QueryRow(ctx, query, missionID).Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.Category,
		&m.Difficulty,
		&m.Points,
		&m.DurationDays,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, progression.ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}

	return m, nil
}

// ListUserMissions returns the user's progress rows joined with their catalog
// entries, most recently started first.
func (s *MissionService) ListUserMissions(ctx context.Context, userID uuid.UUID) ([]*mission.UserMission, error) {
	query := `
	SELECT um.id, um.user_id, um.mission_id, um.status, um.progress,
	       um.started_at, um.completed_at, um.verification_photo,
	       m.id, m.title, m.description, m.category, m.difficulty, m.points, m.duration_days, m.created_at
	FROM user_missions um
	JOIN missions m ON m.id = um.mission_id
	WHERE um.user_id = $1
	ORDER BY um.started_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user missions: %w", err)
	}
	defer rows.Close()

	var result []*mission.UserMission
	for rows.Next() {
		um := &mission.UserMission{}
		if err := rows.Scan(
			&um.Progress.ID,
			&um.Progress.UserID,
			&um.Progress.MissionID,
			&um.Progress.Status,
			&um.Progress.Progress,
			&um.Progress.StartedAt,
			&um.Progress.CompletedAt,
			&um.Progress.VerificationPhoto,
			&um.Mission.ID,
			&um.Mission.Title,
			&um.Mission.Description,
			&um.Mission.Category,
			&um.Mission.Difficulty,
			&um.Mission.Points,
			&um.Mission.DurationDays,
			&um.Mission.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user mission: %w", err)
		}
		result = append(result, um)
	}

	return result, rows.Err()
}

func (s *MissionService) GetProgress(ctx context.Context, userID, missionID uuid.UUID) (*mission.Progress, error) {
	query := `
	SELECT id, user_id, mission_id, status, progress, started_at, completed_at, verification_photo
	FROM user_missions
	WHERE user_id = $1 AND mission_id = $2
	`

	p := &mission.Progress{}
	err := s.db.QueryRow(ctx, query, userID, missionID).Scan(
		&p.ID,
		&p.UserID,
		&p.MissionID,
		&p.Status,
		&p.Progress,
		&p.StartedAt,
		&p.CompletedAt,
		&p.VerificationPhoto,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mission progress: %w", err)
	}

	return p, nil
}

func (s *MissionService) InsertProgress(ctx context.Context, p *mission.Progress) (*mission.Progress, error) {
	query := `
	INSERT INTO user_missions (id, user_id, mission_id, status, progress, started_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, user_id, mission_id, status, progress, started_at, completed_at, verification_photo
	`

	created := &mission.Progress{}
	err := s.db.QueryRow(ctx, query, p.ID, p.UserID, p.MissionID, p.Status, p.Progress, p.StartedAt).Scan(
		&created.ID,
		&created.UserID,
		&created.MissionID,
		&created.Status,
		&created.Progress,
		&created.StartedAt,
		&created.CompletedAt,
		&created.VerificationPhoto,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// unique (user_id, mission_id) violated
			return nil, progression.ErrAlreadyStarted
		}
		return nil, fmt.Errorf("failed to start mission: %w", err)
	}

	return created, nil
}

func (s *MissionService) SetProgressValue(ctx context.Context, userID, missionID uuid.UUID, value int) (*mission.Progress, error) {
	query := `
	UPDATE user_missions
	SET progress = $3
	WHERE user_id = $1 AND mission_id = $2 AND status = 'active'
	RETURNING id, user_id, mission_id, status, progress, started_at, completed_at, verification_photo
	`

	p := &mission.Progress{}
	err := s.db.QueryRow(ctx, query, userID, missionID, value).Scan(
		&p.ID,
		&p.UserID,
		&p.MissionID,
		&p.Status,
		&p.Progress,
		&p.StartedAt,
		&p.CompletedAt,
		&p.VerificationPhoto,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, progression.ErrNotActive
		}
		return nil, fmt.Errorf("failed to update mission progress: %w", err)
	}

	return p, nil
}

func (s *MissionService) AttachVerification(ctx context.Context, userID, missionID uuid.UUID, photoURL string) (*mission.Progress, error) {
	query := `
	UPDATE user_missions
	SET verification_photo = $3
	WHERE user_id = $1 AND mission_id = $2 AND status = 'active'
	RETURNING id, user_id, mission_id, status, progress, started_at, completed_at, verification_photo
	`

	p := &mission.Progress{}
	err := s.db.QueryRow(ctx, query, userID, missionID, photoURL).Scan(
		&p.ID,
		&p.UserID,
		&p.MissionID,
		&p.Status,
		&p.Progress,
		&p.StartedAt,
		&p.CompletedAt,
		&p.VerificationPhoto,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, progression.ErrNotActive
		}
		return nil, fmt.Errorf("failed to attach verification photo: %w", err)
	}

	return p, nil
}

// CompleteProgress is the guarded transition. The WHERE status = 'active'
// clause and the write are one atomic statement, which is what makes the
// point award exactly-once under concurrent completion attempts.
func (s *MissionService) CompleteProgress(ctx context.Context, userID, missionID uuid.UUID, photoURL *string, at time.Time) (*mission.Progress, error) {
	query := `
	UPDATE user_missions
	SET status = 'completed',
	    progress = 100,
	    completed_at = $3,
	    verification_photo = COALESCE($4, verification_photo)
	WHERE user_id = $1 AND mission_id = $2 AND status = 'active'
	RETURNING id, user_id, mission_id, status, progress, started_at, completed_at, verification_photo
	`

	p := &mission.Progress{}
	err := s.db.QueryRow(ctx, query, userID, missionID, at, photoURL).Scan(
		&p.ID,
		&p.UserID,
		&p.MissionID,
		&p.Status,
		&p.Progress,
		&p.StartedAt,
		&p.CompletedAt,
		&p.VerificationPhoto,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, progression.ErrCompletionGuardFailed
		}
		return nil, fmt.Errorf("failed to complete mission: %w", err)
	}

	return p, nil
}
