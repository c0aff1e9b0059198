package services

import (
	"context"
	"fmt"
	"log"

	"ecoQuestAPI/internal/assistant"
	"ecoQuestAPI/internal/types/envdata"
	"ecoQuestAPI/internal/types/mission"
	"ecoQuestAPI/internal/types/profile"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatService implements assistant.SnapshotSource against the relational
// store: the profile row, the five most recently started missions and the
// ten most recent environmental datapoints.
type ChatService struct {
	db *pgxpool.Pool
}

func NewChatService(db *pgxpool.Pool) *ChatService {
	return &ChatService{db: db}
}

func (s *ChatService) UserSnapshot(ctx context.Context, userID uuid.UUID) (*assistant.Snapshot, error) {
	p := &profile.Profile{}
	err := s.db.QueryRow(ctx, `
	SELECT id, full_name, total_points, level, streak_days, carbon_footprint
	FROM profiles
	WHERE id = $1
	`, userID).Scan(&p.ID, &p.FullName, &p.TotalPoints, &p.Level, &p.StreakDays, &p.CarbonFootprint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile snapshot: %w", err)
	}

	snap := &assistant.Snapshot{Profile: p}

	// Missions and datapoints are best effort; a partial snapshot still
	// personalizes the conversation.
	missions, err := s.recentMissions(ctx, userID)
	if err != nil {
		log.Printf("UserSnapshot: failed to fetch recent missions for %s: %v", userID, err)
	} else {
		snap.Missions = missions
	}

	points, err := s.recentDataPoints(ctx, userID)
	if err != nil {
		log.Printf("UserSnapshot: failed to fetch environmental data for %s: %v", userID, err)
	} else {
		snap.DataPoints = points
	}

	return snap, nil
}

func (s *ChatService) recentMissions(ctx context.Context, userID uuid.UUID) ([]*mission.UserMission, error) {
	rows, err := s.db.Query(ctx, `
	SELECT um.status, um.progress, m.title, m.category, m.difficulty, m.points
	FROM user_missions um
	JOIN missions m ON m.id = um.mission_id
	WHERE um.user_id = $1
	ORDER BY um.started_at DESC
	LIMIT 5
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missions []*mission.UserMission
	for rows.Next() {
		um := &mission.UserMission{}
		if err := rows.Scan(
			&um.Progress.Status,
			&um.Progress.Progress,
			&um.Mission.Title,
			&um.Mission.Category,
			&um.Mission.Difficulty,
			&um.Mission.Points,
		); err != nil {
			return nil, err
		}
		missions = append(missions, um)
	}
	return missions, rows.Err()
}

func (s *ChatService) recentDataPoints(ctx context.Context, userID uuid.UUID) ([]*envdata.DataPoint, error) {
	rows, err := s.db.Query(ctx, `
	SELECT data_type, value, unit, recorded_at
	FROM environmental_data
	WHERE user_id = $1
	ORDER BY recorded_at DESC
	LIMIT 10
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*envdata.DataPoint
	for rows.Next() {
		d := &envdata.DataPoint{}
		if err := rows.Scan(&d.DataType, &d.Value, &d.Unit, &d.RecordedAt); err != nil {
			return nil, err
		}
		points = append(points, d)
	}
	return points, rows.Err()
}
