package services

import (
	"context"
	"fmt"
	"time"

	"ecoQuestAPI/internal/types/envdata"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnvironmentalService owns the append-only environmental_data table.
type EnvironmentalService struct {
	db *pgxpool.Pool
}

func NewEnvironmentalService(db *pgxpool.Pool) *EnvironmentalService {
	return &EnvironmentalService{db: db}
}

func (s *EnvironmentalService) ListDataPoints(ctx context.Context, clerkID string) ([]*envdata.DataPoint, error) {
	query := `
	SELECT ed.id, ed.user_id, ed.data_type, ed.value, ed.unit, ed.recorded_at
	FROM environmental_data ed
	JOIN profiles p ON p.id = ed.user_id
	WHERE p.clerk_id = $1
	ORDER BY ed.recorded_at DESC
	`

	rows, err := s.db.Query(ctx, query, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch environmental data: %w", err)
	}
	defer rows.Close()

	var points []*envdata.DataPoint
	for rows.Next() {
		d := &envdata.DataPoint{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.DataType, &d.Value, &d.Unit, &d.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan data point: %w", err)
		}
		points = append(points, d)
	}

	return points, rows.Err()
}

func (s *EnvironmentalService) RecordDataPoint(ctx context.Context, clerkID string, req *envdata.RecordDataPointRequest) (*envdata.DataPoint, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d := &envdata.DataPoint{
		ID:         uuid.New(),
		DataType:   req.DataType,
		Value:      req.Value,
		Unit:       req.Unit,
		RecordedAt: time.Now(),
	}

	query := `
	INSERT INTO environmental_data (id, user_id, data_type, value, unit, recorded_at)
	SELECT $1, p.id, $3, $4, $5, $6
	FROM profiles p
	WHERE p.clerk_id = $2
	RETURNING user_id
	`

	err := s.db.QueryRow(ctx, query, d.ID, clerkID, d.DataType, d.Value, d.Unit, d.RecordedAt).Scan(&d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to record data point: %w", err)
	}

	return d, nil
}
