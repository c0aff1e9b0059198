package workers

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// StreakWorker keeps profiles.streak_days honest: shortly after midnight it
// increments the streak for users who completed a mission or logged a
// datapoint the previous day and resets everyone else.
type StreakWorker struct {
	db   *pgxpool.Pool
	cron *cron.Cron
}

func NewStreakWorker(db *pgxpool.Pool) *StreakWorker {
	return &StreakWorker{
		db:   db,
		cron: cron.New(),
	}
}

func (w *StreakWorker) Start() error {
	if _, err := w.cron.AddFunc("10 0 * * *", w.run); err != nil {
		return err
	}
	w.cron.Start()
	log.Println("Streak worker scheduled")
	return nil
}

func (w *StreakWorker) Stop() {
	w.cron.Stop()
}

func (w *StreakWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	active := `
	UPDATE profiles
	SET streak_days = streak_days + 1, updated_at = NOW()
	WHERE id IN (
		SELECT user_id FROM user_missions WHERE completed_at::date = CURRENT_DATE - 1
		UNION
		SELECT user_id FROM environmental_data WHERE recorded_at::date = CURRENT_DATE - 1
	)
	`

	result, err := w.db.Exec(ctx, active)
	if err != nil {
		log.Printf("Streak worker: failed to increment streaks: %v", err)
		return
	}
	incremented := result.RowsAffected()

	reset := `
	UPDATE profiles
	SET streak_days = 0, updated_at = NOW()
	WHERE streak_days > 0
	AND id NOT IN (
		SELECT user_id FROM user_missions WHERE completed_at::date = CURRENT_DATE - 1
		UNION
		SELECT user_id FROM environmental_data WHERE recorded_at::date = CURRENT_DATE - 1
	)
	`

	result, err = w.db.Exec(ctx, reset)
	if err != nil {
		log.Printf("Streak worker: failed to reset streaks: %v", err)
		return
	}

	log.Printf("Streak worker: %d streaks extended, %d reset", incremented, result.RowsAffected())
}
