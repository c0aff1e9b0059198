package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ecoQuestAPI/internal/types/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushProvider delivers a notification to the user's registered devices.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db   *pgxpool.Pool
	push PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider injects the push backend. Without one, notifications are
// stored but not pushed.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.push = p
}

// MissionCompleted satisfies progression.Notifier. Best effort: the mission
// operation has already succeeded, so failures here are only logged.
func (s *NotificationService) MissionCompleted(ctx context.Context, userID uuid.UUID, missionTitle string, points int) {
	_, err := s.CreateNotification(ctx, userID, notification.TypeMissionCompleted,
		"Mission complete!",
		fmt.Sprintf("You finished %q and earned %d points.", missionTitle, points),
		map[string]any{"mission": missionTitle, "points": points},
	)
	if err != nil {
		log.Printf("MissionCompleted: failed to notify user %s: %v", userID, err)
	}
}

func (s *NotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, notifType notification.NotificationType, title, body string, data map[string]any) (*notification.Notification, error) {
	n := &notification.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now(),
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification data: %w", err)
	}

	query := `
	INSERT INTO notifications (id, user_id, type, title, body, data, read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, false, $7)
	`
	if _, err := s.db.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Body, payload, n.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.push != nil {
		go s.dispatchPush(n)
	}

	return n, nil
}

func (s *NotificationService) dispatchPush(n *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := s.deviceTokens(ctx, n.UserID)
	if err != nil {
		log.Printf("dispatchPush: failed to load device tokens for %s: %v", n.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if err := s.push.SendPush(ctx, tokens, n.Title, n.Body, n.Data); err != nil {
		log.Printf("dispatchPush: push delivery failed for %s: %v", n.UserID, err)
	}
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, unreadOnly bool) ([]*notification.Notification, error) {
	query := `
	SELECT n.id, n.user_id, n.type, n.title, n.body, n.data, n.read, n.created_at
	FROM notifications n
	JOIN profiles p ON p.id = n.user_id
	WHERE p.clerk_id = $1
	`
	if unreadOnly {
		query += " AND n.read = false"
	}
	query += " ORDER BY n.created_at DESC LIMIT 100"

	rows, err := s.db.Query(ctx, query, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		n := &notification.Notification{}
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &n.Data); err != nil {
				log.Printf("GetNotifications: bad data payload on %s: %v", n.ID, err)
			}
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
	SELECT COUNT(*)
	FROM notifications n
	JOIN profiles p ON p.id = n.user_id
	WHERE p.clerk_id = $1 AND n.read = false
	`, clerkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, clerkID string, notificationID uuid.UUID) error {
	result, err := s.db.Exec(ctx, `
	UPDATE notifications n
	SET read = true
	FROM profiles p
	WHERE n.id = $2 AND n.user_id = p.id AND p.clerk_id = $1
	`, clerkID, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return fmt.Errorf("device token is required")
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	SELECT p.id, $2, $3, NOW()
	FROM profiles p
	WHERE p.clerk_id = $1
	ON CONFLICT (token) DO UPDATE SET platform = EXCLUDED.platform
	`
	if _, err := s.db.Exec(ctx, query, clerkID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
