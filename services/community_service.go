package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ecoQuestAPI/internal/types/community"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CommunityService backs the posts feed and environmental groups.
type CommunityService struct {
	db *pgxpool.Pool
}

func NewCommunityService(db *pgxpool.Pool) *CommunityService {
	return &CommunityService{db: db}
}

// ListPosts returns the feed newest-first with like counts and whether the
// viewer has liked each post. No ranking beyond recency.
func (s *CommunityService) ListPosts(ctx context.Context, clerkID string, limit int) ([]*community.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
	SELECT po.id, po.user_id, pr.username, pr.full_name, pr.avatar_url, po.content, po.created_at,
	       COUNT(pl.user_id) AS like_count,
	       BOOL_OR(viewer.clerk_id IS NOT NULL) AS liked_by_viewer
	FROM posts po
	JOIN profiles pr ON pr.id = po.user_id
	LEFT JOIN post_likes pl ON pl.post_id = po.id
	LEFT JOIN profiles viewer ON viewer.id = pl.user_id AND viewer.clerk_id = $1
	GROUP BY po.id, po.user_id, pr.username, pr.full_name, pr.avatar_url, po.content, po.created_at
	ORDER BY po.created_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, clerkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer rows.Close()

	var posts []*community.Post
	for rows.Next() {
		p := &community.Post{}
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Username, &p.AuthorName, &p.AuthorAvatar,
			&p.Content, &p.CreatedAt, &p.LikeCount, &p.LikedByViewer,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

func (s *CommunityService) CreatePost(ctx context.Context, clerkID string, req *community.CreatePostRequest) (*community.Post, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("post content is required")
	}

	p := &community.Post{
		ID:        uuid.New(),
		Content:   content,
		CreatedAt: time.Now(),
	}

	query := `
	INSERT INTO posts (id, user_id, content, created_at)
	SELECT $1, pr.id, $3, $4
	FROM profiles pr
	WHERE pr.clerk_id = $2
	RETURNING user_id
	`

	err := s.db.QueryRow(ctx, query, p.ID, clerkID, p.Content, p.CreatedAt).Scan(&p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return p, nil
}

// ToggleLike likes the post, or removes the like if one already exists.
// Returns the resulting liked state.
func (s *CommunityService) ToggleLike(ctx context.Context, clerkID string, postID uuid.UUID) (bool, error) {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return false, err
	}

	result, err := s.db.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}
	if result.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.db.Exec(ctx, `INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, NOW())`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to like post: %w", err)
	}
	return true, nil
}

func (s *CommunityService) ListGroups(ctx context.Context, location string) ([]*community.Group, error) {
	query := `
	SELECT id, name, description, location, member_count, created_at
	FROM environmental_groups
	WHERE 1=1
	`
	args := []any{}

	if location != "" {
		args = append(args, "%"+location+"%")
		query += fmt.Sprintf(" AND location ILIKE $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}
	defer rows.Close()

	var groups []*community.Group
	for rows.Next() {
		g := &community.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Location, &g.MemberCount, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func (s *CommunityService) userID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM profiles WHERE clerk_id = $1`, clerkID).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, nil
}
