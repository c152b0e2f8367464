package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/pkg/database"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

const replyColumns = `review_id, id, author_id, author_name, author_avatar, author_role, comment, likes, created_at`

// ReplyRepository implements repository.ReplyRepository using PostgreSQL.
type ReplyRepository struct {
	pool database.DBTX
}

// NewReplyRepository creates a new PostgreSQL-backed reply repository.
func NewReplyRepository(pool database.DBTX) *ReplyRepository {
	return &ReplyRepository{pool: pool}
}

func scanReply(row pgx.Row) (string, domain.Reply, error) {
	var (
		reviewID string
		rp       domain.Reply
	)
	err := row.Scan(
		&reviewID,
		&rp.ID,
		&rp.Author.ID,
		&rp.Author.Name,
		&rp.Author.Avatar,
		&rp.Author.Role,
		&rp.Comment,
		&rp.Likes,
		&rp.CreatedAt,
	)
	if rp.Likes == nil {
		rp.Likes = []string{}
	}
	return reviewID, rp, err
}

// listReplies returns the replies of the given reviews keyed by review id,
// each in insertion order.
func listReplies(ctx context.Context, db database.DBTX, reviewIDs []string) (map[string][]domain.Reply, error) {
	query := `SELECT ` + replyColumns + `
		FROM review_replies
		WHERE review_id = ANY($1)
		ORDER BY created_at, id`

	rows, err := db.Query(ctx, query, reviewIDs)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Reply, len(reviewIDs))
	for rows.Next() {
		reviewID, rp, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reply row: %w", err)
		}
		out[reviewID] = append(out[reviewID], rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reply rows: %w", err)
	}
	return out, nil
}

// ListByReview returns the replies of one review with their report marks.
func (r *ReplyRepository) ListByReview(ctx context.Context, reviewID string) ([]domain.Reply, error) {
	byReview, err := listReplies(ctx, r.pool, []string{reviewID})
	if err != nil {
		return nil, err
	}
	replies := orEmpty(byReview[reviewID])

	ids := make([]string, len(replies))
	for i := range replies {
		ids[i] = replies[i].ID
	}
	marks, err := loadMarks(ctx, r.pool, domain.ReportReply, ids)
	if err != nil {
		return nil, err
	}
	for i := range replies {
		replies[i].Reports = orEmpty(marks[replies[i].ID])
	}
	return replies, nil
}

// GetByID retrieves one reply of a review.
func (r *ReplyRepository) GetByID(ctx context.Context, reviewID, replyID string) (*domain.Reply, error) {
	query := `SELECT ` + replyColumns + ` FROM review_replies WHERE id = $1 AND review_id = $2`

	_, rp, err := scanReply(r.pool.QueryRow(ctx, query, replyID, reviewID))
	if err != nil {
		return nil, notFoundOr(err, "get reply")
	}
	return &rp, nil
}

// Create inserts a reply under reviewID.
func (r *ReplyRepository) Create(ctx context.Context, reviewID string, rp *domain.Reply) error {
	query := `
		INSERT INTO review_replies (id, review_id, author_id, author_name, author_avatar, author_role,
			comment, likes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

	_, err := r.pool.Exec(ctx, query,
		rp.ID,
		reviewID,
		rp.Author.ID,
		rp.Author.Name,
		rp.Author.Avatar,
		rp.Author.Role,
		rp.Comment,
		rp.Likes,
		rp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	return nil
}

// UpdateComment replaces the text of a reply.
func (r *ReplyRepository) UpdateComment(ctx context.Context, reviewID, replyID, comment string, at time.Time) error {
	query := `UPDATE review_replies SET comment = $3, updated_at = $4 WHERE id = $1 AND review_id = $2`

	tag, err := r.pool.Exec(ctx, query, replyID, reviewID, comment, at)
	if err != nil {
		return fmt.Errorf("update reply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update reply: %w", apperrors.ErrNotFound)
	}
	return nil
}

// Delete removes a reply.
func (r *ReplyRepository) Delete(ctx context.Context, reviewID, replyID string) error {
	query := `DELETE FROM review_replies WHERE id = $1 AND review_id = $2`

	tag, err := r.pool.Exec(ctx, query, replyID, reviewID)
	if err != nil {
		return fmt.Errorf("delete reply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete reply: %w", apperrors.ErrNotFound)
	}
	return nil
}

// ToggleLike flips userID's like on a reply and returns the new count.
func (r *ReplyRepository) ToggleLike(ctx context.Context, reviewID, replyID, userID string) (int, error) {
	query := `
		UPDATE review_replies
		SET ` + toggleArrayMember + `
		WHERE id = $2 AND review_id = $3
		RETURNING cardinality(likes)`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, replyID, reviewID).Scan(&count); err != nil {
		return 0, notFoundOr(err, "toggle reply like")
	}
	return count, nil
}
