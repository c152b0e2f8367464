package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/pkg/database"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

const reviewColumns = `id, product_id, author_id, author_name, author_avatar, author_role,
	rating, title, comment, images, likes, verified, created_at, updated_at`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.Author.ID,
		&rv.Author.Name,
		&rv.Author.Avatar,
		&rv.Author.Role,
		&rv.Rating,
		&rv.Title,
		&rv.Comment,
		&rv.Images,
		&rv.Likes,
		&rv.Verified,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rv.Images == nil {
		rv.Images = []string{}
	}
	if rv.Likes == nil {
		rv.Likes = []string{}
	}
	return &rv, nil
}

// ListByProduct returns the reviews of a product, newest first, with their
// replies in insertion order and the report marks of both.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) (reviews []domain.Review, err error) {
	query := `SELECT ` + reviewColumns + `
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id`

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	reviews = []domain.Review{}
	for rows.Next() {
		rv, scanErr := scanReview(rows)
		if scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("scan review row: %w", scanErr)
		}
		reviews = append(reviews, *rv)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	if len(reviews) == 0 {
		return reviews, nil
	}

	ids := make([]string, len(reviews))
	for i := range reviews {
		ids[i] = reviews[i].ID
	}

	replies, err := listReplies(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}

	var replyIDs []string
	for _, rs := range replies {
		for _, rp := range rs {
			replyIDs = append(replyIDs, rp.ID)
		}
	}

	reviewMarks, err := loadMarks(ctx, r.pool, domain.ReportReview, ids)
	if err != nil {
		return nil, err
	}
	replyMarks, err := loadMarks(ctx, r.pool, domain.ReportReply, replyIDs)
	if err != nil {
		return nil, err
	}

	for i := range reviews {
		rv := &reviews[i]
		rv.Reports = orEmpty(reviewMarks[rv.ID])
		rv.Replies = orEmpty(replies[rv.ID])
		for j := range rv.Replies {
			rv.Replies[j].Reports = orEmpty(replyMarks[rv.Replies[j].ID])
		}
	}
	return reviews, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// GetByID retrieves one review of a product.
func (r *ReviewRepository) GetByID(ctx context.Context, productID, reviewID string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1 AND product_id = $2`

	rv, err := scanReview(r.pool.QueryRow(ctx, query, reviewID, productID))
	if err != nil {
		return nil, notFoundOr(err, "get review")
	}
	return rv, nil
}

// GetByAuthor retrieves the review authorID wrote for productID.
func (r *ReviewRepository) GetByAuthor(ctx context.Context, productID, authorID string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 AND author_id = $2`

	rv, err := scanReview(r.pool.QueryRow(ctx, query, productID, authorID))
	if err != nil {
		return nil, notFoundOr(err, "get review by author")
	}
	return rv, nil
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, product_id, author_id, author_name, author_avatar, author_role,
			rating, title, comment, images, likes, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		rv.ID,
		rv.ProductID,
		rv.Author.ID,
		rv.Author.Name,
		rv.Author.Avatar,
		rv.Author.Role,
		rv.Rating,
		rv.Title,
		rv.Comment,
		rv.Images,
		rv.Likes,
		rv.Verified,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert review: %w", apperrors.ErrAlreadyExists)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// Update stores the editable fields of a review.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		UPDATE reviews
		SET rating = $3, title = $4, comment = $5, images = $6, updated_at = $7
		WHERE id = $1 AND product_id = $2`

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query,
		rv.ID, rv.ProductID, rv.Rating, rv.Title, rv.Comment, rv.Images, rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update review: %w", apperrors.ErrNotFound)
	}
	return nil
}

// Delete removes a review. Replies are removed by the foreign key cascade.
func (r *ReviewRepository) Delete(ctx context.Context, productID, reviewID string) (err error) {
	query := `DELETE FROM reviews WHERE id = $1 AND product_id = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteReview", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, reviewID, productID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete review: %w", apperrors.ErrNotFound)
	}
	return nil
}

// ToggleLike flips userID's like in a single statement and returns the new
// like count.
func (r *ReviewRepository) ToggleLike(ctx context.Context, productID, reviewID, userID string) (count int, err error) {
	query := `
		UPDATE reviews
		SET ` + toggleArrayMember + `
		WHERE id = $2 AND product_id = $3
		RETURNING cardinality(likes)`

	ctx, end := database.TraceQuery(ctx, "ToggleReviewLike", query)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, query, userID, reviewID, productID).Scan(&count); err != nil {
		return 0, notFoundOr(err, "toggle review like")
	}
	return count, nil
}
