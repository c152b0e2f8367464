package repository

import (
	"context"
	"time"

	"github.com/utafrali/fitvibe/internal/domain"
)

// ReviewRepository defines persistence for reviews.
type ReviewRepository interface {
	// ListByProduct returns every review of a product, newest first, with
	// replies and report marks attached.
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)

	// GetByID returns one review without its replies.
	GetByID(ctx context.Context, productID, reviewID string) (*domain.Review, error)

	// GetByAuthor returns the review authorID wrote for productID.
	GetByAuthor(ctx context.Context, productID, authorID string) (*domain.Review, error)

	// Create inserts a review. A second review by the same author for the
	// same product fails with ErrAlreadyExists.
	Create(ctx context.Context, review *domain.Review) error

	// Update stores rating, text, images and updated_at.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review; its replies go with it.
	Delete(ctx context.Context, productID, reviewID string) error

	// ToggleLike adds or removes userID from the likes and returns the new
	// like count.
	ToggleLike(ctx context.Context, productID, reviewID, userID string) (int, error)
}

// ReplyRepository defines persistence for replies.
type ReplyRepository interface {
	ListByReview(ctx context.Context, reviewID string) ([]domain.Reply, error)
	GetByID(ctx context.Context, reviewID, replyID string) (*domain.Reply, error)
	Create(ctx context.Context, reviewID string, reply *domain.Reply) error
	UpdateComment(ctx context.Context, reviewID, replyID, comment string, at time.Time) error
	Delete(ctx context.Context, reviewID, replyID string) error
	ToggleLike(ctx context.Context, reviewID, replyID, userID string) (int, error)
}

// ReportRepository defines persistence for submitted reports.
type ReportRepository interface {
	// Create stores a report. A repeated review or reply report by the same
	// user fails with ErrAlreadyExists.
	Create(ctx context.Context, report *domain.StoredReport) error

	// List returns reports of kind (all kinds when empty), newest first,
	// and the total count.
	List(ctx context.Context, kind domain.ReportKind, offset, limit int) ([]domain.StoredReport, int, error)
}

// PurchaseRepository records completed orders for verified-purchase badges.
type PurchaseRepository interface {
	// Record stores the purchase and marks an existing review by the buyer
	// as verified. Recording the same order twice is a no-op.
	Record(ctx context.Context, userID, productID, orderID string, at time.Time) error

	HasPurchased(ctx context.Context, userID, productID string) (bool, error)
}
