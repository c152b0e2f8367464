package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/fitvibe/internal/domain"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/validator"
	"github.com/utafrali/fitvibe/services/review/internal/event"
	"github.com/utafrali/fitvibe/services/review/internal/repository"
)

// ReplyInput is the body of a reply create or edit.
type ReplyInput struct {
	Comment string `json:"comment" validate:"required,max=500"`
}

// ReplyService implements the business logic for replies.
type ReplyService struct {
	reviews  repository.ReviewRepository
	replies  repository.ReplyRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewReplyService creates a new reply service.
func NewReplyService(
	reviews repository.ReviewRepository,
	replies repository.ReplyRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ReplyService {
	return &ReplyService{
		reviews:  reviews,
		replies:  replies,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a reply of viewer to a review and returns the review's replies.
func (s *ReplyService) Create(ctx context.Context, viewer domain.Viewer, productID, reviewID string, in *ReplyInput) ([]domain.Reply, error) {
	if viewer.Anonymous() {
		return nil, apperrors.Unauthorized("please sign in to reply")
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	if err := s.ensureReview(ctx, productID, reviewID); err != nil {
		return nil, err
	}

	rp := &domain.Reply{
		ID:        uuid.New().String(),
		Author:    authorOf(viewer),
		Comment:   in.Comment,
		Likes:     []string{},
		Reports:   []domain.ReportMark{},
		CreatedAt: s.now(),
	}
	if err := s.replies.Create(ctx, reviewID, rp); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}

	if err := s.producer.PublishReplyCreated(ctx, productID, reviewID, rp); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reply.created event",
			slog.String("reply_id", rp.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "reply created",
		slog.String("reply_id", rp.ID),
		slog.String("review_id", reviewID),
	)

	return s.replies.ListByReview(ctx, reviewID)
}

// Update edits a reply. Only its author may do so.
func (s *ReplyService) Update(ctx context.Context, viewer domain.Viewer, productID, reviewID, replyID string, in *ReplyInput) ([]domain.Reply, error) {
	if viewer.Anonymous() {
		return nil, apperrors.Unauthorized("please sign in")
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	rp, err := s.load(ctx, productID, reviewID, replyID)
	if err != nil {
		return nil, err
	}
	if !viewer.Owns(rp.Author) {
		return nil, apperrors.Forbidden("only the author can edit this reply")
	}

	if err := s.replies.UpdateComment(ctx, reviewID, replyID, in.Comment, s.now()); err != nil {
		return nil, fmt.Errorf("update reply: %w", err)
	}
	return s.replies.ListByReview(ctx, reviewID)
}

// Delete removes a reply. Its author or an admin may do so.
func (s *ReplyService) Delete(ctx context.Context, viewer domain.Viewer, productID, reviewID, replyID string) ([]domain.Reply, error) {
	if viewer.Anonymous() {
		return nil, apperrors.Unauthorized("please sign in")
	}
	rp, err := s.load(ctx, productID, reviewID, replyID)
	if err != nil {
		return nil, err
	}
	if !viewer.Owns(rp.Author) && !viewer.IsAdmin() {
		return nil, apperrors.Forbidden("only the author or an admin can delete this reply")
	}

	if err := s.replies.Delete(ctx, reviewID, replyID); err != nil {
		return nil, fmt.Errorf("delete reply: %w", err)
	}

	s.logger.InfoContext(ctx, "reply deleted",
		slog.String("reply_id", replyID),
		slog.String("review_id", reviewID),
		slog.Bool("by_admin", !viewer.Owns(rp.Author)),
	)
	return s.replies.ListByReview(ctx, reviewID)
}

// Like toggles the viewer's like on a reply and returns the review's replies.
func (s *ReplyService) Like(ctx context.Context, viewer domain.Viewer, productID, reviewID, replyID string) ([]domain.Reply, error) {
	if viewer.Anonymous() {
		return nil, apperrors.Unauthorized("please sign in to like replies")
	}
	if err := s.ensureReview(ctx, productID, reviewID); err != nil {
		return nil, err
	}
	if _, err := s.replies.ToggleLike(ctx, reviewID, replyID, viewer.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("reply", replyID)
		}
		return nil, fmt.Errorf("toggle reply like: %w", err)
	}
	return s.replies.ListByReview(ctx, reviewID)
}

func (s *ReplyService) ensureReview(ctx context.Context, productID, reviewID string) error {
	if _, err := s.reviews.GetByID(ctx, productID, reviewID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("review", reviewID)
		}
		return fmt.Errorf("get review: %w", err)
	}
	return nil
}

func (s *ReplyService) load(ctx context.Context, productID, reviewID, replyID string) (*domain.Reply, error) {
	if err := s.ensureReview(ctx, productID, reviewID); err != nil {
		return nil, err
	}
	rp, err := s.replies.GetByID(ctx, reviewID, replyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("reply", replyID)
		}
		return nil, fmt.Errorf("get reply: %w", err)
	}
	return rp, nil
}
