package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/rating"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/validator"
	"github.com/utafrali/fitvibe/services/review/internal/event"
	"github.com/utafrali/fitvibe/services/review/internal/repository"
	"github.com/utafrali/fitvibe/services/review/internal/storage"
)

// allowedImageTypes lists the content types accepted for review photos.
var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// SummaryCache stores computed rating summaries per product.
type SummaryCache interface {
	Get(ctx context.Context, productID string) (*domain.RatingSummary, error)
	Set(ctx context.Context, productID string, summary *domain.RatingSummary) error
	Invalidate(ctx context.Context, productID string) error
}

// ImageUpload is one file of a multipart review submission.
type ImageUpload struct {
	Name        string
	ContentType string
	Size        int64
	Data        io.Reader
}

// CreateReviewInput holds the fields of a new review.
type CreateReviewInput struct {
	Rating  int           `json:"rating" validate:"required,min=1,max=5"`
	Title   string        `json:"title" validate:"max=100"`
	Comment string        `json:"comment" validate:"max=2000"`
	Images  []ImageUpload `json:"images" validate:"max=3"`
}

// UpdateReviewInput holds the fields of an edited review. ExistingImages are
// URLs already on the review that the author keeps.
type UpdateReviewInput struct {
	Rating         int           `json:"rating" validate:"required,min=1,max=5"`
	Title          string        `json:"title" validate:"max=100"`
	Comment        string        `json:"comment" validate:"max=2000"`
	ExistingImages []string      `json:"existingImages"`
	NewImages      []ImageUpload `json:"newImages"`
}

// ReviewList is the reviews of a product with their summary.
type ReviewList struct {
	Reviews []domain.Review
	Summary domain.RatingSummary
}

// ReviewService implements the business logic for reviews.
type ReviewService struct {
	reviews       repository.ReviewRepository
	purchases     repository.PurchaseRepository
	storage       storage.Storage
	cache         SummaryCache
	producer      *event.Producer
	maxImageBytes int64
	logger        *slog.Logger
	now           func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	purchases repository.PurchaseRepository,
	store storage.Storage,
	cache SummaryCache,
	producer *event.Producer,
	maxImageBytes int64,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:       reviews,
		purchases:     purchases,
		storage:       store,
		cache:         cache,
		producer:      producer,
		maxImageBytes: maxImageBytes,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// List returns every review of a product, newest first, with its summary.
func (s *ReviewService) List(ctx context.Context, productID string) (*ReviewList, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return &ReviewList{Reviews: reviews, Summary: rating.Summarize(reviews)}, nil
}

// Summary returns the rating summary of a product, from cache when possible.
func (s *ReviewService) Summary(ctx context.Context, productID string) (*domain.RatingSummary, error) {
	cached, err := s.cache.Get(ctx, productID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "summary cache read failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews for summary: %w", err)
	}
	summary := rating.Summarize(reviews)

	if err := s.cache.Set(ctx, productID, &summary); err != nil {
		s.logger.WarnContext(ctx, "summary cache write failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	return &summary, nil
}

// Create stores a new review of viewer for a product and returns the updated
// list. A user reviews a product at most once.
func (s *ReviewService) Create(ctx context.Context, viewer domain.Viewer, productID string, in *CreateReviewInput) ([]domain.Review, error) {
	if viewer.Anonymous() {
		return nil, apperrors.Unauthorized("please sign in to write a review")
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkImages(in.Images); err != nil {
		return nil, err
	}

	if _, err := s.reviews.GetByAuthor(ctx, productID, viewer.ID); err == nil {
		return nil, apperrors.Conflict("You have already reviewed this product")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	reviewID := uuid.New().String()
	keys, urls, err := s.upload(ctx, productID, reviewID, in.Images)
	if err != nil {
		return nil, err
	}

	verified, err := s.purchases.HasPurchased(ctx, viewer.ID, productID)
	if err != nil {
		s.logger.WarnContext(ctx, "purchase lookup failed, review stored unverified",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	now := s.now()
	rv := &domain.Review{
		ID:        reviewID,
		ProductID: productID,
		Author:    authorOf(viewer),
		Rating:    float64(in.Rating),
		Title:     in.Title,
		Comment:   in.Comment,
		Images:    urls,
		Likes:     []string{},
		Reports:   []domain.ReportMark{},
		Replies:   []domain.Reply{},
		Verified:  verified,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviews.Create(ctx, rv); err != nil {
		s.removeObjects(ctx, keys)
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("You have already reviewed this product")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.invalidate(ctx, productID)
	if err := s.producer.PublishReviewCreated(ctx, rv); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", rv.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", rv.ID),
		slog.String("product_id", productID),
		slog.Int("images", len(urls)),
		slog.Bool("verified", verified),
	)

	return s.reviews.ListByProduct(ctx, productID)
}

// Update edits the viewer's own review of a product. Kept images must
// already belong to the review; dropped ones are removed from storage.
func (s *ReviewService) Update(ctx context.Context, viewer domain.Viewer, productID string, in *UpdateReviewInput) ([]domain.Review, error) {
	if viewer.Anonymous() {
		return nil, apperrors.Unauthorized("please sign in to edit your review")
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	rv, err := s.reviews.GetByAuthor(ctx, productID, viewer.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &apperrors.AppError{
				Code:    "NOT_FOUND",
				Message: "You have not reviewed this product yet",
				Status:  http.StatusNotFound,
				Err:     apperrors.ErrNotFound,
			}
		}
		return nil, fmt.Errorf("get own review: %w", err)
	}

	kept := make([]string, 0, len(in.ExistingImages))
	for _, u := range in.ExistingImages {
		if slices.Contains(rv.Images, u) && !slices.Contains(kept, u) {
			kept = append(kept, u)
		}
	}
	if len(kept)+len(in.NewImages) > domain.MaxImages {
		return nil, apperrors.InvalidInput(fmt.Sprintf("a review can have at most %d images", domain.MaxImages))
	}
	if err := s.checkImages(in.NewImages); err != nil {
		return nil, err
	}

	newKeys, newURLs, err := s.upload(ctx, productID, rv.ID, in.NewImages)
	if err != nil {
		return nil, err
	}

	var dropped []string
	for _, u := range rv.Images {
		if !slices.Contains(kept, u) {
			dropped = append(dropped, u)
		}
	}

	rv.Rating = float64(in.Rating)
	rv.Title = in.Title
	rv.Comment = in.Comment
	rv.Images = append(kept, newURLs...)
	rv.UpdatedAt = s.now()

	if err := s.reviews.Update(ctx, rv); err != nil {
		s.removeObjects(ctx, newKeys)
		return nil, fmt.Errorf("update review: %w", err)
	}
	s.removeObjects(ctx, s.keysFor(dropped))

	s.invalidate(ctx, productID)
	if err := s.producer.PublishReviewUpdated(ctx, rv); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", rv.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", rv.ID),
		slog.String("product_id", productID),
		slog.Int("images_kept", len(kept)),
		slog.Int("images_added", len(newURLs)),
		slog.Int("images_dropped", len(dropped)),
	)

	return s.reviews.ListByProduct(ctx, productID)
}

// Delete removes a review. Only its author or an admin may do so.
func (s *ReviewService) Delete(ctx context.Context, viewer domain.Viewer, productID, reviewID string) ([]domain.Review, error) {
	if viewer.Anonymous() {
		return nil, apperrors.Unauthorized("please sign in")
	}

	rv, err := s.reviews.GetByID(ctx, productID, reviewID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", reviewID)
		}
		return nil, fmt.Errorf("get review for delete: %w", err)
	}
	if !viewer.Owns(rv.Author) && !viewer.IsAdmin() {
		return nil, apperrors.Forbidden("only the author or an admin can delete this review")
	}

	if err := s.reviews.Delete(ctx, productID, reviewID); err != nil {
		return nil, fmt.Errorf("delete review: %w", err)
	}
	s.removeObjects(ctx, s.keysFor(rv.Images))

	s.invalidate(ctx, productID)
	if err := s.producer.PublishReviewDeleted(ctx, productID, reviewID, viewer.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("product_id", productID),
		slog.Bool("by_admin", !viewer.Owns(rv.Author)),
	)

	return s.reviews.ListByProduct(ctx, productID)
}

// Like toggles the viewer's like on a review and returns the new count.
func (s *ReviewService) Like(ctx context.Context, viewer domain.Viewer, productID, reviewID string) (int, error) {
	if viewer.Anonymous() {
		return 0, apperrors.Unauthorized("please sign in to like reviews")
	}
	count, err := s.reviews.ToggleLike(ctx, productID, reviewID, viewer.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, apperrors.NotFound("review", reviewID)
		}
		return 0, fmt.Errorf("toggle review like: %w", err)
	}
	return count, nil
}

func (s *ReviewService) checkImages(images []ImageUpload) error {
	for _, img := range images {
		if !slices.Contains(allowedImageTypes, img.ContentType) {
			return apperrors.InvalidInput(fmt.Sprintf("image %q has unsupported type %q", img.Name, img.ContentType))
		}
		if img.Size <= 0 {
			return apperrors.InvalidInput(fmt.Sprintf("image %q is empty", img.Name))
		}
		if img.Size > s.maxImageBytes {
			return apperrors.InvalidInput(fmt.Sprintf("image %q exceeds the maximum size of %d bytes", img.Name, s.maxImageBytes))
		}
	}
	return nil
}

// upload stores images in order. On failure the ones already stored are
// removed again.
func (s *ReviewService) upload(ctx context.Context, productID, reviewID string, images []ImageUpload) (keys, urls []string, err error) {
	keys = make([]string, 0, len(images))
	urls = make([]string, 0, len(images))
	for _, img := range images {
		res, err := s.storage.Upload(ctx, &storage.UploadInput{
			Key:         storage.ObjectKey(productID, reviewID, img.Name),
			ContentType: img.ContentType,
			Size:        img.Size,
			Data:        img.Data,
		})
		if err != nil {
			s.removeObjects(ctx, keys)
			return nil, nil, fmt.Errorf("upload image %s: %w", img.Name, err)
		}
		keys = append(keys, res.Key)
		urls = append(urls, res.URL)
	}
	return keys, urls, nil
}

func (s *ReviewService) keysFor(urls []string) []string {
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		if key, ok := s.storage.KeyForURL(u); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// removeObjects deletes stored images. Failures leave orphans behind and
// are only logged.
func (s *ReviewService) removeObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete review image",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *ReviewService) invalidate(ctx context.Context, productID string) {
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate summary cache",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}

func authorOf(v domain.Viewer) domain.Author {
	role := v.Role
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Author{ID: v.ID, Name: v.Name, Avatar: v.Avatar, Role: role}
}
