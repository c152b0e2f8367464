// Package store keeps the reviews of one product in sync with the backend.
// Every successful mutation replaces local state with the server's answer;
// nothing is patched optimistically.
package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/utafrali/fitvibe/internal/api"
	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/notify"
	"github.com/utafrali/fitvibe/internal/preview"
	"github.com/utafrali/fitvibe/internal/rating"
	"github.com/utafrali/fitvibe/internal/report"
	"github.com/utafrali/fitvibe/internal/reviewview"
	"github.com/utafrali/fitvibe/internal/session"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

// Backend is the part of the API the stores call. *api.Client satisfies it.
type Backend interface {
	report.Submitter
	ListReviews(ctx context.Context, productID string) (*api.ListReviewsResponse, error)
	CreateReview(ctx context.Context, productID string, in api.ReviewInput) (*api.ReviewsResponse, error)
	UpdateReview(ctx context.Context, productID string, in api.ReviewUpdate) (*api.ReviewsResponse, error)
	DeleteReview(ctx context.Context, productID, reviewID string) (*api.ReviewsResponse, error)
	LikeReview(ctx context.Context, productID, reviewID string) (*api.LikeResponse, error)
	CreateReply(ctx context.Context, productID, reviewID, comment string) (*api.RepliesResponse, error)
	UpdateReply(ctx context.Context, productID, reviewID, replyID, comment string) (*api.RepliesResponse, error)
	DeleteReply(ctx context.Context, productID, reviewID, replyID string) (*api.RepliesResponse, error)
	LikeReply(ctx context.Context, productID, reviewID, replyID string) (*api.RepliesResponse, error)
}

var _ Backend = (*api.Client)(nil)

// Option configures a ReviewStore.
type Option func(*ReviewStore)

// WithPreviews shares a preview registry between stores.
func WithPreviews(r *preview.Registry) Option {
	return func(s *ReviewStore) { s.previews = r }
}

// WithReportOptions is applied to every report workflow the store opens.
func WithReportOptions(opts ...report.Option) Option {
	return func(s *ReviewStore) { s.reportOpts = append(s.reportOpts, opts...) }
}

// ReviewStore owns the review list of one product. It is safe for
// concurrent use; backend calls are made without holding the lock.
type ReviewStore struct {
	productID  string
	backend    Backend
	session    *session.Session
	notifier   notify.Notifier
	logger     *slog.Logger
	previews   *preview.Registry
	reportOpts []report.Option
	inflight   inflight

	mu           sync.RWMutex
	reviews      []domain.Review
	adoptedLikes map[string]int
	composer     *Draft
	editor       *Draft
	editingID    string
	replyStores  map[string]*ReplyStore
}

// NewReviewStore creates an empty store for productID.
func NewReviewStore(productID string, backend Backend, sess *session.Session, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *ReviewStore {
	s := &ReviewStore{
		productID:    productID,
		backend:      backend,
		session:      sess,
		notifier:     notifier,
		logger:       logger.With(slog.String("product_id", productID)),
		adoptedLikes: make(map[string]int),
		replyStores:  make(map[string]*ReplyStore),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.previews == nil {
		s.previews = preview.NewRegistry()
	}
	return s
}

// ProductID is the product this store serves.
func (s *ReviewStore) ProductID() string { return s.productID }

// Previews is the registry drafts create preview URLs in.
func (s *ReviewStore) Previews() *preview.Registry { return s.previews }

// Load fetches the review list. On failure the list is left empty and an
// error notification is shown; there is no automatic retry.
func (s *ReviewStore) Load(ctx context.Context) error {
	resp, err := s.backend.ListReviews(ctx, s.productID)
	if err != nil {
		s.mu.Lock()
		s.replaceLocked(nil)
		s.mu.Unlock()
		s.fail(ctx, "load", err, "Failed to load reviews")
		return err
	}
	s.mu.Lock()
	s.replaceLocked(resp.Reviews)
	s.mu.Unlock()
	return nil
}

// refresh reloads after a secondary event. Failures are only logged.
func (s *ReviewStore) refresh(ctx context.Context) {
	resp, err := s.backend.ListReviews(ctx, s.productID)
	if err != nil {
		s.logger.WarnContext(ctx, "review refresh failed", slog.String("error", err.Error()))
		return
	}
	s.mu.Lock()
	s.replaceLocked(resp.Reviews)
	s.mu.Unlock()
}

// replaceLocked installs the server's list. Adopted like counts belong to
// the previous list and are dropped.
func (s *ReviewStore) replaceLocked(reviews []domain.Review) {
	s.reviews = slices.Clone(reviews)
	clear(s.adoptedLikes)
}

// Reviews returns a copy of the current list in server order.
func (s *ReviewStore) Reviews() []domain.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.reviews)
}

// Review returns one review by id.
func (s *ReviewStore) Review(id string) (domain.Review, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

func (s *ReviewStore) findLocked(id string) (domain.Review, bool) {
	for _, r := range s.reviews {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Review{}, false
}

// LikesCount is the like count to display: the count the server returned
// for the last toggle, or the size of the likes set.
func (s *ReviewStore) LikesCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.adoptedLikes[id]; ok {
		return n
	}
	r, _ := s.findLocked(id)
	return r.LikesCount()
}

// Summary aggregates the current list.
func (s *ReviewStore) Summary() domain.RatingSummary {
	return rating.Summarize(s.Reviews())
}

// View filters and sorts the current list.
func (s *ReviewStore) View(f reviewview.Filter) []domain.Review {
	return reviewview.Apply(s.Reviews(), f)
}

// OpenComposer starts a new review draft, discarding an unsent one.
func (s *ReviewStore) OpenComposer() *Draft {
	d := newDraft(s.previews, s.notifier)
	s.mu.Lock()
	old := s.composer
	s.composer = d
	s.mu.Unlock()
	if old != nil {
		old.release()
	}
	return d
}

// CloseComposer discards the composer draft.
func (s *ReviewStore) CloseComposer() {
	s.mu.Lock()
	old := s.composer
	s.composer = nil
	s.mu.Unlock()
	if old != nil {
		old.release()
	}
}

// Composer returns the open composer draft, or nil.
func (s *ReviewStore) Composer() *Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.composer
}

// Create submits a new review. Validation runs before any network call.
func (s *ReviewStore) Create(ctx context.Context, d *Draft) error {
	if s.session.Viewer().Anonymous() {
		err := apperrors.NotAuthorized("Please sign in to write a review")
		s.fail(ctx, "review.create", err, "")
		return err
	}
	if err := d.validate(); err != nil {
		s.fail(ctx, "review.create", err, "")
		return err
	}

	done, err := s.inflight.begin("review.create", s.productID, "Submitting review")
	if err != nil {
		return err
	}
	defer done()

	resp, err := s.backend.CreateReview(ctx, s.productID, d.createInput())
	observe("review.create", err)
	if err != nil {
		s.fail(ctx, "review.create", err, "Failed to submit review")
		return err
	}

	s.mu.Lock()
	s.replaceLocked(resp.Reviews)
	if s.composer == d {
		s.composer = nil
	}
	s.mu.Unlock()
	d.release()

	s.succeed(resp.Message, "Review added")
	return nil
}

// OpenEditor starts editing reviewID. Only the author may edit.
func (s *ReviewStore) OpenEditor(reviewID string) (*Draft, error) {
	r, ok := s.Review(reviewID)
	if !ok {
		return nil, apperrors.NotFound("review", reviewID)
	}
	if !s.session.Viewer().Owns(r.Author) {
		return nil, apperrors.NotAuthorized("Only the author can edit this review")
	}

	d := newDraft(s.previews, s.notifier)
	d.rating = int(r.Rating)
	d.title = r.Title
	d.comment = r.Comment
	d.existing = slices.Clone(r.Images)

	s.mu.Lock()
	old := s.editor
	s.editor, s.editingID = d, reviewID
	s.mu.Unlock()
	if old != nil {
		old.release()
	}
	return d, nil
}

// CloseEditor discards the editor draft.
func (s *ReviewStore) CloseEditor() {
	s.mu.Lock()
	old := s.editor
	s.editor, s.editingID = nil, ""
	s.mu.Unlock()
	if old != nil {
		old.release()
	}
}

// Editor returns the open editor draft and the review it edits.
func (s *ReviewStore) Editor() (*Draft, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editor, s.editingID
}

// Update sends an edited review.
func (s *ReviewStore) Update(ctx context.Context, reviewID string, d *Draft) error {
	r, ok := s.Review(reviewID)
	if !ok {
		err := apperrors.NotFound("review", reviewID)
		s.fail(ctx, "review.update", err, "Failed to update review")
		return err
	}
	if !s.session.Viewer().Owns(r.Author) {
		err := apperrors.NotAuthorized("Only the author can edit this review")
		s.fail(ctx, "review.update", err, "")
		return err
	}
	if err := d.validate(); err != nil {
		s.fail(ctx, "review.update", err, "")
		return err
	}

	done, err := s.inflight.begin("review.update", reviewID, "Updating review")
	if err != nil {
		return err
	}
	defer done()

	resp, err := s.backend.UpdateReview(ctx, s.productID, d.updateInput())
	observe("review.update", err)
	if err != nil {
		s.fail(ctx, "review.update", err, "Failed to update review")
		return err
	}

	s.mu.Lock()
	s.replaceLocked(resp.Reviews)
	if s.editor == d {
		s.editor, s.editingID = nil, ""
	}
	s.mu.Unlock()
	d.release()

	s.succeed(resp.Message, "Review updated")
	return nil
}

// Delete removes a review. Authors and admins only.
func (s *ReviewStore) Delete(ctx context.Context, reviewID string) error {
	r, ok := s.Review(reviewID)
	if !ok {
		err := apperrors.NotFound("review", reviewID)
		s.fail(ctx, "review.delete", err, "Failed to delete review")
		return err
	}
	if !actionsFor(s.session.Viewer(), r.Author, r.ReportedBy).CanDelete {
		err := apperrors.NotAuthorized("Only the author or an admin can delete this review")
		s.fail(ctx, "review.delete", err, "")
		return err
	}

	done, err := s.inflight.begin("review.delete", reviewID, "Deleting review")
	if err != nil {
		return err
	}
	defer done()

	resp, err := s.backend.DeleteReview(ctx, s.productID, reviewID)
	observe("review.delete", err)
	if err != nil {
		s.fail(ctx, "review.delete", err, "Failed to delete review")
		return err
	}

	s.mu.Lock()
	s.replaceLocked(resp.Reviews)
	delete(s.replyStores, reviewID)
	s.mu.Unlock()

	s.succeed(resp.Message, "Review deleted")
	return nil
}

// Like toggles the viewer's like. The count shown afterwards is the one the
// server returned.
func (s *ReviewStore) Like(ctx context.Context, reviewID string) error {
	if s.session.Viewer().Anonymous() {
		err := apperrors.NotAuthorized("Please sign in to like reviews")
		s.fail(ctx, "review.like", err, "")
		return err
	}

	done, err := s.inflight.begin("review.like", reviewID, "Liking review")
	if err != nil {
		return err
	}
	defer done()

	resp, err := s.backend.LikeReview(ctx, s.productID, reviewID)
	observe("review.like", err)
	if err != nil {
		s.fail(ctx, "review.like", err, "Failed to like review")
		return err
	}

	s.mu.Lock()
	s.adoptedLikes[reviewID] = resp.LikesCount
	s.mu.Unlock()
	return nil
}

// Actions returns the affordances the viewer has on a review.
func (s *ReviewStore) Actions(reviewID string) (Actions, error) {
	r, ok := s.Review(reviewID)
	if !ok {
		return Actions{}, apperrors.NotFound("review", reviewID)
	}
	return actionsFor(s.session.Viewer(), r.Author, r.ReportedBy), nil
}

// OpenReport opens a report dialog for a review. A viewer who already
// reported it gets a NotAuthorized error. After a successful submission the
// list is refreshed.
func (s *ReviewStore) OpenReport(reviewID string) (*report.Workflow, error) {
	a, err := s.Actions(reviewID)
	if err != nil {
		return nil, err
	}
	if err := a.reportError("review"); err != nil {
		return nil, err
	}
	return s.newReport(domain.ReportReview, reviewID), nil
}

func (s *ReviewStore) newReport(kind domain.ReportKind, targetID string) *report.Workflow {
	wf := report.New(s.backend, s.notifier, s.logger, s.reportOpts...)
	wf.OnSubmitted(s.refresh)
	wf.Open(kind, targetID)
	return wf
}

// Replies returns the reply store of a review, creating it on first use.
func (s *ReviewStore) Replies(reviewID string) (*ReplyStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findLocked(reviewID); !ok {
		return nil, apperrors.NotFound("review", reviewID)
	}
	rs, ok := s.replyStores[reviewID]
	if !ok {
		rs = &ReplyStore{parent: s, reviewID: reviewID}
		s.replyStores[reviewID] = rs
	}
	return rs, nil
}

func (s *ReviewStore) replies(reviewID string) []domain.Reply {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, _ := s.findLocked(reviewID)
	return slices.Clone(r.Replies)
}

// replaceReplies installs the server's replies for one review.
func (s *ReviewStore) replaceReplies(reviewID string, replies []domain.Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reviews {
		if s.reviews[i].ID == reviewID {
			s.reviews[i].Replies = slices.Clone(replies)
			return
		}
	}
}

// Close releases every preview URL still held by open drafts.
func (s *ReviewStore) Close() {
	s.CloseComposer()
	s.CloseEditor()
}

func (s *ReviewStore) fail(ctx context.Context, action string, err error, fallback string) {
	s.logger.WarnContext(ctx, "review action failed",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
	s.notifier.Notify(notify.LevelError, apperrors.UserMessage(err, fallback))
}

func (s *ReviewStore) succeed(message, fallback string) {
	if message == "" {
		message = fallback
	}
	s.notifier.Notify(notify.LevelSuccess, message)
}
