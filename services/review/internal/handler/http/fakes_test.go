package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/fitvibe/internal/domain"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/health"
	pkgkafka "github.com/utafrali/fitvibe/pkg/kafka"
	"github.com/utafrali/fitvibe/pkg/middleware"
	"github.com/utafrali/fitvibe/services/review/internal/event"
	"github.com/utafrali/fitvibe/services/review/internal/service"
	"github.com/utafrali/fitvibe/services/review/internal/storage/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fakeStore is an in-memory stand-in for the postgres repositories.
type fakeStore struct {
	mu        sync.Mutex
	reviews   []*domain.Review
	reports   []domain.StoredReport
	purchased map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{purchased: map[string]bool{}}
}

func (s *fakeStore) find(productID, reviewID string) *domain.Review {
	for _, rv := range s.reviews {
		if rv.ID == reviewID && rv.ProductID == productID {
			return rv
		}
	}
	return nil
}

func (s *fakeStore) findByID(reviewID string) *domain.Review {
	for _, rv := range s.reviews {
		if rv.ID == reviewID {
			return rv
		}
	}
	return nil
}

func toggle(list []string, userID string) []string {
	if i := slices.Index(list, userID); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return append(list, userID)
}

type fakeReviews struct{ *fakeStore }

func (f fakeReviews) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Review{}
	for i := len(f.reviews) - 1; i >= 0; i-- {
		if f.reviews[i].ProductID == productID {
			out = append(out, *f.reviews[i])
		}
	}
	return out, nil
}

func (f fakeReviews) GetByID(_ context.Context, productID, reviewID string) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rv := f.find(productID, reviewID); rv != nil {
		cp := *rv
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f fakeReviews) GetByAuthor(_ context.Context, productID, authorID string) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rv := range f.reviews {
		if rv.ProductID == productID && rv.Author.ID == authorID {
			cp := *rv
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f fakeReviews) Create(_ context.Context, review *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *review
	f.reviews = append(f.reviews, &cp)
	return nil
}

func (f fakeReviews) Update(_ context.Context, review *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.find(review.ProductID, review.ID)
	if rv == nil {
		return apperrors.ErrNotFound
	}
	*rv = *review
	return nil
}

func (f fakeReviews) Delete(_ context.Context, productID, reviewID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = slices.DeleteFunc(f.reviews, func(rv *domain.Review) bool {
		return rv.ID == reviewID && rv.ProductID == productID
	})
	return nil
}

func (f fakeReviews) ToggleLike(_ context.Context, productID, reviewID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.find(productID, reviewID)
	if rv == nil {
		return 0, apperrors.ErrNotFound
	}
	rv.Likes = toggle(rv.Likes, userID)
	return len(rv.Likes), nil
}

type fakeReplies struct{ *fakeStore }

func (f fakeReplies) ListByReview(_ context.Context, reviewID string) ([]domain.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.findByID(reviewID)
	if rv == nil {
		return []domain.Reply{}, nil
	}
	return slices.Clone(rv.Replies), nil
}

func (f fakeReplies) GetByID(_ context.Context, reviewID, replyID string) (*domain.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rv := f.findByID(reviewID); rv != nil {
		if rp, ok := rv.Reply(replyID); ok {
			return &rp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f fakeReplies) Create(_ context.Context, reviewID string, reply *domain.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.findByID(reviewID)
	if rv == nil {
		return apperrors.ErrNotFound
	}
	rv.Replies = append(rv.Replies, *reply)
	return nil
}

func (f fakeReplies) UpdateComment(_ context.Context, reviewID, replyID, comment string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.findByID(reviewID)
	if rv == nil {
		return apperrors.ErrNotFound
	}
	for i := range rv.Replies {
		if rv.Replies[i].ID == replyID {
			rv.Replies[i].Comment = comment
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f fakeReplies) Delete(_ context.Context, reviewID, replyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.findByID(reviewID)
	if rv == nil {
		return apperrors.ErrNotFound
	}
	rv.Replies = slices.DeleteFunc(rv.Replies, func(rp domain.Reply) bool { return rp.ID == replyID })
	return nil
}

func (f fakeReplies) ToggleLike(_ context.Context, reviewID, replyID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.findByID(reviewID)
	if rv == nil {
		return 0, apperrors.ErrNotFound
	}
	for i := range rv.Replies {
		if rv.Replies[i].ID == replyID {
			rv.Replies[i].Likes = toggle(rv.Replies[i].Likes, userID)
			return len(rv.Replies[i].Likes), nil
		}
	}
	return 0, apperrors.ErrNotFound
}

type fakeReports struct{ *fakeStore }

func (f fakeReports) Create(_ context.Context, report *domain.StoredReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reports {
		if report.Type != domain.ReportSystem && existing.Type == report.Type &&
			existing.TargetID == report.TargetID && existing.ReporterID == report.ReporterID {
			return apperrors.ErrAlreadyExists
		}
	}
	f.reports = append(f.reports, *report)
	return nil
}

func (f fakeReports) List(_ context.Context, kind domain.ReportKind, offset, limit int) ([]domain.StoredReport, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []domain.StoredReport
	for _, r := range f.reports {
		if kind == "" || r.Type == kind {
			matched = append(matched, r)
		}
	}
	total := len(matched)
	if offset >= total {
		return []domain.StoredReport{}, total, nil
	}
	return matched[offset:min(offset+limit, total)], total, nil
}

type fakePurchases struct{ *fakeStore }

func (f fakePurchases) Record(_ context.Context, userID, productID, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchased[userID+"/"+productID] = true
	return nil
}

func (f fakePurchases) HasPurchased(_ context.Context, userID, productID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.purchased[userID+"/"+productID], nil
}

// noCache always misses.
type noCache struct{}

func (noCache) Get(_ context.Context, productID string) (*domain.RatingSummary, error) {
	return nil, apperrors.NotFound("rating summary", productID)
}
func (noCache) Set(context.Context, string, *domain.RatingSummary) error { return nil }
func (noCache) Invalidate(context.Context, string) error                { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// testServer bundles a router over fake repositories.
type testServer struct {
	handler http.Handler
	store   *fakeStore
	media   *memory.Storage
	codec   *middleware.SessionCodec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFakeStore()
	media := memory.New("http://reviews.test")
	producer := event.NewProducer(nopPublisher{}, logger)
	codec := middleware.NewSessionCodec(testSecret, "fitvibe")

	limiter := middleware.NewRateLimiter(600, 100, time.Minute)
	t.Cleanup(limiter.Close)

	svc := Services{
		Reviews: service.NewReviewService(fakeReviews{store}, fakePurchases{store}, media, noCache{}, producer, 1<<20, logger),
		Replies: service.NewReplyService(fakeReviews{store}, fakeReplies{store}, producer, logger),
		Reports: service.NewReportService(fakeReports{store}, producer, logger),
	}

	router := NewRouter(svc, codec, limiter, health.NewHandler(), RouterConfig{
		CORS:          middleware.DefaultCORSConfig(),
		MaxImageBytes: 1 << 20,
	}, logger)

	return &testServer{handler: router, store: store, media: media, codec: codec}
}

// token signs a session for v.
func (s *testServer) token(t *testing.T, v middleware.Viewer) string {
	t.Helper()
	tok, err := s.codec.Sign(v, time.Hour)
	require.NoError(t, err)
	return tok
}

var (
	alice = middleware.Viewer{UserID: "u-1", Name: "Alice", Role: domain.RoleUser}
	bob   = middleware.Viewer{UserID: "u-2", Name: "Bob", Role: domain.RoleUser}
	admin = middleware.Viewer{UserID: "adm-1", Name: "Mod", Role: domain.RoleAdmin}
)
