package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/fitvibe/internal/api"
	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/notify"
	"github.com/utafrali/fitvibe/internal/preview"
	"github.com/utafrali/fitvibe/internal/report"
	"github.com/utafrali/fitvibe/internal/session"
	"github.com/utafrali/fitvibe/pkg/logger"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ListReviews(ctx context.Context, productID string) (*api.ListReviewsResponse, error) {
	args := m.Called(ctx, productID)
	if r := args.Get(0); r != nil {
		return r.(*api.ListReviewsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) CreateReview(ctx context.Context, productID string, in api.ReviewInput) (*api.ReviewsResponse, error) {
	args := m.Called(ctx, productID, in)
	if r := args.Get(0); r != nil {
		return r.(*api.ReviewsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) UpdateReview(ctx context.Context, productID string, in api.ReviewUpdate) (*api.ReviewsResponse, error) {
	args := m.Called(ctx, productID, in)
	if r := args.Get(0); r != nil {
		return r.(*api.ReviewsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) DeleteReview(ctx context.Context, productID, reviewID string) (*api.ReviewsResponse, error) {
	args := m.Called(ctx, productID, reviewID)
	if r := args.Get(0); r != nil {
		return r.(*api.ReviewsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) LikeReview(ctx context.Context, productID, reviewID string) (*api.LikeResponse, error) {
	args := m.Called(ctx, productID, reviewID)
	if r := args.Get(0); r != nil {
		return r.(*api.LikeResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) CreateReply(ctx context.Context, productID, reviewID, comment string) (*api.RepliesResponse, error) {
	args := m.Called(ctx, productID, reviewID, comment)
	if r := args.Get(0); r != nil {
		return r.(*api.RepliesResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) UpdateReply(ctx context.Context, productID, reviewID, replyID, comment string) (*api.RepliesResponse, error) {
	args := m.Called(ctx, productID, reviewID, replyID, comment)
	if r := args.Get(0); r != nil {
		return r.(*api.RepliesResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) DeleteReply(ctx context.Context, productID, reviewID, replyID string) (*api.RepliesResponse, error) {
	args := m.Called(ctx, productID, reviewID, replyID)
	if r := args.Get(0); r != nil {
		return r.(*api.RepliesResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) LikeReply(ctx context.Context, productID, reviewID, replyID string) (*api.RepliesResponse, error) {
	args := m.Called(ctx, productID, reviewID, replyID)
	if r := args.Get(0); r != nil {
		return r.(*api.RepliesResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) SubmitReport(ctx context.Context, r domain.Report) (*api.MessageResponse, error) {
	args := m.Called(ctx, r)
	if resp := args.Get(0); resp != nil {
		return resp.(*api.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type recorder struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (r *recorder) Notify(level notify.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, notify.Notification{Level: level, Message: message})
}

func (r *recorder) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.items...)
}

type noTimer struct{}

func (noTimer) Stop() bool { return true }

var (
	alice = domain.Viewer{ID: "u-alice", Name: "Alice", Role: domain.RoleUser}
	bob   = domain.Viewer{ID: "u-bob", Name: "Bob", Role: domain.RoleUser}
	admin = domain.Viewer{ID: "u-admin", Name: "Root", Role: domain.RoleAdmin}
)

func authorOf(v domain.Viewer) domain.Author {
	return domain.Author{ID: v.ID, Name: v.Name, Role: v.Role}
}

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func sampleReviews() []domain.Review {
	return []domain.Review{
		{
			ID:        "r-1",
			Author:    authorOf(alice),
			Rating:    5,
			Title:     "Love it",
			Images:    []string{"https://cdn/1.jpg", "https://cdn/2.jpg"},
			Likes:     []string{"u-bob"},
			CreatedAt: t0,
			Replies: []domain.Reply{
				{ID: "rp-1", Author: authorOf(bob), Comment: "agreed"},
				{ID: "rp-2", Author: authorOf(alice), Comment: "thanks"},
			},
		},
		{
			ID:        "r-2",
			Author:    authorOf(bob),
			Rating:    2,
			Reports:   []domain.ReportMark{{User: "u-admin", Reason: "spam"}},
			CreatedAt: t0.Add(time.Hour),
		},
	}
}

type fixture struct {
	store   *ReviewStore
	backend *mockBackend
	notes   *recorder
	sess    *session.Session
}

func newFixture(t *testing.T, viewer domain.Viewer) *fixture {
	t.Helper()
	f := &fixture{backend: &mockBackend{}, notes: &recorder{}}
	f.sess = session.New(viewer, nil, logger.Nop())
	f.store = NewReviewStore("p-1", f.backend, f.sess, f.notes, logger.Nop(),
		WithPreviews(preview.NewRegistry()),
		WithReportOptions(report.WithAfterFunc(func(time.Duration, func()) report.Timer { return noTimer{} })),
	)
	return f
}

func (f *fixture) loaded(t *testing.T) *fixture {
	t.Helper()
	f.backend.On("ListReviews", mock.Anything, "p-1").
		Return(&api.ListReviewsResponse{Status: api.Status{Success: true}, Reviews: sampleReviews()}, nil).Once()
	if err := f.store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return f
}
