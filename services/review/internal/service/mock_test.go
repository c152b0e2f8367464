package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/fitvibe/internal/domain"
	pkgkafka "github.com/utafrali/fitvibe/pkg/kafka"
	"github.com/utafrali/fitvibe/services/review/internal/event"
	"github.com/utafrali/fitvibe/services/review/internal/storage"
)

// --- Mock ReviewRepository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, productID, reviewID string) (*domain.Review, error) {
	args := m.Called(ctx, productID, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetByAuthor(ctx context.Context, productID, authorID string) (*domain.Review, error) {
	args := m.Called(ctx, productID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, productID, reviewID string) error {
	return m.Called(ctx, productID, reviewID).Error(0)
}

func (m *mockReviewRepository) ToggleLike(ctx context.Context, productID, reviewID, userID string) (int, error) {
	args := m.Called(ctx, productID, reviewID, userID)
	return args.Int(0), args.Error(1)
}

// --- Mock ReplyRepository ---

type mockReplyRepository struct {
	mock.Mock
}

func (m *mockReplyRepository) ListByReview(ctx context.Context, reviewID string) ([]domain.Reply, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reply), args.Error(1)
}

func (m *mockReplyRepository) GetByID(ctx context.Context, reviewID, replyID string) (*domain.Reply, error) {
	args := m.Called(ctx, reviewID, replyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reply), args.Error(1)
}

func (m *mockReplyRepository) Create(ctx context.Context, reviewID string, reply *domain.Reply) error {
	return m.Called(ctx, reviewID, reply).Error(0)
}

func (m *mockReplyRepository) UpdateComment(ctx context.Context, reviewID, replyID, comment string, at time.Time) error {
	return m.Called(ctx, reviewID, replyID, comment, at).Error(0)
}

func (m *mockReplyRepository) Delete(ctx context.Context, reviewID, replyID string) error {
	return m.Called(ctx, reviewID, replyID).Error(0)
}

func (m *mockReplyRepository) ToggleLike(ctx context.Context, reviewID, replyID, userID string) (int, error) {
	args := m.Called(ctx, reviewID, replyID, userID)
	return args.Int(0), args.Error(1)
}

// --- Mock ReportRepository ---

type mockReportRepository struct {
	mock.Mock
}

func (m *mockReportRepository) Create(ctx context.Context, report *domain.StoredReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockReportRepository) List(ctx context.Context, kind domain.ReportKind, offset, limit int) ([]domain.StoredReport, int, error) {
	args := m.Called(ctx, kind, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.StoredReport), args.Int(1), args.Error(2)
}

// --- Mock PurchaseRepository ---

type mockPurchaseRepository struct {
	mock.Mock
}

func (m *mockPurchaseRepository) Record(ctx context.Context, userID, productID, orderID string, at time.Time) error {
	return m.Called(ctx, userID, productID, orderID, at).Error(0)
}

func (m *mockPurchaseRepository) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

// --- Mock Storage ---

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStorage) GetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) KeyForURL(url string) (string, bool) {
	args := m.Called(url)
	return args.String(0), args.Bool(1)
}

// --- Mock SummaryCache ---

type mockSummaryCache struct {
	mock.Mock
}

func (m *mockSummaryCache) Get(ctx context.Context, productID string) (*domain.RatingSummary, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingSummary), args.Error(1)
}

func (m *mockSummaryCache) Set(ctx context.Context, productID string, summary *domain.RatingSummary) error {
	return m.Called(ctx, productID, summary).Error(0)
}

func (m *mockSummaryCache) Invalidate(ctx context.Context, productID string) error {
	return m.Called(ctx, productID).Error(0)
}

// --- Recording publisher ---

type recordingPublisher struct {
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	return nil
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 4, 10, 8, 30, 0, 0, time.UTC)

var (
	author = domain.Viewer{ID: "u-1", Name: "Ayşe", Role: domain.RoleUser}
	other  = domain.Viewer{ID: "u-2", Name: "Mehmet", Role: domain.RoleUser}
	admin  = domain.Viewer{ID: "adm-1", Name: "Moderator", Role: domain.RoleAdmin}
	nobody = domain.Viewer{}
)

func newProducer(pub *recordingPublisher) *event.Producer {
	return event.NewProducer(pub, newTestLogger())
}
