package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/fitvibe/internal/domain"
	pkgkafka "github.com/utafrali/fitvibe/pkg/kafka"
)

// Kafka topics for review domain events.
var (
	TopicReviewCreated   = pkgkafka.Topic("review", "created")
	TopicReviewUpdated   = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted   = pkgkafka.Topic("review", "deleted")
	TopicReplyCreated    = pkgkafka.Topic("reply", "created")
	TopicReportSubmitted = pkgkafka.Topic("report", "submitted")
)

// Aggregate types.
const (
	AggregateTypeReview = "review"
	AggregateTypeReport = "report"
)

// SourceReviewService identifies events originating from the review service.
const SourceReviewService = "review-service"

// ReviewData is the payload for review.created and review.updated events.
type ReviewData struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	AuthorID  string  `json:"author_id"`
	Rating    float64 `json:"rating"`
	Title     string  `json:"title"`
	Images    int     `json:"images"`
	Verified  bool    `json:"verified"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	DeletedBy string `json:"deleted_by"`
}

// ReplyCreatedData is the payload for a reply.created event.
type ReplyCreatedData struct {
	ID        string `json:"id"`
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	AuthorID  string `json:"author_id"`
}

// ReportSubmittedData is the payload for a report.submitted event.
type ReportSubmittedData struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	TargetID   string `json:"target_id,omitempty"`
	Reason     string `json:"reason"`
	Severity   string `json:"severity"`
	ReporterID string `json:"reporter_id"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(ctx, topic, aggregateID, aggregateType, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func reviewData(rv *domain.Review) ReviewData {
	return ReviewData{
		ID:        rv.ID,
		ProductID: rv.ProductID,
		AuthorID:  rv.Author.ID,
		Rating:    rv.Rating,
		Title:     rv.Title,
		Images:    len(rv.Images),
		Verified:  rv.Verified,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, rv *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, rv.ID, AggregateTypeReview, reviewData(rv))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, rv *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, rv.ID, AggregateTypeReview, reviewData(rv))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, productID, reviewID, deletedBy string) error {
	data := ReviewDeletedData{ID: reviewID, ProductID: productID, DeletedBy: deletedBy}
	return p.publish(ctx, TopicReviewDeleted, reviewID, AggregateTypeReview, data)
}

// PublishReplyCreated publishes a reply.created event. The aggregate is the
// review the reply belongs to.
func (p *Producer) PublishReplyCreated(ctx context.Context, productID, reviewID string, rp *domain.Reply) error {
	data := ReplyCreatedData{ID: rp.ID, ReviewID: reviewID, ProductID: productID, AuthorID: rp.Author.ID}
	return p.publish(ctx, TopicReplyCreated, reviewID, AggregateTypeReview, data)
}

// PublishReportSubmitted publishes a report.submitted event.
func (p *Producer) PublishReportSubmitted(ctx context.Context, rep *domain.StoredReport) error {
	data := ReportSubmittedData{
		ID:         rep.ID,
		Type:       string(rep.Type),
		TargetID:   rep.TargetID,
		Reason:     rep.Reason,
		Severity:   string(rep.Severity),
		ReporterID: rep.ReporterID,
	}
	return p.publish(ctx, TopicReportSubmitted, rep.ID, AggregateTypeReport, data)
}
