package api

import (
	"github.com/utafrali/fitvibe/internal/domain"
)

// ListReviewsResponse is returned by GET /products/{id}/reviews.
type ListReviewsResponse struct {
	Status
	Reviews       []domain.Review `json:"reviews"`
	AverageRating float64         `json:"averageRating"`
	ReviewsCount  int             `json:"reviewsCount"`
}

// ReviewsResponse carries the authoritative review list after a mutation.
type ReviewsResponse struct {
	Status
	Reviews []domain.Review `json:"reviews"`
}

// LikeResponse carries the like count after a toggle.
type LikeResponse struct {
	Status
	LikesCount int `json:"likesCount"`
}

// ReplyTree is the review subtree returned by reply endpoints.
type ReplyTree struct {
	Replies []domain.Reply `json:"replies"`
}

// RepliesResponse carries the authoritative replies of one review. Review is
// nil when the backend did not include it.
type RepliesResponse struct {
	Status
	Review *ReplyTree `json:"review,omitempty"`
}

// MessageResponse is a bare {success, message} body.
type MessageResponse struct {
	Status
}

// SummaryResponse is returned by GET /products/{id}/reviews/summary.
type SummaryResponse struct {
	Status
	Summary domain.RatingSummary `json:"summary"`
}

// ReportsResponse is a page of reports.
type ReportsResponse struct {
	Status
	Reports    []domain.StoredReport `json:"reports"`
	TotalCount int                   `json:"totalCount"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"perPage"`
	TotalPages int                   `json:"totalPages"`
}

// Upload is a new image attached to a review submission.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReviewInput is the multipart body of a review create.
type ReviewInput struct {
	Title   string
	Comment string
	Rating  int
	Images  []Upload
}

// ReviewUpdate is the multipart body of a review update. ExistingImages are
// URLs the author keeps; NewImages are appended after them.
type ReviewUpdate struct {
	Title          string
	Comment        string
	Rating         int
	ExistingImages []string
	NewImages      []Upload
}
