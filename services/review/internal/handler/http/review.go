package http

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/fitvibe/internal/domain"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/httputil"
	"github.com/utafrali/fitvibe/services/review/internal/service"
)

// multipartOverhead is allowed on top of the images for the text fields.
const multipartOverhead = 1 << 20

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service       *service.ReviewService
	maxImageBytes int64
	logger        *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, maxImageBytes int64, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service:       svc,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// --- Response bodies ---

type listReviewsResponse struct {
	httputil.Envelope
	Reviews       []domain.Review `json:"reviews"`
	AverageRating float64         `json:"averageRating"`
	ReviewsCount  int             `json:"reviewsCount"`
}

type reviewsResponse struct {
	httputil.Envelope
	Reviews []domain.Review `json:"reviews"`
}

type likeResponse struct {
	httputil.Envelope
	LikesCount int `json:"likesCount"`
}

type summaryResponse struct {
	httputil.Envelope
	Summary domain.RatingSummary `json:"summary"`
}

// --- Handlers ---

// ListReviews handles GET /products/{productId}/reviews.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listReviewsResponse{
		Envelope:      httputil.OK(""),
		Reviews:       list.Reviews,
		AverageRating: list.Summary.Average,
		ReviewsCount:  list.Summary.Count,
	})
}

// Summary handles GET /products/{productId}/reviews/summary.
func (h *ReviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summaryResponse{Envelope: httputil.OK(""), Summary: *summary})
}

// CreateReview handles POST /products/{productId}/reviews (multipart/form-data).
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	rating, err := formRating(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	images, closeAll, err := formImages(r, "images")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer closeAll()

	reviews, err := h.service.Create(r.Context(), viewerFrom(r), chi.URLParam(r, "productId"), &service.CreateReviewInput{
		Rating:  rating,
		Title:   strings.TrimSpace(r.FormValue("title")),
		Comment: strings.TrimSpace(r.FormValue("comment")),
		Images:  images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, reviewsResponse{
		Envelope: httputil.OK("Review added successfully"),
		Reviews:  reviews,
	})
}

// UpdateReview handles PUT /products/{productId}/reviews (multipart/form-data).
// It edits the caller's own review.
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	rating, err := formRating(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	images, closeAll, err := formImages(r, "newImages")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer closeAll()

	reviews, err := h.service.Update(r.Context(), viewerFrom(r), chi.URLParam(r, "productId"), &service.UpdateReviewInput{
		Rating:         rating,
		Title:          strings.TrimSpace(r.FormValue("title")),
		Comment:        strings.TrimSpace(r.FormValue("comment")),
		ExistingImages: r.MultipartForm.Value["existingImages"],
		NewImages:      images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reviewsResponse{
		Envelope: httputil.OK("Review updated successfully"),
		Reviews:  reviews,
	})
}

// DeleteReview handles DELETE /products/{productId}/reviews/{reviewId}.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.Delete(r.Context(), viewerFrom(r), chi.URLParam(r, "productId"), chi.URLParam(r, "reviewId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reviewsResponse{
		Envelope: httputil.OK("Review deleted successfully"),
		Reviews:  reviews,
	})
}

// LikeReview handles PUT /products/{productId}/reviews/{reviewId}/like.
func (h *ReviewHandler) LikeReview(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Like(r.Context(), viewerFrom(r), chi.URLParam(r, "productId"), chi.URLParam(r, "reviewId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, likeResponse{
		Envelope:   httputil.OK("Like updated"),
		LikesCount: count,
	})
}

// parseForm reads the multipart body, capped at the image allowance.
func (h *ReviewHandler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(domain.MaxImages)*h.maxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
		return apperrors.InvalidInput("failed to parse multipart form: " + err.Error())
	}
	return nil
}

// formRating parses the rating field. A missing rating is left to the
// validator.
func formRating(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.FormValue("rating"))
	if raw == "" {
		return 0, nil
	}
	rating, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("rating must be a whole number, got %q", raw))
	}
	return rating, nil
}

// formImages opens the files of field in order. The returned func closes
// them.
func formImages(r *http.Request, field string) ([]service.ImageUpload, func(), error) {
	headers := r.MultipartForm.File[field]
	images := make([]service.ImageUpload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("cannot read image %q: %v", fh.Filename, err))
		}
		files = append(files, f)

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		images = append(images, service.ImageUpload{
			Name:        fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Data:        f,
		})
	}
	return images, closeAll, nil
}
