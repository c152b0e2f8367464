package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/fitvibe/internal/domain"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/httputil"
	"github.com/utafrali/fitvibe/services/review/internal/service"
)

// maxJSONBody caps reply and report bodies.
const maxJSONBody = 64 << 10

// ReplyHandler handles HTTP requests for reply endpoints.
type ReplyHandler struct {
	service *service.ReplyService
	logger  *slog.Logger
}

// NewReplyHandler creates a new reply HTTP handler.
func NewReplyHandler(svc *service.ReplyService, logger *slog.Logger) *ReplyHandler {
	return &ReplyHandler{
		service: svc,
		logger:  logger,
	}
}

type replyTree struct {
	Replies []domain.Reply `json:"replies"`
}

type repliesResponse struct {
	httputil.Envelope
	Review replyTree `json:"review"`
}

func (h *ReplyHandler) writeReplies(w http.ResponseWriter, status int, message string, replies []domain.Reply) {
	httputil.WriteJSON(w, status, repliesResponse{
		Envelope: httputil.OK(message),
		Review:   replyTree{Replies: replies},
	})
}

// CreateReply handles POST /products/{productId}/reviews/{reviewId}/replies.
func (h *ReplyHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var in service.ReplyInput
	if err := decodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	replies, err := h.service.Create(r.Context(), viewerFrom(r), chi.URLParam(r, "productId"), chi.URLParam(r, "reviewId"), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeReplies(w, http.StatusCreated, "Reply added successfully", replies)
}

// UpdateReply handles PUT /products/{productId}/reviews/{reviewId}/replies/{replyId}.
func (h *ReplyHandler) UpdateReply(w http.ResponseWriter, r *http.Request) {
	var in service.ReplyInput
	if err := decodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	replies, err := h.service.Update(r.Context(), viewerFrom(r),
		chi.URLParam(r, "productId"), chi.URLParam(r, "reviewId"), chi.URLParam(r, "replyId"), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeReplies(w, http.StatusOK, "Reply updated successfully", replies)
}

// DeleteReply handles DELETE /products/{productId}/reviews/{reviewId}/replies/{replyId}.
func (h *ReplyHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	replies, err := h.service.Delete(r.Context(), viewerFrom(r),
		chi.URLParam(r, "productId"), chi.URLParam(r, "reviewId"), chi.URLParam(r, "replyId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeReplies(w, http.StatusOK, "Reply deleted successfully", replies)
}

// LikeReply handles POST /products/{productId}/reviews/{reviewId}/replies/{replyId}/like.
func (h *ReplyHandler) LikeReply(w http.ResponseWriter, r *http.Request) {
	replies, err := h.service.Like(r.Context(), viewerFrom(r),
		chi.URLParam(r, "productId"), chi.URLParam(r, "reviewId"), chi.URLParam(r, "replyId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeReplies(w, http.StatusOK, "Like updated", replies)
}

// decodeJSON reads a size-capped JSON body into dst. Validation is left to
// the service, which normalizes first.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}
