package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/utafrali/fitvibe/internal/domain"
)

// ListReviews fetches every review of a product.
func (c *Client) ListReviews(ctx context.Context, productID string) (*ListReviewsResponse, error) {
	var out ListReviewsResponse
	if err := c.doJSON(ctx, http.MethodGet, c.path("products", productID, "reviews"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary fetches the cached rating summary of a product.
func (c *Client) Summary(ctx context.Context, productID string) (*SummaryResponse, error) {
	var out SummaryResponse
	if err := c.doJSON(ctx, http.MethodGet, c.path("products", productID, "reviews", "summary"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateReview posts a new review with its images.
func (c *Client) CreateReview(ctx context.Context, productID string, in ReviewInput) (*ReviewsResponse, error) {
	body, contentType, err := encodeMultipart(func(w *multipart.Writer) error {
		if err := writeReviewFields(w, in.Title, in.Comment, in.Rating); err != nil {
			return err
		}
		return writeFiles(w, "images", in.Images)
	})
	if err != nil {
		return nil, err
	}

	var out ReviewsResponse
	if err := c.do(ctx, http.MethodPost, c.path("products", productID, "reviews"), contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateReview replaces the caller's own review of the product.
func (c *Client) UpdateReview(ctx context.Context, productID string, in ReviewUpdate) (*ReviewsResponse, error) {
	body, contentType, err := encodeMultipart(func(w *multipart.Writer) error {
		if err := writeReviewFields(w, in.Title, in.Comment, in.Rating); err != nil {
			return err
		}
		for _, u := range in.ExistingImages {
			if err := w.WriteField("existingImages", u); err != nil {
				return err
			}
		}
		return writeFiles(w, "newImages", in.NewImages)
	})
	if err != nil {
		return nil, err
	}

	var out ReviewsResponse
	if err := c.do(ctx, http.MethodPut, c.path("products", productID, "reviews"), contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, productID, reviewID string) (*ReviewsResponse, error) {
	var out ReviewsResponse
	if err := c.doJSON(ctx, http.MethodDelete, c.path("products", productID, "reviews", reviewID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LikeReview toggles the caller's like on a review.
func (c *Client) LikeReview(ctx context.Context, productID, reviewID string) (*LikeResponse, error) {
	var out LikeResponse
	if err := c.doJSON(ctx, http.MethodPut, c.path("products", productID, "reviews", reviewID, "like"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type replyBody struct {
	Comment string `json:"comment"`
}

// CreateReply adds a reply to a review.
func (c *Client) CreateReply(ctx context.Context, productID, reviewID, comment string) (*RepliesResponse, error) {
	var out RepliesResponse
	target := c.path("products", productID, "reviews", reviewID, "replies")
	if err := c.doJSON(ctx, http.MethodPost, target, replyBody{Comment: comment}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateReply edits a reply.
func (c *Client) UpdateReply(ctx context.Context, productID, reviewID, replyID, comment string) (*RepliesResponse, error) {
	var out RepliesResponse
	target := c.path("products", productID, "reviews", reviewID, "replies", replyID)
	if err := c.doJSON(ctx, http.MethodPut, target, replyBody{Comment: comment}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReply removes a reply. The response may omit the review subtree.
func (c *Client) DeleteReply(ctx context.Context, productID, reviewID, replyID string) (*RepliesResponse, error) {
	var out RepliesResponse
	target := c.path("products", productID, "reviews", reviewID, "replies", replyID)
	if err := c.doJSON(ctx, http.MethodDelete, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LikeReply toggles the caller's like on a reply.
func (c *Client) LikeReply(ctx context.Context, productID, reviewID, replyID string) (*RepliesResponse, error) {
	var out RepliesResponse
	target := c.path("products", productID, "reviews", reviewID, "replies", replyID, "like")
	if err := c.doJSON(ctx, http.MethodPost, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitReport files a report. The caller decides whether targetId is set.
func (c *Client) SubmitReport(ctx context.Context, report domain.Report) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.doJSON(ctx, http.MethodPost, c.path("reports"), report, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReports pages through submitted reports. Admin only.
func (c *Client) ListReports(ctx context.Context, kind string, page, perPage int) (*ReportsResponse, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("type", kind)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	target := c.path("reports")
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var out ReportsResponse
	if err := c.doJSON(ctx, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func encodeMultipart(fill func(w *multipart.Writer) error) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := fill(w); err != nil {
		return nil, "", fmt.Errorf("encode multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeReviewFields(w *multipart.Writer, title, comment string, rating int) error {
	if err := w.WriteField("title", title); err != nil {
		return err
	}
	if err := w.WriteField("comment", comment); err != nil {
		return err
	}
	return w.WriteField("rating", strconv.Itoa(rating))
}

func writeFiles(w *multipart.Writer, field string, files []Upload) error {
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	return nil
}
