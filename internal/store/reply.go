package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/report"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/validator"
)

// ReplyStore manages the replies of one review. The replies themselves live
// in the parent ReviewStore; every successful call replaces them wholesale.
type ReplyStore struct {
	parent   *ReviewStore
	reviewID string

	mu      sync.Mutex
	visible bool
}

type replyInput struct {
	Comment string `json:"comment" validate:"required,max=500"`
}

// ReviewID is the review these replies belong to.
func (rs *ReplyStore) ReviewID() string { return rs.reviewID }

// Replies returns the current replies in insertion order.
func (rs *ReplyStore) Replies() []domain.Reply {
	return rs.parent.replies(rs.reviewID)
}

// Visible reports whether the reply thread is expanded.
func (rs *ReplyStore) Visible() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.visible
}

// ToggleVisible expands or collapses the thread. It never calls the backend.
func (rs *ReplyStore) ToggleVisible() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.visible = !rs.visible
	return rs.visible
}

func (rs *ReplyStore) find(replyID string) (domain.Reply, bool) {
	for _, rp := range rs.Replies() {
		if rp.ID == replyID {
			return rp, true
		}
	}
	return domain.Reply{}, false
}

// Create posts a reply.
func (rs *ReplyStore) Create(ctx context.Context, comment string) error {
	s := rs.parent
	if s.session.Viewer().Anonymous() {
		err := apperrors.NotAuthorized("Please sign in to reply")
		s.fail(ctx, "reply.create", err, "")
		return err
	}
	if err := validator.Check(replyInput{Comment: comment}); err != nil {
		s.fail(ctx, "reply.create", err, "")
		return err
	}

	done, err := s.inflight.begin("reply.create", rs.reviewID, "Posting reply")
	if err != nil {
		return err
	}
	defer done()

	resp, err := s.backend.CreateReply(ctx, s.productID, rs.reviewID, comment)
	observe("reply.create", err)
	if err != nil {
		s.fail(ctx, "reply.create", err, "Failed to add reply")
		return err
	}
	if resp.Review != nil {
		s.replaceReplies(rs.reviewID, resp.Review.Replies)
	}
	s.succeed(resp.Message, "Reply added")
	return nil
}

// Update edits a reply. Authors only.
func (rs *ReplyStore) Update(ctx context.Context, replyID, comment string) error {
	s := rs.parent
	rp, ok := rs.find(replyID)
	if !ok {
		err := apperrors.NotFound("reply", replyID)
		s.fail(ctx, "reply.update", err, "Failed to update reply")
		return err
	}
	if !s.session.Viewer().Owns(rp.Author) {
		err := apperrors.NotAuthorized("Only the author can edit this reply")
		s.fail(ctx, "reply.update", err, "")
		return err
	}
	if err := validator.Check(replyInput{Comment: comment}); err != nil {
		s.fail(ctx, "reply.update", err, "")
		return err
	}

	done, err := s.inflight.begin("reply.update", replyID, "Updating reply")
	if err != nil {
		return err
	}
	defer done()

	resp, err := s.backend.UpdateReply(ctx, s.productID, rs.reviewID, replyID, comment)
	observe("reply.update", err)
	if err != nil {
		s.fail(ctx, "reply.update", err, "Failed to update reply")
		return err
	}
	if resp.Review != nil {
		s.replaceReplies(rs.reviewID, resp.Review.Replies)
	}
	s.succeed(resp.Message, "Reply updated")
	return nil
}

// Delete removes a reply. Authors and admins only. When the response does
// not carry the replies, the current replies minus the deleted one are kept.
func (rs *ReplyStore) Delete(ctx context.Context, replyID string) error {
	s := rs.parent
	rp, ok := rs.find(replyID)
	if !ok {
		err := apperrors.NotFound("reply", replyID)
		s.fail(ctx, "reply.delete", err, "Failed to delete reply")
		return err
	}
	if !actionsFor(s.session.Viewer(), rp.Author, rp.ReportedBy).CanDelete {
		err := apperrors.NotAuthorized("Only the author or an admin can delete this reply")
		s.fail(ctx, "reply.delete", err, "")
		return err
	}

	done, err := s.inflight.begin("reply.delete", replyID, "Deleting reply")
	if err != nil {
		return err
	}
	defer done()

	resp, err := s.backend.DeleteReply(ctx, s.productID, rs.reviewID, replyID)
	observe("reply.delete", err)
	if err != nil {
		s.fail(ctx, "reply.delete", err, "Failed to delete reply")
		return err
	}

	if resp.Review != nil {
		s.replaceReplies(rs.reviewID, resp.Review.Replies)
	} else {
		s.logger.DebugContext(ctx, "delete reply response without replies, pruning locally",
			slog.String("reply_id", replyID),
		)
		remaining := slices.DeleteFunc(rs.Replies(), func(r domain.Reply) bool { return r.ID == replyID })
		s.replaceReplies(rs.reviewID, remaining)
	}
	s.succeed(resp.Message, "Reply deleted")
	return nil
}

// Like toggles the viewer's like on a reply.
func (rs *ReplyStore) Like(ctx context.Context, replyID string) error {
	s := rs.parent
	if s.session.Viewer().Anonymous() {
		err := apperrors.NotAuthorized("Please sign in to like replies")
		s.fail(ctx, "reply.like", err, "")
		return err
	}

	done, err := s.inflight.begin("reply.like", replyID, "Liking reply")
	if err != nil {
		return err
	}
	defer done()

	resp, err := s.backend.LikeReply(ctx, s.productID, rs.reviewID, replyID)
	observe("reply.like", err)
	if err != nil {
		s.fail(ctx, "reply.like", err, "Failed to like reply")
		return err
	}
	if resp.Review != nil {
		s.replaceReplies(rs.reviewID, resp.Review.Replies)
	}
	return nil
}

// Actions returns the affordances the viewer has on a reply.
func (rs *ReplyStore) Actions(replyID string) (Actions, error) {
	rp, ok := rs.find(replyID)
	if !ok {
		return Actions{}, apperrors.NotFound("reply", replyID)
	}
	return actionsFor(rs.parent.session.Viewer(), rp.Author, rp.ReportedBy), nil
}

// OpenReport opens a report dialog for a reply.
func (rs *ReplyStore) OpenReport(replyID string) (*report.Workflow, error) {
	a, err := rs.Actions(replyID)
	if err != nil {
		return nil, err
	}
	if err := a.reportError("reply"); err != nil {
		return nil, err
	}
	return rs.parent.newReport(domain.ReportReply, replyID), nil
}
