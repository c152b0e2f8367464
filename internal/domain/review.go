package domain

import (
	"slices"
	"time"
)

// Field limits shared by the client drafts and the backend DTOs.
const (
	MaxTitleLength         = 100
	MaxCommentLength       = 2000
	MaxReplyLength         = 500
	MaxReportMessageLength = 500
	MaxImages              = 3
	MinRating              = 1
	MaxRating              = 5
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Author is the public profile attached to reviews and replies.
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// ReportMark records that a user flagged a review or reply.
type ReportMark struct {
	User   string `json:"user"`
	Reason string `json:"reason"`
}

// Review is a product review with its replies.
type Review struct {
	ID        string       `json:"id"`
	ProductID string       `json:"productId,omitempty"`
	Author    Author       `json:"author"`
	Rating    float64      `json:"rating"`
	Title     string       `json:"title"`
	Comment   string       `json:"comment"`
	Images    []string     `json:"images"`
	Likes     []string     `json:"likes"`
	Reports   []ReportMark `json:"reports"`
	Replies   []Reply      `json:"replies"`
	Verified  bool         `json:"verified"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// LikesCount is the number of distinct users who liked the review.
func (r *Review) LikesCount() int { return len(r.Likes) }

// LikedBy reports whether userID is among the likes.
func (r *Review) LikedBy(userID string) bool {
	return userID != "" && slices.Contains(r.Likes, userID)
}

// ReportedBy reports whether userID already flagged the review.
func (r *Review) ReportedBy(userID string) bool {
	return reportedBy(r.Reports, userID)
}

// Reply finds a reply by id.
func (r *Review) Reply(id string) (Reply, bool) {
	for _, rp := range r.Replies {
		if rp.ID == id {
			return rp, true
		}
	}
	return Reply{}, false
}

// Reply is a comment on a review. It belongs to exactly one review.
type Reply struct {
	ID        string       `json:"id"`
	Author    Author       `json:"author"`
	Comment   string       `json:"comment"`
	Likes     []string     `json:"likes"`
	Reports   []ReportMark `json:"reports"`
	CreatedAt time.Time    `json:"createdAt"`
}

// LikesCount is the number of distinct users who liked the reply.
func (r *Reply) LikesCount() int { return len(r.Likes) }

// LikedBy reports whether userID is among the likes.
func (r *Reply) LikedBy(userID string) bool {
	return userID != "" && slices.Contains(r.Likes, userID)
}

// ReportedBy reports whether userID already flagged the reply.
func (r *Reply) ReportedBy(userID string) bool {
	return reportedBy(r.Reports, userID)
}

func reportedBy(marks []ReportMark, userID string) bool {
	if userID == "" {
		return false
	}
	return slices.ContainsFunc(marks, func(m ReportMark) bool { return m.User == userID })
}

// RatingSummary is the histogram and average of a set of reviews.
// Buckets always holds the keys 1 through 5.
type RatingSummary struct {
	Average float64     `json:"average"`
	Count   int         `json:"count"`
	Buckets map[int]int `json:"buckets"`
}

// EmptySummary returns a summary with every bucket present and zero.
func EmptySummary() RatingSummary {
	return RatingSummary{Buckets: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
}

// Viewer is the signed-in user looking at the page. The zero value is an
// anonymous visitor.
type Viewer struct {
	ID     string
	Name   string
	Avatar string
	Role   string
}

// Anonymous reports whether nobody is signed in.
func (v Viewer) Anonymous() bool { return v.ID == "" }

// IsAdmin reports whether the viewer has the admin role.
func (v Viewer) IsAdmin() bool { return v.Role == RoleAdmin }

// Owns reports whether the viewer wrote content by a.
func (v Viewer) Owns(a Author) bool { return !v.Anonymous() && v.ID == a.ID }
