// Package reviewview filters, sorts and pages a review list for display.
package reviewview

import (
	"math"
	"slices"
	"strings"

	"github.com/utafrali/fitvibe/internal/domain"
)

// Sort is the display order of reviews.
type Sort string

const (
	SortRecent  Sort = "recent"
	SortHighest Sort = "highest"
	SortLowest  Sort = "lowest"
)

// ParseSort maps user input to a Sort. Anything unknown sorts by recency.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortHighest:
		return SortHighest
	case SortLowest:
		return SortLowest
	default:
		return SortRecent
	}
}

// Filter selects and orders reviews. Star 0 means all stars.
type Filter struct {
	Star       int
	PhotosOnly bool
	Sort       Sort
}

// Apply returns a new slice with the reviews that pass f, in f's order.
// The input slice is never modified.
//
// The star filter compares against the floor of the rating, so 3.9 shows up
// under 3 stars even though the histogram counts it as 4.
func Apply(reviews []domain.Review, f Filter) []domain.Review {
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if f.Star != 0 && int(math.Floor(r.Rating)) != f.Star {
			continue
		}
		if f.PhotosOnly && len(r.Images) == 0 {
			continue
		}
		out = append(out, r)
	}

	switch ParseSort(string(f.Sort)) {
	case SortHighest:
		slices.SortStableFunc(out, func(a, b domain.Review) int { return cmpFloat(b.Rating, a.Rating) })
	case SortLowest:
		slices.SortStableFunc(out, func(a, b domain.Review) int { return cmpFloat(a.Rating, b.Rating) })
	default:
		slices.SortStableFunc(out, func(a, b domain.Review) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
	return out
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
