// Package rating aggregates review ratings into a histogram and average.
package rating

import (
	"math"

	"github.com/utafrali/fitvibe/internal/domain"
)

// Summarize computes the average and per-star histogram of reviews.
// Ratings are clamped to [1,5] and rounded to the nearest star for bucketing;
// the average uses raw ratings and is rounded to one decimal.
func Summarize(reviews []domain.Review) domain.RatingSummary {
	s := domain.EmptySummary()
	if len(reviews) == 0 {
		return s
	}

	var sum float64
	for _, r := range reviews {
		sum += r.Rating
		s.Buckets[Bucket(r.Rating)]++
	}
	s.Count = len(reviews)
	s.Average = Round1(sum / float64(s.Count))
	return s
}

// Bucket returns the star bucket a rating falls into.
func Bucket(rating float64) int {
	clamped := math.Min(math.Max(rating, domain.MinRating), domain.MaxRating)
	return int(math.Round(clamped))
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Percent is the share of reviews in bucket star, 0 to 100, for bar widths.
func Percent(s domain.RatingSummary, star int) float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Buckets[star]) / float64(s.Count) * 100
}
