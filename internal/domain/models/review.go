// internal/domain/models/review.go
package models

import "time"

// Review rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one reviewer's rating of a group.
type Review struct {
	ReviewerID string    `bson:"reviewer_id" json:"reviewer_id"`
	Role       string    `bson:"role" json:"role"`
	Rating     int       `bson:"rating" json:"rating"`
	Comments   string    `bson:"comments,omitempty" json:"comments,omitempty"`
	ReviewedAt time.Time `bson:"reviewed_at" json:"reviewed_at"`

	// RatedMembers are the students whose lifetime rating includes this
	// review's rating.
	RatedMembers []string `bson:"rated_members,omitempty" json:"-"`
}

// ReviewDoc holds all reviews for one group. AverageRating and
// TotalReviews are derived; see RecomputeReviewStats.
type ReviewDoc struct {
	ID            string    `bson:"_id" json:"id"`
	ProjectID     string    `bson:"project_id" json:"project_id"`
	SelectionID   string    `bson:"selection_id" json:"selection_id"`
	Reviews       []Review  `bson:"reviews" json:"reviews"`
	AverageRating float64   `bson:"average_rating" json:"average_rating"`
	TotalReviews  int       `bson:"total_reviews" json:"total_reviews"`
	Version       int64     `bson:"version" json:"version"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// Find returns the index of the reviewer's review, or -1.
func (d *ReviewDoc) Find(reviewerID string) int {
	for i := range d.Reviews {
		if d.Reviews[i].ReviewerID == reviewerID {
			return i
		}
	}
	return -1
}

// RecomputeReviewStats rederives the average and count by full scan.
func RecomputeReviewStats(d *ReviewDoc) {
	d.TotalReviews = len(d.Reviews)
	if d.TotalReviews == 0 {
		d.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range d.Reviews {
		sum += r.Rating
	}
	d.AverageRating = float64(sum) / float64(d.TotalReviews)
}
