// internal/domain/models/student.go
package models

import "time"

// StudentRating is the lifetime rating aggregate of one student, keyed
// by folded email. It is updated incrementally as reviews arrive.
type StudentRating struct {
	Email         string    `bson:"_id" json:"email"`
	AverageRating float64   `bson:"average_rating" json:"average_rating"`
	TotalReviews  int       `bson:"total_reviews" json:"total_reviews"`
	Version       int64     `bson:"version" json:"version"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}
