// internal/domain/models/submission.go
package models

import "time"

// SubmissionEntry is one upload by a group member.
type SubmissionEntry struct {
	SubmissionID string    `bson:"submission_id" json:"submission_id"`
	Submitter    string    `bson:"submitter" json:"submitter"`
	Comments     string    `bson:"comments,omitempty" json:"comments,omitempty"`
	Files        []string  `bson:"files,omitempty" json:"files,omitempty"`
	SubmittedAt  time.Time `bson:"submitted_at" json:"submitted_at"`
}

// SubmissionDoc holds a group's submissions in submission order.
// TotalSubmissions and LastSubmittedAt are derived; see RecomputeSubmissionStats.
type SubmissionDoc struct {
	ID               string            `bson:"_id" json:"id"`
	ProjectID        string            `bson:"project_id" json:"project_id"`
	SelectionID      string            `bson:"selection_id" json:"selection_id"`
	Submissions      []SubmissionEntry `bson:"submissions" json:"submissions"`
	TotalSubmissions int               `bson:"total_submissions" json:"total_submissions"`
	LastSubmittedAt  *time.Time        `bson:"last_submitted_at,omitempty" json:"last_submitted_at,omitempty"`
	Version          int64             `bson:"version" json:"version"`
	UpdatedAt        time.Time         `bson:"updated_at" json:"updated_at"`
}

// GroupKey builds the document key shared by submissions and reviews.
func GroupKey(projectID, selectionID string) string {
	return projectID + ":" + selectionID
}

// RecomputeSubmissionStats rederives the totals from the submissions array.
func RecomputeSubmissionStats(d *SubmissionDoc) {
	d.TotalSubmissions = len(d.Submissions)
	d.LastSubmittedAt = nil
	for i := range d.Submissions {
		at := d.Submissions[i].SubmittedAt
		if d.LastSubmittedAt == nil || at.After(*d.LastSubmittedAt) {
			t := at
			d.LastSubmittedAt = &t
		}
	}
}
