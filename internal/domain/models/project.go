// internal/domain/models/project.go
package models

import (
	"time"
)

// Project types.
const (
	ProjectIndividual = "Individual"
	ProjectGroup      = "Group"
)

// Lock states.
const (
	LockLocked   = "locked"
	LockUnlocked = "unlocked"
)

// Edit-request states.
const (
	EditNone     = "none"
	EditPending  = "pending"
	EditApproved = "approved"
	EditRejected = "rejected"
)

// Duration is the window in which a project accepts groups.
type Duration struct {
	StartDate time.Time `bson:"start_date" json:"start_date"`
	EndDate   time.Time `bson:"end_date" json:"end_date"`
}

// Lock controls whether the representative may edit the project.
// UnlockedUntil is only meaningful while State is "unlocked".
type Lock struct {
	State         string     `bson:"state" json:"state"`
	UnlockedUntil *time.Time `bson:"unlocked_until,omitempty" json:"unlocked_until,omitempty"`
}

// EditRequest tracks the representative's request to unlock a project.
type EditRequest struct {
	Status      string     `bson:"status" json:"status"`
	Reason      string     `bson:"reason,omitempty" json:"reason,omitempty"`
	RequestedBy string     `bson:"requested_by,omitempty" json:"requested_by,omitempty"`
	RequestedAt *time.Time `bson:"requested_at,omitempty" json:"requested_at,omitempty"`
	DecidedBy   string     `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
	DecidedAt   *time.Time `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}

// Project is a posting created by an industry representative.
//
// MaxGroups is a per-university quota: each university may form up to
// MaxGroups selections against the project independently.
type Project struct {
	ID               string      `bson:"_id" json:"id"`
	Title            string      `bson:"title" json:"title"`
	TitleCI          string      `bson:"title_ci" json:"-"`
	Description      string      `bson:"description" json:"description"`
	Type             string      `bson:"type" json:"type"`
	Skills           []string    `bson:"skills,omitempty" json:"skills,omitempty"`
	MaxStudents      int         `bson:"max_students_per_group" json:"max_students_per_group"`
	MaxGroups        int         `bson:"max_groups" json:"max_groups"`
	Duration         Duration    `bson:"duration" json:"duration"`
	Lock             Lock        `bson:"lock" json:"lock"`
	EditRequest      EditRequest `bson:"edit_request" json:"edit_request"`
	Attachments      []string    `bson:"attachments,omitempty" json:"attachments,omitempty"`
	RepresentativeID string      `bson:"representative_id" json:"representative_id"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsGroup reports whether the project forms multi-member groups.
func (p Project) IsGroup() bool { return p.Type == ProjectGroup }

// MemberLimit returns the effective per-group member cap.
func (p Project) MemberLimit() int {
	if p.Type == ProjectIndividual {
		return 1
	}
	return p.MaxStudents
}

// GroupLimit returns the per-university group cap, or 0 for no cap.
func (p Project) GroupLimit() int {
	return p.MaxGroups
}

// LockExpired reports whether an unlocked project has passed its
// unlocked-until instant and should be locked again.
func (p Project) LockExpired(now time.Time) bool {
	if p.Lock.State != LockUnlocked || p.Lock.UnlockedUntil == nil {
		return false
	}
	return p.Lock.UnlockedUntil.Before(now)
}

// DeadlinePassed reports whether now is after the project's end date.
func (p Project) DeadlinePassed(now time.Time) bool {
	if p.Duration.EndDate.IsZero() {
		return false
	}
	return now.After(p.Duration.EndDate)
}
