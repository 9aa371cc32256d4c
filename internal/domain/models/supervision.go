// internal/domain/models/supervision.go
package models

import "time"

// Supervision response statuses.
const (
	SupervisionPending  = "pending"
	SupervisionApproved = "approved"
	SupervisionRejected = "rejected"
)

// Bulk supervision lookup results.
const (
	SupervisedByYou = "supervised_by_you"
	ApprovedByOther = "approved_by_other"
	SupervisionOpen = "pending"
)

// ValidSupervisionStatus reports whether s is a known response status.
func ValidSupervisionStatus(s string) bool {
	switch s {
	case SupervisionPending, SupervisionApproved, SupervisionRejected:
		return true
	}
	return false
}

// SupervisionResponse is the representative's answer to a request.
type SupervisionResponse struct {
	Status   string     `bson:"status" json:"status"`
	ActionBy string     `bson:"action_by,omitempty" json:"action_by,omitempty"`
	ActionAt *time.Time `bson:"actioned_at,omitempty" json:"actioned_at,omitempty"`
	Comments string     `bson:"comments,omitempty" json:"comments,omitempty"`
}

// SupervisionEntry is a teacher's request to supervise a project.
type SupervisionEntry struct {
	TeacherID    string              `bson:"teacher_id" json:"teacher_id"`
	FullName     string              `bson:"full_name" json:"full_name"`
	University   string              `bson:"university" json:"university"`
	UniversityCI string              `bson:"university_ci" json:"-"`
	Email        string              `bson:"email" json:"email"`
	RequestedAt  time.Time           `bson:"requested_at" json:"requested_at"`
	Response     SupervisionResponse `bson:"response" json:"response"`
}

// SupervisionLedger is the per-project aggregate of supervision entries.
type SupervisionLedger struct {
	ProjectID string             `bson:"_id" json:"project_id"`
	Entries   []SupervisionEntry `bson:"entries" json:"entries"`
	Version   int64              `bson:"version" json:"version"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Find returns the index of the teacher's entry, or -1.
func (l *SupervisionLedger) Find(teacherID string) int {
	for i := range l.Entries {
		if l.Entries[i].TeacherID == teacherID {
			return i
		}
	}
	return -1
}

// OtherApproved reports whether a teacher other than teacherID from the
// same (case-folded) university holds an approved supervision.
func (l *SupervisionLedger) OtherApproved(teacherID, universityCI string) bool {
	for _, e := range l.Entries {
		if e.TeacherID == teacherID || e.UniversityCI != universityCI {
			continue
		}
		if e.Response.Status == SupervisionApproved {
			return true
		}
	}
	return false
}

// Approved returns the approved supervision entries.
func (l *SupervisionLedger) Approved() []SupervisionEntry {
	var out []SupervisionEntry
	for _, e := range l.Entries {
		if e.Response.Status == SupervisionApproved {
			out = append(out, e)
		}
	}
	return out
}

// StatusFor classifies the ledger from the viewpoint of one teacher
// (identified by folded email) at one university.
func (l *SupervisionLedger) StatusFor(emailCI, universityCI string) string {
	other := false
	for _, e := range l.Entries {
		if e.Response.Status != SupervisionApproved || e.UniversityCI != universityCI {
			continue
		}
		if e.Email == emailCI {
			return SupervisedByYou
		}
		other = true
	}
	if other {
		return ApprovedByOther
	}
	return SupervisionOpen
}
