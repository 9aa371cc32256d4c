// internal/domain/models/approval.go
package models

import "time"

// Approval statuses.
const (
	ApprovalPending      = "pending"
	ApprovalApproved     = "approved"
	ApprovalRejected     = "rejected"
	ApprovalNeedMoreInfo = "needMoreInfo"
)

// ValidApprovalStatus reports whether s is a known approval status token.
func ValidApprovalStatus(s string) bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalNeedMoreInfo:
		return true
	}
	return false
}

// ApprovalEntry is one teacher's decision on a project.
// ActionAt/ActionBy stay empty for entries inserted as pending.
type ApprovalEntry struct {
	TeacherID    string     `bson:"teacher_id" json:"teacher_id"`
	FullName     string     `bson:"full_name" json:"full_name"`
	University   string     `bson:"university" json:"university"`
	UniversityCI string     `bson:"university_ci" json:"-"`
	Status       string     `bson:"status" json:"status"`
	Comments     string     `bson:"comments,omitempty" json:"comments,omitempty"`
	ActionAt     *time.Time `bson:"action_at,omitempty" json:"action_at,omitempty"`
	ActionBy     string     `bson:"action_by,omitempty" json:"action_by,omitempty"`
}

// ApprovalLedger is the per-project aggregate of approval entries.
// At most one entry exists per teacher.
type ApprovalLedger struct {
	ProjectID string          `bson:"_id" json:"project_id"`
	Entries   []ApprovalEntry `bson:"entries" json:"entries"`
	Version   int64           `bson:"version" json:"version"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

// Find returns the index of the teacher's entry, or -1.
func (l *ApprovalLedger) Find(teacherID string) int {
	for i := range l.Entries {
		if l.Entries[i].TeacherID == teacherID {
			return i
		}
	}
	return -1
}

// ApprovedFor reports whether any teacher from the (case-folded)
// university has approved the project.
func (l *ApprovalLedger) ApprovedFor(universityCI string) bool {
	for _, e := range l.Entries {
		if e.UniversityCI == universityCI && e.Status == ApprovalApproved {
			return true
		}
	}
	return false
}
