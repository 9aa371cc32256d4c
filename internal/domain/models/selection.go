// internal/domain/models/selection.go
package models

import "time"

// Completion roles.
const (
	RoleIndustry = "industry"
	RoleTeacher  = "teacher"
)

// CompletionStatus is the dual sign-off state of a group.
// IsCompleted is derived and must always equal IndustryCompleted && TeacherCompleted.
type CompletionStatus struct {
	IndustryCompleted bool `bson:"industry_completed" json:"IndustryCompleted"`
	TeacherCompleted  bool `bson:"teacher_completed" json:"TeacherCompleted"`
	IsCompleted       bool `bson:"is_completed" json:"isCompleted"`
}

// Selection is one student group's enrollment against a project.
type Selection struct {
	SelectionID  string           `bson:"selection_id" json:"selection_id"`
	University   string           `bson:"university" json:"university"`
	UniversityCI string           `bson:"university_ci" json:"-"`
	GroupLeader  string           `bson:"group_leader" json:"group_leader"`
	GroupMembers []string         `bson:"group_members" json:"group_members"`
	JoinedAt     time.Time        `bson:"joined_at" json:"joined_at"`
	Status       CompletionStatus `bson:"status" json:"status"`
	CompletedAt  *time.Time       `bson:"completed_at" json:"completed_at"`
}

// HasMember reports whether email (already folded) is in the group.
func (s *Selection) HasMember(email string) bool {
	for _, m := range s.GroupMembers {
		if m == email {
			return true
		}
	}
	return false
}

// AddMember appends email with set semantics and reports whether it was added.
func (s *Selection) AddMember(email string) bool {
	if s.HasMember(email) {
		return false
	}
	s.GroupMembers = append(s.GroupMembers, email)
	return true
}

// SetRole sets one role flag and re-derives IsCompleted/CompletedAt.
// It returns false for unknown roles without modifying the selection.
func (s *Selection) SetRole(role string, value bool, now time.Time) bool {
	switch role {
	case RoleIndustry:
		s.Status.IndustryCompleted = value
	case RoleTeacher:
		s.Status.TeacherCompleted = value
	default:
		return false
	}
	s.Status, s.CompletedAt = DeriveCompletion(s.Status, s.CompletedAt, now)
	return true
}

// DeriveCompletion recomputes IsCompleted from the two role flags.
// CompletedAt is stamped on the false→true edge, cleared on the
// true→false edge, and otherwise left unchanged.
func DeriveCompletion(st CompletionStatus, completedAt *time.Time, now time.Time) (CompletionStatus, *time.Time) {
	was := st.IsCompleted
	st.IsCompleted = st.IndustryCompleted && st.TeacherCompleted
	switch {
	case st.IsCompleted && !was:
		t := now
		completedAt = &t
	case !st.IsCompleted && was:
		completedAt = nil
	}
	return st, completedAt
}

// SelectionDoc is the per-project aggregate holding every group.
type SelectionDoc struct {
	ProjectID  string      `bson:"_id" json:"project_id"`
	Selections []Selection `bson:"selections" json:"selections"`
	Version    int64       `bson:"version" json:"version"`
	UpdatedAt  time.Time   `bson:"updated_at" json:"updated_at"`
}

// Find returns the index of the selection, or -1.
func (d *SelectionDoc) Find(selectionID string) int {
	for i := range d.Selections {
		if d.Selections[i].SelectionID == selectionID {
			return i
		}
	}
	return -1
}

// CountForUniversity counts selections formed by the (folded) university.
func (d *SelectionDoc) CountForUniversity(universityCI string) int {
	n := 0
	for _, s := range d.Selections {
		if s.UniversityCI == universityCI {
			n++
		}
	}
	return n
}

// IDs returns the set of selection ids in the document.
func (d *SelectionDoc) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(d.Selections))
	for _, s := range d.Selections {
		ids[s.SelectionID] = struct{}{}
	}
	return ids
}
