package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Projects mirrors projectstore.Store, including the unique folded title.
type Projects struct {
	*Table[models.Project, *models.Project]
}

func NewProjects() *Projects {
	t := newTable[models.Project]()
	t.uniqueKey = func(p *models.Project) string { return p.TitleCI }
	return &Projects{Table: t}
}

func (s *Projects) ListExpiredLocks(ctx context.Context, now time.Time) ([]models.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Where(func(p *models.Project) bool { return p.LockExpired(now) }), nil
}

func (s *Projects) ListByIDs(ctx context.Context, ids []string) ([]models.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := s.Where(func(p *models.Project) bool { return want[p.ID] })
	sort.Slice(out, func(i, j int) bool { return out[i].TitleCI < out[j].TitleCI })
	return out, nil
}

// Approvals mirrors approvalstore.Store.
type Approvals struct {
	*Table[models.ApprovalLedger, *models.ApprovalLedger]
}

func NewApprovals() *Approvals {
	return &Approvals{Table: newTable[models.ApprovalLedger]()}
}

func (s *Approvals) ProjectIDsApprovedFor(ctx context.Context, universityCI string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	for _, l := range s.Where(func(l *models.ApprovalLedger) bool { return l.ApprovedFor(universityCI) }) {
		ids = append(ids, l.ProjectID)
	}
	return ids, nil
}

// Supervisions mirrors supervisionstore.Store.
type Supervisions struct {
	*Table[models.SupervisionLedger, *models.SupervisionLedger]
}

func NewSupervisions() *Supervisions {
	return &Supervisions{Table: newTable[models.SupervisionLedger]()}
}

func (s *Supervisions) GetMany(ctx context.Context, ids []string) ([]models.SupervisionLedger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.Where(func(l *models.SupervisionLedger) bool { return want[l.ProjectID] }), nil
}

// Selections mirrors selectionstore.Store.
type Selections struct {
	*Table[models.SelectionDoc, *models.SelectionDoc]
}

func NewSelections() *Selections {
	return &Selections{Table: newTable[models.SelectionDoc]()}
}

func (s *Selections) FindBySelectionID(ctx context.Context, selectionID string) (*models.SelectionDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs := s.Where(func(d *models.SelectionDoc) bool { return d.Find(selectionID) >= 0 })
	switch len(docs) {
	case 0:
		return nil, repository.ErrNotFound
	case 1:
		return &docs[0], nil
	}
	return nil, repository.ErrAmbiguous
}

// Submissions mirrors submissionstore.Store.
type Submissions struct {
	*Table[models.SubmissionDoc, *models.SubmissionDoc]
}

func NewSubmissions() *Submissions {
	return &Submissions{Table: newTable[models.SubmissionDoc]()}
}

func (s *Submissions) ListByProject(ctx context.Context, projectID string) ([]models.SubmissionDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Where(func(d *models.SubmissionDoc) bool { return d.ProjectID == projectID }), nil
}

// Reviews mirrors reviewstore.Store.
type Reviews struct {
	*Table[models.ReviewDoc, *models.ReviewDoc]
}

func NewReviews() *Reviews {
	return &Reviews{Table: newTable[models.ReviewDoc]()}
}

func (s *Reviews) ListByProject(ctx context.Context, projectID string) ([]models.ReviewDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Where(func(d *models.ReviewDoc) bool { return d.ProjectID == projectID }), nil
}

// Students mirrors studentstore.Store.
type Students struct {
	*Table[models.StudentRating, *models.StudentRating]
}

func NewStudents() *Students {
	return &Students{Table: newTable[models.StudentRating]()}
}

// Notifications mirrors notificationstore.Store.
type Notifications struct {
	mu   sync.Mutex
	list []models.Notification

	// FailInsert, when set, is returned from every Insert.
	FailInsert error
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (s *Notifications) Insert(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		return s.FailInsert
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	cp := *n
	cp.Recipients = append([]models.Recipient(nil), n.Recipients...)
	s.list = append(s.list, cp)
	return nil
}

func (s *Notifications) MarkRead(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (bool, error) {
	return s.update(ctx, id, userID, func(r *models.Recipient) bool {
		if r.Read {
			return false
		}
		r.Read = true
		if r.ReadAt == nil {
			r.ReadAt = &at
		}
		return true
	})
}

func (s *Notifications) Respond(ctx context.Context, id primitive.ObjectID, userID, response string, at time.Time) (bool, error) {
	return s.update(ctx, id, userID, func(r *models.Recipient) bool {
		if r.Responded {
			return false
		}
		r.Responded = true
		r.Response = response
		r.RespondedAt = &at
		r.Read = true
		if r.ReadAt == nil {
			r.ReadAt = &at
		}
		return true
	})
}

func (s *Notifications) update(ctx context.Context, id primitive.ObjectID, userID string, fn func(*models.Recipient) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID != id {
			continue
		}
		for j := range s.list[i].Recipients {
			if s.list[i].Recipients[j].UserID == userID {
				return fn(&s.list[i].Recipients[j]), nil
			}
		}
	}
	return false, repository.ErrNotFound
}

func (s *Notifications) ListForRecipient(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Notification
	for i := len(s.list) - 1; i >= 0; i-- {
		n := s.list[i]
		for _, r := range n.Recipients {
			if r.UserID == userID && (!unreadOnly || !r.Read) {
				cp := n
				cp.Recipients = append([]models.Recipient(nil), n.Recipients...)
				out = append(out, cp)
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every stored notification in insertion order.
func (s *Notifications) All() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.list...)
}

// OfType returns the stored notifications of one type.
func (s *Notifications) OfType(typ models.NotificationType) []models.Notification {
	var out []models.Notification
	for _, n := range s.All() {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// Directory is an in-memory identity directory.
type Directory struct {
	mu    sync.Mutex
	users []models.User
}

func NewDirectory(users ...models.User) *Directory {
	d := &Directory{}
	for _, u := range users {
		d.Add(u)
	}
	return d
}

// Add registers u, assigning an id when it has none.
func (d *Directory) Add(u models.User) models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	d.users = append(d.users, u)
	return u
}

func (d *Directory) Lookup(ctx context.Context, key string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	k := strings.ToLower(strings.TrimSpace(key))
	for _, u := range d.users {
		if u.ID.Hex() == k || u.Email == k {
			cp := u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d *Directory) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.User
	for _, u := range d.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}
