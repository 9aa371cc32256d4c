package memstore

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// World bundles one of every store so a test can wire any service.
type World struct {
	Projects      *Projects
	Approvals     *Approvals
	Supervisions  *Supervisions
	Selections    *Selections
	Submissions   *Submissions
	Reviews       *Reviews
	Students      *Students
	Notifications *Notifications
	Directory     *Directory
	Clock         *Clock
}

func NewWorld() *World {
	return &World{
		Projects:      NewProjects(),
		Approvals:     NewApprovals(),
		Supervisions:  NewSupervisions(),
		Selections:    NewSelections(),
		Submissions:   NewSubmissions(),
		Reviews:       NewReviews(),
		Students:      NewStudents(),
		Notifications: NewNotifications(),
		Directory:     NewDirectory(),
		Clock:         NewClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
	}
}

// SeedProject stores a Group project owned by representativeID that runs
// for thirty days from the world's clock.
func (w *World) SeedProject(t testing.TB, title, representativeID string, maxStudents, maxGroups int) *models.Project {
	t.Helper()
	now := w.Clock.Now()
	p := &models.Project{
		ID:               primitive.NewObjectID().Hex(),
		Title:            title,
		TitleCI:          strings.ToLower(title),
		Type:             models.ProjectGroup,
		MaxStudents:      maxStudents,
		MaxGroups:        maxGroups,
		Duration:         models.Duration{StartDate: now.Add(-24 * time.Hour), EndDate: now.Add(30 * 24 * time.Hour)},
		Lock:             models.Lock{State: models.LockLocked},
		EditRequest:      models.EditRequest{Status: models.EditNone},
		RepresentativeID: representativeID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := w.Projects.Save(context.Background(), p); err != nil {
		t.Fatalf("seed project %q: %v", title, err)
	}
	return p
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
