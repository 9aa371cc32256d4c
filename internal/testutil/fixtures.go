package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a directory user.
func (f *Fixtures) CreateUser(ctx context.Context, username, email, role, university string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		Username:   username,
		Email:      text.Fold(email),
		Role:       role,
		University: university,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateAdmin inserts a directory user with the admin role.
func (f *Fixtures) CreateAdmin(ctx context.Context, username, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, username, email, models.UserAdmin, "")
}

// CreateProject inserts a locked Group project open for the next month.
func (f *Fixtures) CreateProject(ctx context.Context, title, representativeID string, maxStudents, maxGroups int) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := NewProject(title, representativeID, maxStudents, maxGroups)
	p.ID = primitive.NewObjectID().Hex()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// NewProject builds an unsaved Group project open for the next month.
func NewProject(title, representativeID string, maxStudents, maxGroups int) models.Project {
	now := time.Now().UTC()
	return models.Project{
		Title:            title,
		TitleCI:          text.Fold(title),
		Description:      "test project",
		Type:             models.ProjectGroup,
		MaxStudents:      maxStudents,
		MaxGroups:        maxGroups,
		Duration:         models.Duration{StartDate: now.Add(-24 * time.Hour), EndDate: now.Add(30 * 24 * time.Hour)},
		Lock:             models.Lock{State: models.LockLocked},
		EditRequest:      models.EditRequest{Status: models.EditNone},
		RepresentativeID: representativeID,
	}
}
