// Package reviews records reviewer ratings of a group and folds them into
// each member's lifetime rating.
//
// The review document and every affected student aggregate are written in
// one unit of work. Each write is a compare-and-swap; a lost race aborts
// the whole unit, which is then retried from a fresh read.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/app/system/rating"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.uber.org/zap"
)

// Deps wires the aggregator to its stores and collaborators.
type Deps struct {
	Reviews    ReviewStore
	Students   StudentStore
	Projects   ProjectReader
	Selections SelectionReader
	Tx         kit.Transactor
	Notifier   notify.Notifier
}

type Service struct {
	kit.Base
	Deps
}

func NewService(base kit.Base, deps Deps) *Service {
	return &Service{Base: base.Normalize(), Deps: deps}
}

// ReviewInput is one reviewer's assessment of a group.
type ReviewInput struct {
	ReviewerID string
	Role       string
	Rating     int
	Comments   string
}

// Submit upserts the reviewer's review of the group and updates every
// member's lifetime rating. A resubmission replaces the reviewer's earlier
// rating in the average of each member it was folded into, without
// counting it twice; members who joined since receive it as new.
func (s *Service) Submit(ctx context.Context, projectID, selectionID string, in ReviewInput) (*models.ReviewDoc, error) {
	reviewer := strings.TrimSpace(in.ReviewerID)
	role := normalize.Role(in.Role)
	switch {
	case reviewer == "":
		return nil, s.Observe("review.submit", apperr.Validation("reviewer id is required"))
	case role != models.RoleTeacher && role != models.RoleIndustry:
		return nil, s.Observe("review.submit", apperr.InvalidRole("role must be %q or %q", models.RoleTeacher, models.RoleIndustry))
	case in.Rating < models.MinRating || in.Rating > models.MaxRating:
		return nil, s.Observe("review.submit", apperr.Validation("rating must be between %d and %d", models.MinRating, models.MaxRating))
	}
	comments := htmlsanitize.StripTags(in.Comments)

	if _, err := s.Projects.Get(ctx, projectID); err != nil {
		return nil, s.Observe("review.submit", kit.NotFound(err, "project"))
	}
	members, err := s.members(ctx, projectID, selectionID)
	if err != nil {
		return nil, s.Observe("review.submit", err)
	}

	keys := []string{"project:" + projectID}
	for _, email := range members {
		keys = append(keys, "student:"+email)
	}
	var out *models.ReviewDoc
	err = s.Retry(txn.WithLockKeys(ctx, keys...), "review", func(ctx context.Context) error {
		return s.Tx.InTx(ctx, func(ctx context.Context) error {
			now := s.Clock()
			doc, before, err := s.loadReview(ctx, projectID, selectionID)
			if err != nil {
				return err
			}

			r := models.Review{ReviewerID: reviewer, Role: role, Rating: in.Rating, Comments: comments, ReviewedAt: now}
			i := doc.Find(reviewer)
			var prev *models.Review
			if i >= 0 {
				p := doc.Reviews[i]
				prev = &p
				doc.Reviews[i] = r
			} else {
				doc.Reviews = append(doc.Reviews, r)
				i = len(doc.Reviews) - 1
			}

			for _, email := range members {
				if prev != nil && contains(prev.RatedMembers, email) {
					if prev.Rating != in.Rating {
						if err := s.reviseRating(ctx, email, prev.Rating, in.Rating); err != nil {
							return err
						}
					}
				} else if err := s.addRating(ctx, email, in.Rating); err != nil {
					return err
				}
				doc.Reviews[i].RatedMembers = append(doc.Reviews[i].RatedMembers, email)
			}

			models.RecomputeReviewStats(doc)
			doc.UpdatedAt = now
			if err := kit.SaveUndoable[models.ReviewDoc, *models.ReviewDoc](ctx, s.Reviews, doc, before); err != nil {
				return err
			}
			out = doc
			return nil
		})
	})
	if err != nil {
		return nil, s.Observe("review.submit", err)
	}
	s.Log.Info("review submitted",
		zap.String("project_id", projectID),
		zap.String("selection_id", selectionID),
		zap.String("reviewer_id", reviewer),
		zap.Int("rating", in.Rating),
	)

	s.Notifier.Dispatch(ctx, notify.Event{
		Type:       models.NotifyReview,
		Title:      "New review",
		Message:    fmt.Sprintf("Your group received a %d-star review from the %s side.", in.Rating, role),
		Related:    models.RelatedEntity{Type: "review", ID: projectID, SecondaryID: selectionID},
		Recipients: members,
		SenderID:   reviewer,
	})
	return out, s.Observe("review.submit", nil)
}

// Get returns the group's review document.
func (s *Service) Get(ctx context.Context, projectID, selectionID string) (*models.ReviewDoc, error) {
	d, err := s.Reviews.Get(ctx, models.GroupKey(projectID, selectionID))
	if err != nil {
		return nil, kit.NotFound(err, "review")
	}
	return d, nil
}

// StudentRating returns the lifetime aggregate for a student.
func (s *Service) StudentRating(ctx context.Context, email string) (*models.StudentRating, error) {
	r, err := s.Students.Get(ctx, normalize.Email(email))
	if err != nil {
		return nil, kit.NotFound(err, "student")
	}
	return r, nil
}

func (s *Service) members(ctx context.Context, projectID, selectionID string) ([]string, error) {
	doc, err := s.Selections.Get(ctx, projectID)
	if err != nil {
		return nil, kit.NotFound(err, "group")
	}
	i := doc.Find(selectionID)
	if i < 0 {
		return nil, apperr.NotFound("group")
	}
	out := make([]string, 0, len(doc.Selections[i].GroupMembers))
	for _, m := range doc.Selections[i].GroupMembers {
		out = append(out, normalize.Email(m))
	}
	return out, nil
}

// loadReview returns the stored review document (or a new one) and a
// detached copy of its pre-mutation state, nil when it did not exist.
func (s *Service) loadReview(ctx context.Context, projectID, selectionID string) (*models.ReviewDoc, *models.ReviewDoc, error) {
	id := models.GroupKey(projectID, selectionID)
	doc, err := s.Reviews.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.ReviewDoc{ID: id, ProjectID: projectID, SelectionID: selectionID}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	before, err := kit.Clone(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, before, nil
}

// addRating folds a new rating into the student's aggregate.
func (s *Service) addRating(ctx context.Context, email string, value int) error {
	return s.updateStudent(ctx, email, func(st *models.StudentRating) {
		st.AverageRating, st.TotalReviews = rating.IncrementalAverage(st.AverageRating, st.TotalReviews, float64(value))
	})
}

// reviseRating swaps a previously folded rating for its replacement.
func (s *Service) reviseRating(ctx context.Context, email string, oldValue, newValue int) error {
	return s.updateStudent(ctx, email, func(st *models.StudentRating) {
		st.AverageRating = rating.ReviseAverage(st.AverageRating, st.TotalReviews, float64(oldValue), float64(newValue))
	})
}

func (s *Service) updateStudent(ctx context.Context, email string, apply func(*models.StudentRating)) error {
	st, err := s.Students.Get(ctx, email)
	var before *models.StudentRating
	switch {
	case errors.Is(err, repository.ErrNotFound):
		st = &models.StudentRating{Email: email}
	case err != nil:
		return err
	default:
		if before, err = kit.Clone(st); err != nil {
			return err
		}
	}
	apply(st)
	st.UpdatedAt = s.Clock()
	return kit.SaveUndoable[models.StudentRating, *models.StudentRating](ctx, s.Students, st, before)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
