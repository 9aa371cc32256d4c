package reviews_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/domain/reviews"
	"github.com/dalemusser/collabhub/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

type fixture struct {
	svc *reviews.Service
	w   *memstore.World
	p   *models.Project
}

func setup(t *testing.T, members ...string) *fixture {
	t.Helper()
	w := memstore.NewWorld()
	base := kit.Base{Now: w.Clock.Now, MaxAttempts: 50}
	p := w.SeedProject(t, "Robot Arm", "rep", 5, 2)
	require.NoError(t, w.Selections.Save(context.Background(), &models.SelectionDoc{
		ProjectID:  p.ID,
		Selections: []models.Selection{{SelectionID: "g1", GroupLeader: members[0], GroupMembers: members}},
	}))

	notifier := notify.NewService(base, w.Notifications, w.Directory, nil, "collabhub")
	svc := reviews.NewService(base, reviews.Deps{
		Reviews:    w.Reviews,
		Students:   w.Students,
		Projects:   w.Projects,
		Selections: w.Selections,
		Tx:         txn.Compensating{},
		Notifier:   notifier,
	})
	return &fixture{svc: svc, w: w, p: p}
}

func (f *fixture) student(t *testing.T, email string) models.StudentRating {
	t.Helper()
	st, err := f.w.Students.Get(context.Background(), email)
	require.NoError(t, err)
	return *st
}

func TestSubmit_TwoMembersFromZero(t *testing.T) {
	f := setup(t, "ana@uni.edu", "ben@uni.edu")

	doc, err := f.svc.Submit(context.Background(), f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.TotalReviews)
	assert.Equal(t, 5.0, doc.AverageRating)

	for _, email := range []string{"ana@uni.edu", "ben@uni.edu"} {
		st := f.student(t, email)
		assert.Equal(t, 5.0, st.AverageRating, email)
		assert.Equal(t, 1, st.TotalReviews, email)
	}

	n := f.w.Notifications.OfType(models.NotifyReview)
	require.Len(t, n, 1)
	assert.Len(t, n[0].Recipients, 2)
}

func TestSubmit_IncrementalMatchesMean(t *testing.T) {
	f := setup(t, "ana@uni.edu")
	ctx := context.Background()
	ratings := []int{3, 5, 4, 1, 2, 5, 5, 4}

	sum := 0
	for i, r := range ratings {
		_, err := f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: fmt.Sprintf("r%d", i), Role: "industry", Rating: r})
		require.NoError(t, err)
		sum += r
	}

	st := f.student(t, "ana@uni.edu")
	assert.Equal(t, len(ratings), st.TotalReviews)
	assert.InDelta(t, float64(sum)/float64(len(ratings)), st.AverageRating, eps)

	doc, err := f.svc.Get(ctx, f.p.ID, "g1")
	require.NoError(t, err)
	assert.Equal(t, len(ratings), doc.TotalReviews)
	assert.InDelta(t, st.AverageRating, doc.AverageRating, eps, "one group, so both averages agree")
}

func TestSubmit_ResubmissionReplaces(t *testing.T) {
	f := setup(t, "ana@uni.edu")
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 2})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "i1", Role: "industry", Rating: 4})
	require.NoError(t, err)
	doc, err := f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 5, Comments: "better"})
	require.NoError(t, err)

	assert.Len(t, doc.Reviews, 2)
	assert.Equal(t, 2, doc.TotalReviews)
	assert.InDelta(t, 4.5, doc.AverageRating, eps)

	st := f.student(t, "ana@uni.edu")
	assert.Equal(t, 2, st.TotalReviews, "a resubmission is not a new review")
	assert.InDelta(t, 4.5, st.AverageRating, eps)
}

func TestSubmit_LateJoinerReceivesResubmissionAsNew(t *testing.T) {
	f := setup(t, "ana@uni.edu")
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 2})
	require.NoError(t, err)

	doc, err := f.w.Selections.Get(ctx, f.p.ID)
	require.NoError(t, err)
	doc.Selections[0].AddMember("ben@uni.edu")
	require.NoError(t, f.w.Selections.Save(ctx, doc))

	_, err = f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 4})
	require.NoError(t, err)

	ana := f.student(t, "ana@uni.edu")
	assert.Equal(t, 1, ana.TotalReviews)
	assert.InDelta(t, 4.0, ana.AverageRating, eps)
	ben := f.student(t, "ben@uni.edu")
	assert.Equal(t, 1, ben.TotalReviews)
	assert.InDelta(t, 4.0, ben.AverageRating, eps)
}

func TestSubmit_Validation(t *testing.T) {
	f := setup(t, "ana@uni.edu")
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "s1", Role: "student", Rating: 5})
	assert.ErrorIs(t, err, apperr.ErrInvalidRole)

	for _, r := range []int{0, 6} {
		_, err = f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: r})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}

	_, err = f.svc.Submit(ctx, "missing", "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 5})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Submit(ctx, f.p.ID, "nope", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 5})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, 0, f.w.Reviews.Len())
	assert.Equal(t, 0, f.w.Students.Len())
}

func TestSubmit_FailureRollsBackEverything(t *testing.T) {
	f := setup(t, "ana@uni.edu", "ben@uni.edu")
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 3})
	require.NoError(t, err)
	reviewsBefore, err := f.svc.Get(ctx, f.p.ID, "g1")
	require.NoError(t, err)

	outage := errors.New("disk full")
	f.w.Students.BeforeSave = func(id string) error {
		if id == "ben@uni.edu" {
			return outage
		}
		return nil
	}

	_, err = f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "i1", Role: "industry", Rating: 5})
	require.ErrorIs(t, err, outage)

	ana := f.student(t, "ana@uni.edu")
	assert.Equal(t, 1, ana.TotalReviews, "ana's write was compensated")
	assert.InDelta(t, 3.0, ana.AverageRating, eps)

	after, err := f.svc.Get(ctx, f.p.ID, "g1")
	require.NoError(t, err)
	assert.Len(t, after.Reviews, 1)
	assert.Equal(t, reviewsBefore.TotalReviews, after.TotalReviews)

	f.w.Students.BeforeSave = nil
	_, err = f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "i1", Role: "industry", Rating: 5})
	require.NoError(t, err)
	ana = f.student(t, "ana@uni.edu")
	assert.Equal(t, 2, ana.TotalReviews)
	assert.InDelta(t, 4.0, ana.AverageRating, eps)
}

func TestSubmit_FirstReviewRollbackRemovesDocuments(t *testing.T) {
	f := setup(t, "ana@uni.edu", "ben@uni.edu")
	f.w.Reviews.BeforeSave = func(string) error { return errors.New("write failed") }

	_, err := f.svc.Submit(context.Background(), f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 4})
	require.Error(t, err)
	assert.Equal(t, 0, f.w.Reviews.Len())
	assert.Equal(t, 0, f.w.Students.Len(), "new student aggregates are deleted on rollback")
}

func TestSubmit_ConcurrentReviewersAllCounted(t *testing.T) {
	f := setup(t, "ana@uni.edu", "ben@uni.edu", "cat@uni.edu")
	ctx := context.Background()

	const reviewers = 6
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Submit(ctx, f.p.ID, "g1", reviews.ReviewInput{ReviewerID: fmt.Sprintf("r%d", i), Role: "industry", Rating: 1 + i%5})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doc, err := f.svc.Get(ctx, f.p.ID, "g1")
	require.NoError(t, err)
	assert.Equal(t, reviewers, doc.TotalReviews)
	for _, email := range []string{"ana@uni.edu", "ben@uni.edu", "cat@uni.edu"} {
		st := f.student(t, email)
		assert.Equal(t, reviewers, st.TotalReviews, email)
		assert.InDelta(t, doc.AverageRating, st.AverageRating, eps, email)
	}
}

func TestStudentRating(t *testing.T) {
	f := setup(t, "ana@uni.edu")
	_, err := f.svc.StudentRating(context.Background(), "ana@uni.edu")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Submit(context.Background(), f.p.ID, "g1", reviews.ReviewInput{ReviewerID: "t1", Role: "teacher", Rating: 4})
	require.NoError(t, err)
	st, err := f.svc.StudentRating(context.Background(), " ANA@uni.edu ")
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalReviews)
}
