package projects_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/domain/projects"
	"github.com/dalemusser/collabhub/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFiles struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]bool
}

func (f *fakeFiles) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[url] {
		return errors.New("storage unavailable")
	}
	f.deleted = append(f.deleted, url)
	return nil
}

type harness struct {
	svc   *projects.Service
	w     *memstore.World
	files *fakeFiles
	admin models.User
	rep   models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	w := memstore.NewWorld()
	base := kit.Base{Now: w.Clock.Now}
	files := &fakeFiles{fail: map[string]bool{}}
	h := &harness{w: w, files: files}
	h.admin = w.Directory.Add(models.User{Username: "Ada Admin", Email: "ada@collabhub.test", Role: models.UserAdmin})
	h.rep = w.Directory.Add(models.User{Username: "Rita Rep", Email: "rita@acme.test", Role: models.UserRepresentative})

	notifier := notify.NewService(base, w.Notifications, w.Directory, nil, "collabhub")
	h.svc = projects.NewService(base, projects.Deps{
		Projects:     w.Projects,
		Approvals:    w.Approvals,
		Supervisions: w.Supervisions,
		Selections:   w.Selections,
		Submissions:  w.Submissions,
		Reviews:      w.Reviews,
		Files:        files,
		Tx:           txn.Compensating{},
		Notifier:     notifier,
		Directory:    w.Directory,
	})
	return h
}

func (h *harness) spec(title string) projects.Spec {
	now := h.w.Clock.Now()
	return projects.Spec{
		Title:       title,
		Description: "Build a thing",
		Type:        models.ProjectGroup,
		Skills:      []string{"go", " go ", "mongodb"},
		MaxStudents: 3,
		MaxGroups:   2,
		StartDate:   now,
		EndDate:     now.Add(60 * 24 * time.Hour),
	}
}

func (h *harness) create(t *testing.T, title string) *models.Project {
	t.Helper()
	p, err := h.svc.Create(context.Background(), projects.CreateRequest{Spec: h.spec(title), RepresentativeID: h.rep.ID.Hex()})
	require.NoError(t, err)
	return p
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*projects.CreateRequest)
		want   string
	}{
		{"missing title", func(r *projects.CreateRequest) { r.Title = "  " }, "title"},
		{"missing representative", func(r *projects.CreateRequest) { r.RepresentativeID = "" }, "representative"},
		{"missing end", func(r *projects.CreateRequest) { r.EndDate = time.Time{} }, "end date"},
		{"bad type", func(r *projects.CreateRequest) { r.Type = "Team" }, "type must be"},
		{"group without caps", func(r *projects.CreateRequest) { r.MaxGroups = 0 }, "max groups"},
		{"end before start", func(r *projects.CreateRequest) { r.EndDate = r.StartDate.Add(-time.Hour) }, "end date must not"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := projects.CreateRequest{Spec: h.spec("Valid"), RepresentativeID: h.rep.ID.Hex()}
			tt.mutate(&req)
			_, err := h.svc.Create(ctx, req)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Contains(t, apperr.Message(err), tt.want)
		})
	}
	assert.Equal(t, 0, h.w.Projects.Len())
}

func TestCreate_IndividualNeedsNoCaps(t *testing.T) {
	h := newHarness(t)
	req := projects.CreateRequest{Spec: h.spec("Solo Study"), RepresentativeID: h.rep.ID.Hex()}
	req.Type = models.ProjectIndividual
	req.MaxStudents, req.MaxGroups = 0, 0

	p, err := h.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, p.MemberLimit())
}

func TestCreate_StartsLockedAndNormalized(t *testing.T) {
	h := newHarness(t)
	req := projects.CreateRequest{Spec: h.spec("  Robot   Arm "), RepresentativeID: h.rep.ID.Hex()}
	req.Description = `<p>Hi</p><script>alert(1)</script>`

	p, err := h.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Robot Arm", p.Title)
	assert.Equal(t, models.LockLocked, p.Lock.State)
	assert.Equal(t, models.EditNone, p.EditRequest.Status)
	assert.Equal(t, []string{"go", "mongodb"}, p.Skills)
	assert.NotContains(t, p.Description, "script")
	assert.EqualValues(t, 1, p.Version)
}

func TestCreate_DuplicateTitle(t *testing.T) {
	h := newHarness(t)
	h.create(t, "Robot Arm")

	_, err := h.svc.Create(context.Background(), projects.CreateRequest{Spec: h.spec("ROBOT arm"), RepresentativeID: h.rep.ID.Hex()})
	require.ErrorIs(t, err, apperr.ErrDuplicate)
	assert.Contains(t, apperr.Message(err), "ROBOT arm")
}

func TestGet_NotFoundIsGeneric(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "project not found", apperr.Message(err))
}

func TestEditWorkflow_UnlockUpdateRelock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.create(t, "Robot Arm")

	_, err := h.svc.Update(ctx, p.ID, h.spec("Robot Arm v2"))
	require.ErrorIs(t, err, apperr.ErrValidation, "locked projects cannot be edited")

	_, err = h.svc.DecideEdit(ctx, p.ID, h.admin.ID.Hex(), true, h.w.Clock.Now().Add(time.Hour))
	require.ErrorIs(t, err, apperr.ErrValidation, "nothing pending yet")

	_, err = h.svc.RequestEdit(ctx, p.ID, h.rep.ID.Hex(), "typo in title")
	require.NoError(t, err)
	_, err = h.svc.RequestEdit(ctx, p.ID, h.rep.ID.Hex(), "again")
	require.ErrorIs(t, err, apperr.ErrDuplicate)

	reqs := h.w.Notifications.OfType(models.NotifyEditRequest)
	require.Len(t, reqs, 1)
	assert.Equal(t, h.admin.ID.Hex(), reqs[0].Recipients[0].UserID)
	assert.True(t, reqs[0].ActionRequired)

	until := h.w.Clock.Now().Add(2 * time.Hour)
	got, err := h.svc.DecideEdit(ctx, p.ID, h.admin.ID.Hex(), true, until)
	require.NoError(t, err)
	assert.Equal(t, models.LockUnlocked, got.Lock.State)
	assert.Equal(t, models.EditApproved, got.EditRequest.Status)

	decisions := h.w.Notifications.OfType(models.NotifyEditDecision)
	require.Len(t, decisions, 1)
	assert.Equal(t, h.rep.ID.Hex(), decisions[0].Recipients[0].UserID)

	updated, err := h.svc.Update(ctx, p.ID, h.spec("Robot Arm v2"))
	require.NoError(t, err)
	assert.Equal(t, "Robot Arm v2", updated.Title)

	h.w.Clock.Advance(3 * time.Hour)
	relocked, err := h.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LockLocked, relocked.Lock.State)
	assert.Nil(t, relocked.Lock.UnlockedUntil)

	again, err := h.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, relocked.Version, again.Version, "relock is idempotent")
}

func TestDecideEdit_RejectKeepsLocked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.create(t, "Robot Arm")

	_, err := h.svc.RequestEdit(ctx, p.ID, h.rep.ID.Hex(), "<b>please</b>")
	require.NoError(t, err)

	got, err := h.svc.DecideEdit(ctx, p.ID, h.admin.ID.Hex(), false, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, models.LockLocked, got.Lock.State)
	assert.Equal(t, models.EditRejected, got.EditRequest.Status)
	assert.Equal(t, "please", got.EditRequest.Reason)

	_, err = h.svc.Update(ctx, p.ID, h.spec("Robot Arm v2"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRequestEdit_RequiresReason(t *testing.T) {
	h := newHarness(t)
	p := h.create(t, "Robot Arm")
	_, err := h.svc.RequestEdit(context.Background(), p.ID, h.rep.ID.Hex(), "<i></i>")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestExpireLocks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.create(t, "Alpha")
	b := h.create(t, "Bravo")

	for _, id := range []string{a.ID, b.ID} {
		_, err := h.svc.RequestEdit(ctx, id, h.rep.ID.Hex(), "edit")
		require.NoError(t, err)
	}
	_, err := h.svc.DecideEdit(ctx, a.ID, h.admin.ID.Hex(), true, h.w.Clock.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = h.svc.DecideEdit(ctx, b.ID, h.admin.ID.Hex(), true, h.w.Clock.Now().Add(48*time.Hour))
	require.NoError(t, err)

	n, err := h.svc.ExpireLocks(ctx, h.w.Clock.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = h.svc.ExpireLocks(ctx, h.w.Clock.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second sweep finds nothing")
}

func TestListVisible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.create(t, "Alpha")
	b := h.create(t, "Bravo")
	h.create(t, "Charlie")

	require.NoError(t, h.w.Approvals.Save(ctx, &models.ApprovalLedger{ProjectID: a.ID, Entries: []models.ApprovalEntry{
		{TeacherID: "t1", UniversityCI: "mit", Status: models.ApprovalApproved},
	}}))
	require.NoError(t, h.w.Approvals.Save(ctx, &models.ApprovalLedger{ProjectID: b.ID, Entries: []models.ApprovalEntry{
		{TeacherID: "t1", UniversityCI: "mit", Status: models.ApprovalPending},
	}}))

	got, err := h.svc.ListVisible(ctx, " MIT ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	_, err = h.svc.ListVisible(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func seedChildren(t *testing.T, h *harness, p *models.Project) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.w.Approvals.Save(ctx, &models.ApprovalLedger{ProjectID: p.ID}))
	require.NoError(t, h.w.Supervisions.Save(ctx, &models.SupervisionLedger{ProjectID: p.ID}))
	require.NoError(t, h.w.Selections.Save(ctx, &models.SelectionDoc{ProjectID: p.ID, Selections: []models.Selection{
		{SelectionID: "s1", GroupMembers: []string{"ana@uni.edu"}},
	}}))
	require.NoError(t, h.w.Submissions.Save(ctx, &models.SubmissionDoc{
		ID: models.GroupKey(p.ID, "s1"), ProjectID: p.ID, SelectionID: "s1",
		Submissions: []models.SubmissionEntry{{SubmissionID: "x", Files: []string{"/uploads/report.pdf", "/uploads/broken.zip"}}},
	}))
	require.NoError(t, h.w.Reviews.Save(ctx, &models.ReviewDoc{ID: models.GroupKey(p.ID, "s1"), ProjectID: p.ID, SelectionID: "s1"}))
}

func TestDelete_Cascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := projects.CreateRequest{Spec: h.spec("Robot Arm"), RepresentativeID: h.rep.ID.Hex()}
	req.Attachments = []string{"/uploads/brief.pdf"}
	p, err := h.svc.Create(ctx, req)
	require.NoError(t, err)
	other := h.create(t, "Keep Me")
	seedChildren(t, h, p)
	seedChildren(t, h, other)
	h.files.fail["/uploads/broken.zip"] = true

	res, err := h.svc.Delete(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.FilesDeleted)
	assert.Equal(t, []string{"/uploads/broken.zip"}, res.FilesFailed)
	assert.ElementsMatch(t, []string{"/uploads/brief.pdf", "/uploads/report.pdf"}, h.files.deleted)

	assert.Equal(t, 1, h.w.Projects.Len())
	assert.Equal(t, 1, h.w.Approvals.Len())
	assert.Equal(t, 1, h.w.Supervisions.Len())
	assert.Equal(t, 1, h.w.Selections.Len())
	assert.Equal(t, 1, h.w.Submissions.Len())
	assert.Equal(t, 1, h.w.Reviews.Len())

	_, err = h.svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = h.svc.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_FailureRestoresEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.create(t, "Robot Arm")
	seedChildren(t, h, p)
	h.w.Projects.BeforeDelete = func(string) error { return errors.New("primary stepped down") }

	_, err := h.svc.Delete(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "stepped down"))

	assert.Equal(t, 1, h.w.Projects.Len())
	assert.Equal(t, 1, h.w.Approvals.Len())
	assert.Equal(t, 1, h.w.Supervisions.Len())
	assert.Equal(t, 1, h.w.Selections.Len())
	assert.Equal(t, 1, h.w.Submissions.Len())
	assert.Equal(t, 1, h.w.Reviews.Len())
	assert.Empty(t, h.files.deleted, "files are only released after commit")

	sel, err := h.w.Selections.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@uni.edu"}, sel.Selections[0].GroupMembers)
}
