package projects_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/collabhub/internal/app/features/projects"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	projectsvc "github.com/dalemusser/collabhub/internal/domain/projects"
	"github.com/dalemusser/collabhub/internal/testutil"
	"github.com/dalemusser/collabhub/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	h     http.Handler
	w     *memstore.World
	admin testutil.TestUser
	rep   testutil.TestUser
	other testutil.TestUser
}

func asTestUser(u models.User) testutil.TestUser {
	return testutil.TestUser{ID: u.ID.Hex(), Name: u.Username, Email: u.Email, Role: u.Role, University: u.University}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	w := memstore.NewWorld()
	base := kit.Base{Now: w.Clock.Now, Log: logger}

	e := &env{w: w}
	e.admin = asTestUser(w.Directory.Add(models.User{Username: "Ada", Email: "ada@collabhub.test", Role: models.UserAdmin}))
	e.rep = asTestUser(w.Directory.Add(models.User{Username: "Rita", Email: "rita@acme.test", Role: models.UserRepresentative}))
	e.other = asTestUser(w.Directory.Add(models.User{Username: "Omar", Email: "omar@globex.test", Role: models.UserRepresentative}))

	svc := projectsvc.NewService(base, projectsvc.Deps{
		Projects:     w.Projects,
		Approvals:    w.Approvals,
		Supervisions: w.Supervisions,
		Selections:   w.Selections,
		Submissions:  w.Submissions,
		Reviews:      w.Reviews,
		Tx:           txn.Compensating{},
		Notifier:     notify.NewService(base, w.Notifications, w.Directory, nil, "collabhub"),
		Directory:    w.Directory,
	})
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 0, false, logger)
	require.NoError(t, err)
	e.h = projects.Routes(projects.NewHandler(svc, logger), sm)
	return e
}

func (e *env) body(title string) map[string]any {
	now := e.w.Clock.Now()
	return map[string]any{
		"title":                  title,
		"description":            "<p>Build it</p><script>x()</script>",
		"type":                   models.ProjectGroup,
		"max_students_per_group": 3,
		"max_groups":             2,
		"start_date":             now,
		"end_date":               now.Add(60 * 24 * time.Hour),
	}
}

func (e *env) do(method, target string, body any, u testutil.TestUser) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.h.ServeHTTP(rec, testutil.NewAuthenticatedRequest(method, target, body, u))
	return rec
}

func (e *env) create(t *testing.T, title string) models.Project {
	t.Helper()
	rec := e.do(http.MethodPost, "/", e.body(title), e.rep)
	rec.AssertStatus(t, http.StatusCreated)
	var p models.Project
	rec.DecodeJSON(t, &p)
	return p
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	p := e.create(t, "  Robot Arm ")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Robot Arm", p.Title)
	assert.Equal(t, e.rep.ID, p.RepresentativeID)
	assert.Equal(t, models.LockLocked, p.Lock.State)
	assert.NotContains(t, p.Description, "script")

	rec := e.do(http.MethodPost, "/", e.body("robot arm"), e.rep)
	rec.AssertStatus(t, http.StatusConflict)
}

func TestCreate_AdminNamesOwner(t *testing.T) {
	e := newEnv(t)
	b := e.body("Drone")
	b["representative_id"] = e.other.ID
	rec := e.do(http.MethodPost, "/", b, e.admin)
	rec.AssertStatus(t, http.StatusCreated)

	var p models.Project
	rec.DecodeJSON(t, &p)
	assert.Equal(t, e.other.ID, p.RepresentativeID)
}

func TestCreate_RepCannotNameOwner(t *testing.T) {
	e := newEnv(t)
	b := e.body("Drone")
	b["representative_id"] = e.other.ID
	rec := e.do(http.MethodPost, "/", b, e.rep)
	rec.AssertStatus(t, http.StatusCreated)

	var p models.Project
	rec.DecodeJSON(t, &p)
	assert.Equal(t, e.rep.ID, p.RepresentativeID)
}

func TestCreate_Rejected(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/", e.body("Robot Arm"), testutil.StudentUser("ana@uni.edu", "State"))
	rec.AssertStatus(t, http.StatusForbidden)

	b := e.body("")
	rec = e.do(http.MethodPost, "/", b, e.rep)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "title")

	b = e.body("Robot Arm")
	b["type"] = "Solo"
	rec = e.do(http.MethodPost, "/", b, e.rep)
	rec.AssertStatus(t, http.StatusBadRequest)

	b = e.body("Robot Arm")
	b["budget"] = 100
	rec = e.do(http.MethodPost, "/", b, e.rep)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "malformed")
}

func TestServeProject(t *testing.T) {
	e := newEnv(t)
	p := e.create(t, "Robot Arm")

	rec := e.do(http.MethodGet, "/"+p.ID, nil, testutil.StudentUser("ana@uni.edu", "State"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Robot Arm")

	rec = e.do(http.MethodGet, "/000000000000000000000000", nil, e.rep)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeList_UsesCallerUniversity(t *testing.T) {
	e := newEnv(t)
	p := e.create(t, "Robot Arm")
	e.create(t, "Drone")
	require.NoError(t, e.w.Approvals.Save(t.Context(), &models.ApprovalLedger{
		ProjectID: p.ID,
		Entries: []models.ApprovalEntry{{
			TeacherID:    "t1",
			University:   "State",
			UniversityCI: normalize.University("State"),
			Status:       models.ApprovalApproved,
		}},
	}))

	rec := e.do(http.MethodGet, "/", nil, testutil.TeacherUser("State"))
	rec.AssertStatus(t, http.StatusOK)
	var list []models.Project
	rec.DecodeJSON(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	rec = e.do(http.MethodGet, "/?university=Elsewhere", nil, testutil.TeacherUser("State"))
	rec.AssertStatus(t, http.StatusOK)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = e.do(http.MethodGet, "/", nil, e.rep)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestEditWorkflow(t *testing.T) {
	e := newEnv(t)
	p := e.create(t, "Robot Arm")
	path := "/" + p.ID

	rec := e.do(http.MethodPut, path, e.body("Robot Arm v2"), e.rep)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "locked")

	rec = e.do(http.MethodPost, path+"/edit-request", map[string]string{"reason": "scope change"}, e.other)
	rec.AssertStatus(t, http.StatusForbidden)

	rec = e.do(http.MethodPost, path+"/edit-request", map[string]string{"reason": "scope change"}, e.rep)
	rec.AssertStatus(t, http.StatusOK)
	rec = e.do(http.MethodPost, path+"/edit-request", map[string]string{"reason": "again"}, e.rep)
	rec.AssertStatus(t, http.StatusConflict)

	assert.Len(t, e.w.Notifications.OfType(models.NotifyEditRequest), 1)

	until := e.w.Clock.Now().Add(2 * time.Hour)
	rec = e.do(http.MethodPost, path+"/edit-decision", map[string]any{"approve": true, "unlocked_until": until}, e.rep)
	rec.AssertStatus(t, http.StatusForbidden)
	rec = e.do(http.MethodPost, path+"/edit-decision", map[string]any{"approve": true, "unlocked_until": until}, e.admin)
	rec.AssertStatus(t, http.StatusOK)

	rec = e.do(http.MethodPut, path, e.body("Robot Arm v2"), e.rep)
	rec.AssertStatus(t, http.StatusOK)
	var updated models.Project
	rec.DecodeJSON(t, &updated)
	assert.Equal(t, "Robot Arm v2", updated.Title)

	e.w.Clock.Advance(3 * time.Hour)
	rec = e.do(http.MethodPut, path, e.body("Robot Arm v3"), e.rep)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	p := e.create(t, "Robot Arm")

	rec := e.do(http.MethodDelete, "/"+p.ID, nil, e.other)
	rec.AssertStatus(t, http.StatusForbidden)

	rec = e.do(http.MethodDelete, "/"+p.ID, nil, e.admin)
	rec.AssertStatus(t, http.StatusOK)

	rec = e.do(http.MethodGet, "/"+p.ID, nil, e.rep)
	rec.AssertStatus(t, http.StatusNotFound)
}
