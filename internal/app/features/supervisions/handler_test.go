package supervisions_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/collabhub/internal/app/features/supervisions"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	projectsvc "github.com/dalemusser/collabhub/internal/domain/projects"
	"github.com/dalemusser/collabhub/internal/domain/supervision"
	"github.com/dalemusser/collabhub/internal/testutil"
	"github.com/dalemusser/collabhub/internal/testutil/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	rep = testutil.TestUser{ID: "rep", Name: "Rita", Email: "rita@acme.test", Role: models.UserRepresentative}
	t1  = testutil.TestUser{ID: "t1", Name: "Tess", Email: "tess@state.edu", Role: models.UserTeacher, University: "State"}
	t2  = testutil.TestUser{ID: "t2", Name: "Theo", Email: "theo@state.edu", Role: models.UserTeacher, University: "State"}
)

func setup(t *testing.T) (http.Handler, string) {
	t.Helper()
	logger := zap.NewNop()
	w := memstore.NewWorld()
	base := kit.Base{Now: w.Clock.Now, Log: logger}
	notifier := notify.NewService(base, w.Notifications, w.Directory, nil, "collabhub")
	projects := projectsvc.NewService(base, projectsvc.Deps{
		Projects:     w.Projects,
		Approvals:    w.Approvals,
		Supervisions: w.Supervisions,
		Selections:   w.Selections,
		Submissions:  w.Submissions,
		Reviews:      w.Reviews,
		Tx:           txn.Compensating{},
		Notifier:     notifier,
		Directory:    w.Directory,
	})
	h := supervisions.NewHandler(supervision.NewService(base, w.Supervisions, w.Projects, notifier), projects, logger)
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 0, false, logger)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/projects/{id}/supervisions", supervisions.Routes(h, sm))
	r.Mount("/supervisions", supervisions.StatusRoutes(h, sm))
	p := w.SeedProject(t, "Robot Arm", "rep", 3, 2)
	return r, p.ID
}

func do(h http.Handler, method, target string, body any, u testutil.TestUser) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewAuthenticatedRequest(method, target, body, u))
	return rec
}

func TestRequestAndRespond(t *testing.T) {
	h, pid := setup(t)
	base := "/projects/" + pid + "/supervisions"

	rec := do(h, http.MethodPost, base, nil, t1)
	rec.AssertStatus(t, http.StatusCreated)
	var e models.SupervisionEntry
	rec.DecodeJSON(t, &e)
	assert.Equal(t, models.SupervisionPending, e.Response.Status)
	assert.Equal(t, "tess@state.edu", e.Email)

	do(h, http.MethodPost, base, nil, t1).AssertStatus(t, http.StatusConflict)
	do(h, http.MethodPost, base, nil, t2).AssertStatus(t, http.StatusCreated)

	other := testutil.TestUser{ID: "rep2", Role: models.UserRepresentative}
	do(h, http.MethodPut, base+"/t1", map[string]string{"status": "approved"}, other).AssertStatus(t, http.StatusForbidden)
	do(h, http.MethodPut, base+"/t1", map[string]string{"status": "approved"}, rep).AssertStatus(t, http.StatusOK)

	rec = do(h, http.MethodPut, base+"/t2", map[string]string{"status": "approved"}, rep)
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "already supervises")

	do(h, http.MethodPut, base+"/t9", map[string]string{"status": "approved"}, rep).AssertStatus(t, http.StatusNotFound)
	do(h, http.MethodPut, base+"/t2", map[string]string{"status": "sure"}, rep).AssertStatus(t, http.StatusBadRequest)

	var list []models.SupervisionEntry
	rec = do(h, http.MethodGet, base+"?status=approved", nil, rep)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].TeacherID)
}

func TestRequest_OnlyTeachers(t *testing.T) {
	h, pid := setup(t)
	do(h, http.MethodPost, "/projects/"+pid+"/supervisions", nil, rep).AssertStatus(t, http.StatusForbidden)
	do(h, http.MethodPost, "/projects/000000000000000000000000/supervisions", nil, t1).AssertStatus(t, http.StatusNotFound)
}

func TestBulkStatus(t *testing.T) {
	h, pid := setup(t)
	do(h, http.MethodPost, "/projects/"+pid+"/supervisions", nil, t1).AssertStatus(t, http.StatusCreated)
	do(h, http.MethodPut, "/projects/"+pid+"/supervisions/t1", map[string]string{"status": "approved"}, rep).AssertStatus(t, http.StatusOK)

	body := map[string][]string{"project_ids": {pid, "unknown"}}
	status := func(u testutil.TestUser) map[string]string {
		rec := do(h, http.MethodPost, "/supervisions/status", body, u)
		rec.AssertStatus(t, http.StatusOK)
		var out map[string]string
		rec.DecodeJSON(t, &out)
		return out
	}

	assert.Equal(t, map[string]string{pid: models.SupervisedByYou, "unknown": models.SupervisionOpen}, status(t1))
	assert.Equal(t, models.ApprovedByOther, status(t2)[pid])

	elsewhere := t2
	elsewhere.University = "Tech"
	assert.Equal(t, models.SupervisionOpen, status(elsewhere)[pid])
}
