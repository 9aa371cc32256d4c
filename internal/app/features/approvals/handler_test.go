package approvals_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/collabhub/internal/app/features/approvals"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	approvalsvc "github.com/dalemusser/collabhub/internal/domain/approvals"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/testutil"
	"github.com/dalemusser/collabhub/internal/testutil/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (http.Handler, *memstore.World, string) {
	t.Helper()
	logger := zap.NewNop()
	w := memstore.NewWorld()
	base := kit.Base{Now: w.Clock.Now, Log: logger}
	svc := approvalsvc.NewService(base, w.Approvals, w.Projects, notify.NewService(base, w.Notifications, w.Directory, nil, "collabhub"))
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 0, false, logger)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/projects/{id}/approvals", approvals.Routes(approvals.NewHandler(svc, logger), sm))
	p := w.SeedProject(t, "Robot Arm", "rep", 3, 2)
	return r, w, "/projects/" + p.ID + "/approvals"
}

func teacher(id, email, uni string) testutil.TestUser {
	u := testutil.TeacherUser(uni)
	u.ID, u.Email, u.Name = id, email, "Teacher "+id
	return u
}

func do(h http.Handler, method, target string, body any, u testutil.TestUser) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewAuthenticatedRequest(method, target, body, u))
	return rec
}

func TestInsert_FillsIdentityFromSession(t *testing.T) {
	h, w, base := setup(t)
	t1 := teacher("t1", "t1@state.edu", "State")

	rec := do(h, http.MethodPost, base, map[string]string{"status": "approved", "comments": "<b>great</b>"}, t1)
	rec.AssertStatus(t, http.StatusCreated)
	var e models.ApprovalEntry
	rec.DecodeJSON(t, &e)
	assert.Equal(t, "t1", e.TeacherID)
	assert.Equal(t, "Teacher t1", e.FullName)
	assert.Equal(t, "State", e.University)
	assert.Equal(t, models.ApprovalApproved, e.Status)
	assert.Equal(t, "great", e.Comments)
	require.NotNil(t, e.ActionAt)

	rec = do(h, http.MethodPost, base, map[string]string{"status": "rejected"}, t1)
	rec.AssertStatus(t, http.StatusConflict)

	assert.NotEmpty(t, w.Notifications.OfType(models.NotifyProjectApproval))
}

func TestInsert_Rejected(t *testing.T) {
	h, _, base := setup(t)

	rec := do(h, http.MethodPost, base, map[string]string{"status": "approved"}, testutil.StudentUser("ana@uni.edu", "State"))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = do(h, http.MethodPost, base, map[string]string{"status": "maybe"}, teacher("t1", "t1@state.edu", "State"))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = do(h, http.MethodPost, base, map[string]string{"status": "approved"}, teacher("t2", "t2@nowhere.edu", ""))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "university")

	rec = do(h, http.MethodPost, "/projects/000000000000000000000000/approvals", map[string]string{}, teacher("t1", "t1@state.edu", "State"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestDecide(t *testing.T) {
	h, _, base := setup(t)
	t1 := teacher("t1", "t1@state.edu", "State")

	rec := do(h, http.MethodPut, base+"/t1", map[string]string{"status": "needMoreInfo"}, t1)
	rec.AssertStatus(t, http.StatusOK)

	rec = do(h, http.MethodPut, base+"/t1", map[string]string{"status": "approved"}, t1)
	rec.AssertStatus(t, http.StatusOK)
	var e models.ApprovalEntry
	rec.DecodeJSON(t, &e)
	assert.Equal(t, models.ApprovalApproved, e.Status)

	rec = do(h, http.MethodPut, base+"/t1", map[string]string{"status": "rejected"}, teacher("t2", "t2@state.edu", "State"))
	rec.AssertStatus(t, http.StatusForbidden)

	var list []models.ApprovalEntry
	rec = do(h, http.MethodGet, base+"?university=state&status=approved", nil, testutil.StudentUser("ana@uni.edu", "State"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].TeacherID)
}
