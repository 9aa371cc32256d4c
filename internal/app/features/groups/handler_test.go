package groups_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/collabhub/internal/app/features/groups"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	groupsvc "github.com/dalemusser/collabhub/internal/domain/groups"
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

var (
	ana = testutil.StudentUser("ana@uni.edu", "State")
	ben = testutil.StudentUser("ben@uni.edu", "State")
	cat = testutil.StudentUser("cat@uni.edu", "State")
)

func setup(t *testing.T) (http.Handler, *memstore.World, string) {
	t.Helper()
	logger := zap.NewNop()
	w := memstore.NewWorld()
	base := kit.Base{Now: w.Clock.Now, Log: logger}
	svc := groupsvc.NewService(base, groupsvc.Deps{
		Selections:   w.Selections,
		Projects:     w.Projects,
		Supervisions: w.Supervisions,
		Notifier:     notify.NewService(base, w.Notifications, w.Directory, nil, "collabhub"),
		Directory:    w.Directory,
	})
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 0, false, logger)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/projects/{id}/groups", groups.Routes(groups.NewHandler(svc, logger), sm))
	p := w.SeedProject(t, "Robot Arm", "rep", 2, 1)
	return r, w, "/projects/" + p.ID + "/groups"
}

func do(h http.Handler, method, target string, body any, u testutil.TestUser) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewAuthenticatedRequest(method, target, body, u))
	return rec
}

func createGroup(t *testing.T, h http.Handler, base string, u testutil.TestUser) string {
	t.Helper()
	rec := do(h, http.MethodPost, base, nil, u)
	rec.AssertStatus(t, http.StatusCreated)
	var out map[string]string
	rec.DecodeJSON(t, &out)
	require.NotEmpty(t, out["selection_id"])
	return out["selection_id"]
}

func TestCreateAndJoin(t *testing.T) {
	h, w, base := setup(t)
	sid := createGroup(t, h, base, ana)

	rec := do(h, http.MethodPost, base+"/"+sid+"/members", nil, ben)
	rec.AssertStatus(t, http.StatusOK)
	var sel models.Selection
	rec.DecodeJSON(t, &sel)
	assert.Equal(t, []string{"ana@uni.edu", "ben@uni.edu"}, sel.GroupMembers)

	rec = do(h, http.MethodPost, base+"/"+sid+"/members", nil, cat)
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "capacity")

	rec = do(h, http.MethodGet, base+"/"+sid, nil, testutil.TeacherUser("State"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "ben@uni.edu")

	assert.Len(t, w.Notifications.OfType(models.NotifyGroupJoin), 1)
}

func TestCreate_Gates(t *testing.T) {
	h, _, base := setup(t)

	rec := do(h, http.MethodPost, base, nil, testutil.TeacherUser("State"))
	rec.AssertStatus(t, http.StatusForbidden)

	createGroup(t, h, base, ana)
	rec = do(h, http.MethodPost, base, nil, ben)
	rec.AssertStatus(t, http.StatusConflict)

	rec = do(h, http.MethodPost, "/projects/000000000000000000000000/groups", nil, ben)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestCreate_AfterDeadline(t *testing.T) {
	h, w, base := setup(t)
	w.Clock.Advance(31 * 24 * time.Hour)

	rec := do(h, http.MethodPost, base, nil, ana)
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertContains(t, "deadline")
}

func TestJoin_OnlyForSelf(t *testing.T) {
	h, _, base := setup(t)
	sid := createGroup(t, h, base, ana)

	rec := do(h, http.MethodPost, base+"/"+sid+"/members", map[string]string{"email": "cat@uni.edu"}, ben)
	rec.AssertStatus(t, http.StatusForbidden)

	rec = do(h, http.MethodPost, base+"/"+sid+"/members", map[string]string{"email": "cat@uni.edu"}, testutil.AdminUser())
	rec.AssertStatus(t, http.StatusOK)

	rec = do(h, http.MethodPost, base+"/nope/members", nil, ben)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeList(t *testing.T) {
	h, _, base := setup(t)
	createGroup(t, h, base, ana)

	var list []models.Selection
	rec := do(h, http.MethodGet, base+"?university=STATE", nil, ana)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &list)
	assert.Len(t, list, 1)

	rec = do(h, http.MethodGet, base+"?university=Elsewhere", nil, ana)
	rec.AssertStatus(t, http.StatusOK)
	assert.JSONEq(t, "[]", rec.Body.String())
}
