// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	approvalsfeature "github.com/dalemusser/collabhub/internal/app/features/approvals"
	completionfeature "github.com/dalemusser/collabhub/internal/app/features/completion"
	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/collabhub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/collabhub/internal/app/features/health"
	notificationsfeature "github.com/dalemusser/collabhub/internal/app/features/notifications"
	projectsfeature "github.com/dalemusser/collabhub/internal/app/features/projects"
	reviewsfeature "github.com/dalemusser/collabhub/internal/app/features/reviews"
	sessionfeature "github.com/dalemusser/collabhub/internal/app/features/session"
	submissionsfeature "github.com/dalemusser/collabhub/internal/app/features/submissions"
	supervisionsfeature "github.com/dalemusser/collabhub/internal/app/features/supervisions"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/authz"
	"github.com/dalemusser/collabhub/internal/domain/identity"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.Runtime == nil || deps.Runtime.Services == nil {
		return nil, errors.New("services not initialized; Startup must run before BuildHandler")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	return newRouter(routerDeps{
		Services:   deps.Runtime.Services,
		SessionMgr: sessionMgr,
		Directory:  MongoStores(deps.MongoDatabase).Directory,
		Pinger:     deps.MongoClient,
		Metrics:    deps.Metrics.Handler(),
		DevLogin:   appCfg.DevLogin,
	}, logger), nil
}

type routerDeps struct {
	Services   *Services
	SessionMgr *auth.SessionManager
	Directory  identity.Directory
	Pinger     healthfeature.Pinger
	Metrics    http.Handler
	DevLogin   bool
}

func newRouter(d routerDeps, logger *zap.Logger) chi.Router {
	svcs, sm := d.Services, d.SessionMgr

	r := chi.NewRouter()

	// JSON fallbacks; set before mounting so subrouters inherit them.
	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sm.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(d.Pinger, logger)))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Mount("/session", sessionfeature.Routes(sessionfeature.NewHandler(d.Directory, sm, logger), d.DevLogin))

	// Project registry
	r.Mount("/projects", projectsfeature.Routes(projectsfeature.NewHandler(svcs.Projects, logger), sm))

	// Per-project ledgers
	r.Mount("/projects/{id}/approvals", approvalsfeature.Routes(approvalsfeature.NewHandler(svcs.Approvals, logger), sm))

	supervisionsHandler := supervisionsfeature.NewHandler(svcs.Supervisions, svcs.Projects, logger)
	r.Mount("/projects/{id}/supervisions", supervisionsfeature.Routes(supervisionsHandler, sm))
	r.Mount("/supervisions", supervisionsfeature.StatusRoutes(supervisionsHandler, sm))

	// Groups and everything hanging off a group
	r.Mount("/projects/{id}/groups", groupsfeature.Routes(groupsfeature.NewHandler(svcs.Groups, logger), sm))

	gate := authz.GroupGate{Projects: svcs.Projects, Supervisors: svcs.Supervisions}
	reviewsHandler := reviewsfeature.NewHandler(svcs.Reviews, gate, logger)
	r.Mount("/projects/{id}/groups/{sid}/reviews", reviewsfeature.Routes(reviewsHandler, sm))
	r.Mount("/students", reviewsfeature.StudentRoutes(reviewsHandler, sm))

	r.Mount("/projects/{id}/groups/{sid}/submissions", submissionsfeature.Routes(submissionsfeature.NewHandler(svcs.Submissions, logger), sm))
	r.Mount("/selections", completionfeature.Routes(completionfeature.NewHandler(svcs.Completion, gate, logger), sm))

	r.Mount("/notifications", notificationsfeature.Routes(notificationsfeature.NewHandler(svcs.Notify, logger), sm))

	return r
}
