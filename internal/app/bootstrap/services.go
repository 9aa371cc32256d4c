// internal/app/bootstrap/services.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/collabhub/internal/app/system/eventbus"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	approvalsvc "github.com/dalemusser/collabhub/internal/domain/approvals"
	completionsvc "github.com/dalemusser/collabhub/internal/domain/completion"
	groupsvc "github.com/dalemusser/collabhub/internal/domain/groups"
	"github.com/dalemusser/collabhub/internal/domain/identity"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	projectsvc "github.com/dalemusser/collabhub/internal/domain/projects"
	reviewsvc "github.com/dalemusser/collabhub/internal/domain/reviews"
	submissionsvc "github.com/dalemusser/collabhub/internal/domain/submissions"
	"github.com/dalemusser/collabhub/internal/domain/supervision"
)

// Stores is the persistence surface the services run on. The Mongo
// stores satisfy it in production and the in-memory stores in tests.
type Stores struct {
	Projects      projectsvc.Store
	Approvals     ApprovalStore
	Supervisions  SupervisionStore
	Selections    SelectionStore
	Submissions   SubmissionStore
	Reviews       ReviewStore
	Students      reviewsvc.StudentStore
	Notifications notify.Sink
	Directory     identity.Directory
}

type ApprovalStore interface {
	projectsvc.ApprovalStore
	approvalsvc.LedgerStore
}

type SupervisionStore interface {
	projectsvc.SupervisionStore
	supervision.LedgerStore
}

type SelectionStore interface {
	projectsvc.SelectionStore
	completionsvc.SelectionStore
}

type SubmissionStore interface {
	projectsvc.SubmissionStore
	submissionsvc.Store
}

type ReviewStore interface {
	projectsvc.ReviewStore
	reviewsvc.ReviewStore
}

// Services bundles the domain services the HTTP features call.
type Services struct {
	Projects     *projectsvc.Service
	Approvals    *approvalsvc.Service
	Supervisions *supervision.Service
	Groups       *groupsvc.Service
	Completion   *completionsvc.Service
	Reviews      *reviewsvc.Service
	Submissions  *submissionsvc.Service
	Notify       *notify.Service
}

// FileStore releases attachment and submission files.
type FileStore interface {
	Delete(ctx context.Context, url string) error
}

// NewServices wires every domain service over st. files may be nil, in
// which case stored files are never released. A nil tx runs units with
// compensation only, and a nil bus publishes nothing.
func NewServices(base kit.Base, st Stores, tx kit.Transactor, files FileStore, bus eventbus.Publisher, subjectPrefix string) *Services {
	base = base.Normalize()
	if tx == nil {
		tx = txn.Compensating{}
	}
	notifier := notify.NewService(base, st.Notifications, st.Directory, bus, subjectPrefix)

	var pf projectsvc.FileStore
	var sf submissionsvc.FileStore
	if files != nil {
		pf, sf = files, files
	}

	return &Services{
		Projects: projectsvc.NewService(base, projectsvc.Deps{
			Projects:     st.Projects,
			Approvals:    st.Approvals,
			Supervisions: st.Supervisions,
			Selections:   st.Selections,
			Submissions:  st.Submissions,
			Reviews:      st.Reviews,
			Files:        pf,
			Tx:           tx,
			Notifier:     notifier,
			Directory:    st.Directory,
		}),
		Approvals:    approvalsvc.NewService(base, st.Approvals, st.Projects, notifier),
		Supervisions: supervision.NewService(base, st.Supervisions, st.Projects, notifier),
		Groups: groupsvc.NewService(base, groupsvc.Deps{
			Selections:   st.Selections,
			Projects:     st.Projects,
			Supervisions: st.Supervisions,
			Notifier:     notifier,
			Directory:    st.Directory,
		}),
		Completion: completionsvc.NewService(base, st.Selections, notifier),
		Reviews: reviewsvc.NewService(base, reviewsvc.Deps{
			Reviews:    st.Reviews,
			Students:   st.Students,
			Projects:   st.Projects,
			Selections: st.Selections,
			Tx:         tx,
			Notifier:   notifier,
		}),
		Submissions: submissionsvc.NewService(base, submissionsvc.Deps{
			Submissions: st.Submissions,
			Projects:    st.Projects,
			Selections:  st.Selections,
			Files:       sf,
			Notifier:    notifier,
		}),
		Notify: notifier,
	}
}
