// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	approvalstore "github.com/dalemusser/collabhub/internal/app/store/approvals"
	notificationstore "github.com/dalemusser/collabhub/internal/app/store/notifications"
	projectstore "github.com/dalemusser/collabhub/internal/app/store/projects"
	reviewstore "github.com/dalemusser/collabhub/internal/app/store/reviews"
	selectionstore "github.com/dalemusser/collabhub/internal/app/store/selections"
	studentstore "github.com/dalemusser/collabhub/internal/app/store/students"
	submissionstore "github.com/dalemusser/collabhub/internal/app/store/submissions"
	supervisionstore "github.com/dalemusser/collabhub/internal/app/store/supervisions"
	userstore "github.com/dalemusser/collabhub/internal/app/store/users"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/app/system/workers"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It seeds
// the admin account, builds the domain services and starts the edit-window
// sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail != "" {
		sctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		err := ensureAdmin(sctx, deps.MongoDatabase, appCfg.AdminEmail, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}

	base := kit.Base{
		Log:         logger,
		Metrics:     deps.Metrics,
		MaxAttempts: appCfg.MaxAttempts,
	}
	svcs := NewServices(base, MongoStores(deps.MongoDatabase), txn.NewRunner(deps.MongoDatabase, logger), deps.Files, deps.Bus, appCfg.SubjectPrefix)

	sweeper := workers.NewLockExpiry(svcs.Projects, logger, appCfg.LockSweepInterval)
	sweeper.Start()

	deps.Runtime.Services = svcs
	deps.Runtime.LockExpiry = sweeper
	return nil
}

// MongoStores returns the Mongo-backed stores over db.
func MongoStores(db *mongo.Database) Stores {
	return Stores{
		Projects:      projectstore.New(db),
		Approvals:     approvalstore.New(db),
		Supervisions:  supervisionstore.New(db),
		Selections:    selectionstore.New(db),
		Submissions:   submissionstore.New(db),
		Reviews:       reviewstore.New(db),
		Students:      studentstore.New(db),
		Notifications: notificationstore.New(db),
		Directory:     userstore.New(db),
	}
}

// ensureAdmin makes sure a user with email exists and holds the admin
// role. An existing user with another role is promoted.
func ensureAdmin(ctx context.Context, db *mongo.Database, email string, logger *zap.Logger) error {
	email = normalize.Email(email)
	users := userstore.New(db)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		created, err := users.Create(ctx, models.User{Username: "Administrator", Email: email, Role: models.UserAdmin})
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			// Another instance won the insert.
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("admin user created", zap.String("email", email), zap.String("user_id", created.ID.Hex()))
		return nil
	case err != nil:
		return err
	}

	if u.Role == models.UserAdmin {
		return nil
	}
	if err := users.SetRole(ctx, email, models.UserAdmin); err != nil {
		return err
	}
	logger.Info("user promoted to admin", zap.String("email", email), zap.String("previous_role", u.Role))
	return nil
}
