// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/collabhub/internal/app/system/eventbus"
	"github.com/dalemusser/collabhub/internal/app/system/filestore"
	"github.com/dalemusser/collabhub/internal/app/system/metrics"
	"github.com/dalemusser/collabhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// NATS is nil when no nats_url is configured; Bus is then a no-op.
	NATS    *eventbus.NATS
	Bus     eventbus.Publisher
	Files   filestore.Store
	Metrics *metrics.Metrics

	// Runtime is filled in by Startup. WAFFLE passes DBDeps by value, so
	// it is shared through a pointer allocated in ConnectDB.
	Runtime *Runtime
}

// Runtime holds what Startup builds for BuildHandler and Shutdown.
type Runtime struct {
	Services   *Services
	LockExpiry *workers.LockExpiry
}
