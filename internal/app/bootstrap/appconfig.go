// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and CORS; everything specific to the project
// lifecycle service lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: collabhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionTTL    time.Duration // How long a sign-in stays valid
	DevLogin      bool          // Expose POST /session for local sign-in without a password

	// File storage configuration (attachment and submission cleanup)
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix the files are served under (e.g., "/files")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3Endpoint  string // non-AWS endpoint such as MinIO
	StorageS3AccessKey string
	StorageS3SecretKey string
	StorageS3BaseURL   string // public URL prefix recorded on projects

	// Notification fan-out
	NATSURL       string // blank disables publishing
	SubjectPrefix string // NATS subject prefix (default: collabhub)

	// Concurrency and background work
	MaxAttempts       int           // compare-and-swap attempts per operation
	LockSweepInterval time.Duration // how often expired edit windows are relocked

	// Bootstrap admin
	AdminEmail string // created on startup when missing
}
