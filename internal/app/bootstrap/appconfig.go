// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//
// AppConfig carries everything specific to the gateway: stores, the
// Telegram transport, the Drive directory, bootstrap accounts and the
// background sweeper.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Accounts backend: "mongo" keeps accounts next to sessions, "postgres"
	// moves admins, members and groups to PostgresDSN.
	AccountsBackend string
	PostgresDSN     string

	// Telegram transport
	TelegramToken          string
	TelegramMode           string // "polling" or "webhook"
	TelegramWebhookURL     string // public base URL; the secret is appended as the last path segment
	TelegramWebhookSecret  string
	TelegramAPIEndpoint    string // blank means the public Bot API
	TelegramDebug          bool
	TelegramRequestTimeout time.Duration
	LaneDepth              int // queued updates per caller before new ones are dropped

	// Google Drive directory
	DriveCredentialsFile string // service account JSON key
	DrivePageSize        int
	DirectoryTimeout     time.Duration

	// Bootstrap accounts, read once at start
	SuperAdminPhone    string
	SuperAdminPassword string
	Groups             []string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Timeouts
	StoreTimeout     time.Duration
	SendTimeout      time.Duration
	BroadcastTimeout time.Duration

	// Stale admin sub-flow sweeper
	SubflowTTL           time.Duration
	SubflowSweepInterval time.Duration
}

// Accounts backends
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Telegram modes
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)
