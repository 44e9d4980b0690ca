// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/filescout/internal/app/directory"
	"github.com/dalemusser/filescout/internal/app/system/normalize"
	"github.com/dalemusser/filescout/internal/app/telegram"
	"github.com/dalemusser/filescout/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for FileScout.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, telegram_token, etc.
//   - Environment variables: FILESCOUT_MONGO_URI, FILESCOUT_TELEGRAM_TOKEN, etc.
//   - Command-line flags: --mongo_uri, --telegram_token, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "filescout", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Accounts backend
	{Name: "accounts_backend", Default: BackendMongo, Desc: "Accounts store: 'mongo' or 'postgres'"},
	{Name: "postgres_dsn", Default: "", Desc: "Postgres DSN (required when accounts_backend is postgres)"},

	// Telegram
	{Name: "telegram_token", Default: "", Desc: "Telegram bot token"},
	{Name: "telegram_mode", Default: ModePolling, Desc: "Update delivery: 'polling' or 'webhook'"},
	{Name: "telegram_webhook_url", Default: "", Desc: "Public base URL Telegram posts updates to (webhook mode)"},
	{Name: "telegram_webhook_secret", Default: "", Desc: "Secret path segment for the webhook endpoint"},
	{Name: "telegram_api_endpoint", Default: "", Desc: "Bot API endpoint format string (blank for api.telegram.org)"},
	{Name: "telegram_debug", Default: false, Desc: "Log raw Bot API traffic"},
	{Name: "telegram_request_timeout", Default: "15s", Desc: "Timeout for a single Bot API request"},
	{Name: "telegram_lane_depth", Default: telegram.DefaultLaneDepth, Desc: "Queued updates per caller before new ones are dropped"},

	// Google Drive
	{Name: "drive_credentials_file", Default: "", Desc: "Path to the Drive service account JSON key"},
	{Name: "drive_page_size", Default: directory.DefaultPageSize, Desc: "Maximum entries shown per folder"},
	{Name: "directory_timeout", Default: "10s", Desc: "Timeout for one folder lookup"},

	// Bootstrap
	{Name: "superadmin_phone", Default: "", Desc: "Phone of the bootstrap superadmin (created on first start)"},
	{Name: "superadmin_password", Default: "", Desc: "Password of the bootstrap superadmin (hashed once on first start)"},
	{Name: "groups", Default: "FWD,FWS", Desc: "Comma-separated group names ensured on every start"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "store_timeout", Default: "5s", Desc: "Timeout for one session or account store call"},
	{Name: "send_timeout", Default: "10s", Desc: "Timeout for one outbound message"},
	{Name: "broadcast_timeout", Default: "2m", Desc: "Timeout for a whole broadcast"},

	// Sweeper
	{Name: "subflow_ttl", Default: "15m", Desc: "Idle time after which an admin sub-flow is abandoned"},
	{Name: "subflow_sweep_interval", Default: "1m", Desc: "How often stale sub-flows are swept"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, FILESCOUT_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FILESCOUT", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		AccountsBackend: strings.ToLower(strings.TrimSpace(appValues.String("accounts_backend"))),
		PostgresDSN:     appValues.String("postgres_dsn"),

		TelegramToken:          appValues.String("telegram_token"),
		TelegramMode:           strings.ToLower(strings.TrimSpace(appValues.String("telegram_mode"))),
		TelegramWebhookURL:     appValues.String("telegram_webhook_url"),
		TelegramWebhookSecret:  appValues.String("telegram_webhook_secret"),
		TelegramAPIEndpoint:    appValues.String("telegram_api_endpoint"),
		TelegramDebug:          appValues.Bool("telegram_debug"),
		TelegramRequestTimeout: appValues.Duration("telegram_request_timeout", 15*time.Second),
		LaneDepth:              appValues.Int("telegram_lane_depth"),

		DriveCredentialsFile: appValues.String("drive_credentials_file"),
		DrivePageSize:        appValues.Int("drive_page_size"),
		DirectoryTimeout:     appValues.Duration("directory_timeout", 10*time.Second),

		SuperAdminPhone:    appValues.String("superadmin_phone"),
		SuperAdminPassword: appValues.String("superadmin_password"),
		Groups:             splitGroups(appValues.String("groups")),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		StoreTimeout:     appValues.Duration("store_timeout", 5*time.Second),
		SendTimeout:      appValues.Duration("send_timeout", 10*time.Second),
		BroadcastTimeout: appValues.Duration("broadcast_timeout", 2*time.Minute),

		SubflowTTL:           appValues.Duration("subflow_ttl", 15*time.Minute),
		SubflowSweepInterval: appValues.Duration("subflow_sweep_interval", time.Minute),
	}

	return coreCfg, appCfg, nil
}

// splitGroups parses a comma-separated list, normalizing each name and
// dropping blanks and repeats.
func splitGroups(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		name := normalize.GroupName(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Misconfiguration is caught here, before any backend is contacted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.AccountsBackend {
	case BackendMongo:
	case BackendPostgres:
		if appCfg.PostgresDSN == "" {
			return fmt.Errorf("accounts_backend %q requires postgres_dsn", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown accounts_backend %q (want %q or %q)", appCfg.AccountsBackend, BackendMongo, BackendPostgres)
	}

	if appCfg.TelegramToken == "" {
		return fmt.Errorf("telegram_token is required")
	}
	switch appCfg.TelegramMode {
	case ModePolling:
	case ModeWebhook:
		if appCfg.TelegramWebhookURL == "" {
			return fmt.Errorf("telegram_mode %q requires telegram_webhook_url", ModeWebhook)
		}
		if appCfg.TelegramWebhookSecret == "" {
			return fmt.Errorf("telegram_mode %q requires telegram_webhook_secret", ModeWebhook)
		}
	default:
		return fmt.Errorf("unknown telegram_mode %q (want %q or %q)", appCfg.TelegramMode, ModePolling, ModeWebhook)
	}

	if appCfg.DriveCredentialsFile == "" {
		return fmt.Errorf("drive_credentials_file is required")
	}

	if _, err := normalize.ParsePhone(appCfg.SuperAdminPhone); err != nil {
		return fmt.Errorf("superadmin_phone: %w", err)
	}

	if len(appCfg.Groups) == 0 {
		return fmt.Errorf("at least one group is required")
	}
	for _, g := range appCfg.Groups {
		if utf8.RuneCountInString(g) > models.MaxGroupNameLen {
			return fmt.Errorf("group %q is longer than %d characters", g, models.MaxGroupNameLen)
		}
	}

	if appCfg.SubflowTTL <= 0 || appCfg.SubflowSweepInterval <= 0 {
		return fmt.Errorf("subflow_ttl and subflow_sweep_interval must be positive")
	}

	return nil
}
