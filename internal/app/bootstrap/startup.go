// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/filescout/internal/app/administration"
	"github.com/dalemusser/filescout/internal/app/conversation"
	"github.com/dalemusser/filescout/internal/app/directory"
	"github.com/dalemusser/filescout/internal/app/store/accounts"
	auditstore "github.com/dalemusser/filescout/internal/app/store/audit"
	"github.com/dalemusser/filescout/internal/app/store/sessions"
	"github.com/dalemusser/filescout/internal/app/system/auditlog"
	"github.com/dalemusser/filescout/internal/app/system/authutil"
	"github.com/dalemusser/filescout/internal/app/system/metrics"
	"github.com/dalemusser/filescout/internal/app/system/normalize"
	"github.com/dalemusser/filescout/internal/app/system/timeouts"
	"github.com/dalemusser/filescout/internal/app/system/workers"
	"github.com/dalemusser/filescout/internal/app/telegram"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Runtime holds the long-lived components built in Startup and torn down
// in Shutdown.
type Runtime struct {
	Accounts accounts.Repository
	Sessions *sessions.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Dispatcher *telegram.Dispatcher
	Webhook    *telegram.Webhook // nil in polling mode

	sweeper    *workers.SubflowSweeper
	stopPoller context.CancelFunc
	pollerDone chan struct{}
}

// accountsRepo picks the configured accounts backend.
func accountsRepo(deps DBDeps) accounts.Repository {
	if deps.Postgres != nil {
		return deps.Postgres
	}
	return accounts.NewMongo(deps.MongoDatabase)
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It seeds
// the bootstrap accounts, builds the conversation machine and starts the
// Telegram receiver and the sub-flow sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	rt := deps.Runtime

	timeouts.Configure(timeouts.Config{
		Store:     appCfg.StoreTimeout,
		Directory: appCfg.DirectoryTimeout,
		Send:      appCfg.SendTimeout,
		Broadcast: appCfg.BroadcastTimeout,
	})

	rt.Registry = prometheus.NewRegistry()
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.Metrics = metrics.New(rt.Registry)

	rt.Accounts = accountsRepo(deps)
	rt.Sessions = sessions.New(deps.MongoDatabase)

	if err := ensureGroups(ctx, rt.Accounts, appCfg.Groups, logger); err != nil {
		return err
	}
	protected, err := ensureSuperAdmin(ctx, rt.Accounts, appCfg.SuperAdminPhone, appCfg.SuperAdminPassword, logger)
	if err != nil {
		return err
	}

	events := auditstore.New(deps.MongoDatabase)
	audit := auditlog.New(events, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	drv, err := directory.NewDriveFromCredentialsFile(ctx, appCfg.DriveCredentialsFile)
	if err != nil {
		logger.Error("drive client init failed", zap.Error(err))
		return err
	}
	resolver := directory.NewResolver(drv, logger.Named("directory"),
		directory.WithPageSize(appCfg.DrivePageSize),
		directory.WithTimeout(appCfg.DirectoryTimeout),
		directory.WithMetrics(rt.Metrics),
	)

	bot, err := telegram.Connect(appCfg.TelegramToken, appCfg.TelegramAPIEndpoint,
		appCfg.TelegramRequestTimeout, appCfg.TelegramDebug, logger)
	if err != nil {
		logger.Error("telegram connect failed", zap.Error(err))
		return err
	}
	client := telegram.NewClient(bot, logger.Named("telegram"))

	admin := administration.New(rt.Accounts, client, logger.Named("administration"), administration.Config{
		Audit:               audit,
		Metrics:             rt.Metrics,
		ProtectedAdminPhone: protected,
	})

	machine := conversation.New(conversation.Deps{
		Sessions:  rt.Sessions,
		Accounts:  rt.Accounts,
		Directory: resolver,
		Admin:     admin,
		Messenger: client,
		Audit:     audit,
		History:   events,
		Metrics:   rt.Metrics,
		Log:       logger.Named("conversation"),
	})

	rt.Dispatcher = telegram.NewDispatcher(machine, logger.Named("dispatcher"), appCfg.LaneDepth)

	switch appCfg.TelegramMode {
	case ModeWebhook:
		url := webhookURL(appCfg.TelegramWebhookURL, appCfg.TelegramWebhookSecret)
		if err := telegram.RegisterWebhook(bot, url); err != nil {
			logger.Error("webhook registration failed", zap.Error(err))
			return err
		}
		rt.Webhook = telegram.NewWebhook(rt.Dispatcher, appCfg.TelegramWebhookSecret, logger.Named("webhook"))
		logger.Info("telegram webhook registered")
	default:
		startPoller(rt, telegram.NewPoller(bot, rt.Dispatcher, logger.Named("poller")), logger)
	}

	rt.sweeper = workers.NewSubflowSweeper(rt.Sessions, logger.Named("sweeper"), rt.Metrics,
		appCfg.SubflowSweepInterval, appCfg.SubflowTTL)
	rt.sweeper.Start()

	return nil
}

// startPoller runs p until Shutdown cancels it.
func startPoller(rt *Runtime, p *telegram.Poller, logger *zap.Logger) {
	pctx, cancel := context.WithCancel(context.Background())
	rt.stopPoller = cancel
	rt.pollerDone = make(chan struct{})
	go func() {
		defer close(rt.pollerDone)
		if err := p.Run(pctx); err != nil {
			logger.Error("telegram polling ended", zap.Error(err))
		}
	}()
}

// webhookURL appends the secret path segment to the public base URL.
func webhookURL(base, secret string) string {
	return strings.TrimRight(base, "/") + "/telegram/" + secret
}

// ensureGroups creates any configured group that does not exist yet.
func ensureGroups(ctx context.Context, repo accounts.Repository, groups []string, logger *zap.Logger) error {
	for _, g := range groups {
		if err := repo.EnsureGroup(ctx, g); err != nil {
			return fmt.Errorf("ensure group %q: %w", g, err)
		}
	}
	logger.Info("groups ensured", zap.Strings("groups", groups))
	return nil
}

// ensureSuperAdmin creates the bootstrap admin on first start and returns
// its normalized phone, which is protected from deletion. An existing
// account is left untouched so the password is hashed only once.
func ensureSuperAdmin(ctx context.Context, repo accounts.Repository, phone, password string, logger *zap.Logger) (string, error) {
	phone, err := normalize.ParsePhone(phone)
	if err != nil {
		return "", fmt.Errorf("superadmin phone: %w", err)
	}

	_, err = repo.GetAdmin(ctx, phone)
	switch {
	case err == nil:
		logger.Info("superadmin already exists", zap.String("phone", phone))
		return phone, nil
	case !errors.Is(err, accounts.ErrNotFound):
		return "", fmt.Errorf("lookup superadmin: %w", err)
	}

	if password == "" {
		return "", fmt.Errorf("superadmin %s does not exist and superadmin_password is empty", phone)
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash superadmin password: %w", err)
	}
	if _, err := repo.CreateAdmin(ctx, phone, hash); err != nil {
		// Another instance won the race.
		if errors.Is(err, accounts.ErrDuplicate) {
			return phone, nil
		}
		return "", fmt.Errorf("create superadmin: %w", err)
	}
	logger.Info("created superadmin", zap.String("phone", phone))
	return phone, nil
}
