// cmd/builder/main.go
//
// Builder service – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load config (.env → conf/global.yaml → BUILDER_ env).
//
//  2. Start the daily rotating logger.
//
//  3. Resolve vault: secret references when Vault is enabled.
//
//  4. Open the storage backend (mysql, pgx, or in-memory) and run
//     migrations when asked.
//
//  5. Build the action Service and Registry.
//
//  6. Tenant resolver (host mapping) and revalidation publisher.
//
//  7. Serve until SIGINT/SIGTERM, then drain.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/sitebuilder/internal/actions"
	"github.com/yanizio/sitebuilder/internal/api"
	"github.com/yanizio/sitebuilder/internal/config"
	"github.com/yanizio/sitebuilder/internal/database"
	"github.com/yanizio/sitebuilder/internal/logger"
	"github.com/yanizio/sitebuilder/internal/revalidate"
	"github.com/yanizio/sitebuilder/internal/server"
	"github.com/yanizio/sitebuilder/internal/store"
	"github.com/yanizio/sitebuilder/internal/tenant"
	"github.com/yanizio/sitebuilder/internal/vault"
)

func main() {
	// Console logger until the file logger is up.
	boot, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(boot)

	if err := run(); err != nil {
		zap.L().Error("builder stopped", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Level, cfg.Log.Tee)
	if err != nil {
		log.Printf("start logger: %v", err)
		return err
	}
	defer logOut.Sync()

	//
	// ── secrets ─────────────────────────────────────────────────────────
	//
	if cfg.Vault.Enabled {
		vc, err := vault.New(ctx, logOut.Named("vault"))
		if err != nil {
			return err
		}
		if err := cfg.ResolveSecrets(ctx, vc); err != nil {
			return err
		}
	}

	//
	// ── storage ─────────────────────────────────────────────────────────
	//
	var (
		repo store.Repository
		db   *sqlx.DB
	)
	if cfg.Database.Driver == "memory" {
		logOut.Warn("using in-memory storage; data is lost on exit")
		repo = store.NewMemory()
	} else {
		db, err = database.Open(ctx, database.Options{
			Driver:       cfg.Database.Driver,
			DSN:          cfg.Database.DSN,
			Password:     cfg.Database.Password,
			MaxOpenConns: cfg.Database.MaxOpen,
			MaxIdleConns: cfg.Database.MaxIdle,
			Retries:      5,
			RetryBackoff: 500 * time.Millisecond,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		logOut.Info("database online", zap.String("driver", cfg.Database.Driver))

		if cfg.Database.Migrate {
			if err := store.Migrate(db.DB, cfg.Database.Driver); err != nil {
				return err
			}
			logOut.Info("migrations applied")
		}
		repo = store.NewSQL(db)
	}

	//
	// ── engine ──────────────────────────────────────────────────────────
	//
	svc := actions.New(repo, logOut.Named("actions"), actions.Config{
		LockTTL:             cfg.Pages.LockTTL,
		LanguageDeleteScope: cfg.Pages.LanguageDeleteScope,
		WriteConcurrency:    cfg.Pages.WriteConcurrency,
	})
	registry := actions.NewRegistry(svc)
	logOut.Info("actions registered", zap.Strings("actions", registry.Names()))

	//
	// ── tenants and revalidation ────────────────────────────────────────
	//
	deps := api.Deps{
		Registry:    registry,
		Log:         logOut,
		HostMapping: cfg.HTTP.HostMapping,
		ForceHTTPS:  cfg.HTTP.ForceHTTPS,
		Timeout:     cfg.HTTP.WriteTimeout,
	}
	if db != nil {
		deps.Health = db.PingContext
	}
	if cfg.HTTP.HostMapping {
		if db == nil {
			return errors.New("http.host_mapping needs a SQL database")
		}
		deps.Tenants = tenant.New(db, logOut.Named("tenant"), tenant.DefaultTTL, tenant.DefaultMaxEntries)
	}
	if cfg.Redis.URL != "" {
		pub, err := revalidate.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Channel)
		if err != nil {
			return err
		}
		defer pub.Close()
		deps.Publisher = pub
		logOut.Info("revalidation publisher online", zap.String("channel", cfg.Redis.Channel))
	}

	//
	// ── serve ───────────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, api.NewRouter(deps), server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})
	return server.Run(ctx, srv, cfg.HTTP.ShutdownTimeout, logOut)
}
