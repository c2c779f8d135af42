// Package app provides the application bootstrap and runtime
// orchestration.
//
// The App type wires together all dependencies and exposes methods to
// run the two operational modes:
//
//   - Web mode: public teaser, sign-in flow and member dashboard
//   - Publish mode: weekly selection publisher, scheduled or one-shot
//
// Each mode can be run independently based on deployment needs.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cdb-lab/product-radar/internal/auth"
	"github.com/cdb-lab/product-radar/internal/platform/config"
	"github.com/cdb-lab/product-radar/internal/platform/worker"
	"github.com/cdb-lab/product-radar/internal/publisher"
	db "github.com/cdb-lab/product-radar/internal/storage"
	"github.com/cdb-lab/product-radar/internal/web"
)

const (
	sessionIssuer   = "product-radar"
	publishTaskName = "weekly-publish"
)

// App holds the application dependencies and provides methods to run
// the service modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// RunWeb serves the web surface until the context is canceled.
func (a *App) RunWeb(ctx context.Context) error {
	provider := auth.NewService(a.database, auth.Options{
		Secret:     a.cfg.SessionSecret,
		BaseURL:    a.cfg.BaseURL,
		Issuer:     sessionIssuer,
		CodeTTL:    a.cfg.MagicCodeTTL,
		SessionTTL: a.cfg.SessionTTL,
	}, a.logger)

	server, err := web.NewServer(a.database, provider, provider.Hub(), web.Options{
		Port:           a.cfg.HTTPPort,
		AppEnv:         a.cfg.AppEnv,
		DashboardLimit: a.cfg.DashboardLimit,
	}, a.database.Pool.Ping, a.logger)
	if err != nil {
		return fmt.Errorf("web server init: %w", err)
	}

	return server.Start(ctx)
}

// RunPublisher runs the weekly publisher. With once set it publishes
// immediately for runDate (empty means today) and exits; otherwise it
// runs the weekly schedule until the context is canceled.
func (a *App) RunPublisher(ctx context.Context, once bool, runDate string) error {
	pub := publisher.New(a.database, publisher.Options{
		TopN:           a.cfg.PublishTopN,
		MaxPerCategory: a.cfg.PublishMaxPerCat,
	}, a.logger)

	if once {
		resolved, err := publisher.ResolveRunDate(runDate, time.Now())
		if err != nil {
			return err
		}

		return pub.Run(ctx, resolved)
	}

	task := &worker.WeeklyTask{
		Name: publishTaskName,
		Day:  time.Weekday(a.cfg.PublishWeekday),
		Hour: a.cfg.PublishHour,
		Run: func(ctx context.Context, _ *zerolog.Logger) error {
			return pub.Run(ctx, time.Now().UTC().Format(db.DateLayout))
		},
	}

	// Seed last-run from the run log so a restart does not republish a
	// week that already went out.
	lastRun, err := a.database.LatestSuccessfulRun(ctx)
	if err != nil {
		return fmt.Errorf("loading last successful run: %w", err)
	}

	if lastRun != nil {
		task.SetLastRun(lastRun.CreatedAt)
	}

	return worker.RunLoop(ctx, task, a.cfg.SchedulerTickInterval, a.logger)
}
