package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jeremiehuchet/chatops-bot/internal/application"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/cache_fs"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/config"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/gitlab_http"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/jira_http"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/logging"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/notify_slack"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/webhook"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the webhook server",
	Run: func(cmd *cobra.Command, args []string) {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatal("config", zap.Error(err))
		}

		filter, err := application.NewWatchFilter(cfg.EnabledProjects(), cfg.Watch.Branches)
		if err != nil {
			log.Fatal("watch filter", zap.Error(err))
		}

		gl := gitlab_http.New(cfg.GitLab.BaseURL, cfg.GitLab.Token, cfg.GitLab.Timeout)
		note := notify_slack.New(cfg.Slack.Token)
		cache := cache_fs.New(cfg.Cache.Path)

		reg := application.NewRegistry()
		est := application.NewEstimator(log, gl)
		engine := application.NewEngine(log, reg, est, note, cache,
			cfg.Watch.StageReactions, cfg.Watch.MaxAge)

		srv := webhook.NewServer(log, engine, filter, cfg.Server.WebhookSecret)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if cfg.Jira.URL != "" {
			jira := jira_http.New(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.Password, cfg.Jira.Timeout)
			tickets, err := application.NewTicketLookup(log, jira, cfg.Jira.CacheTTL, cfg.Jira.IgnoreUsers)
			if err != nil {
				log.Fatal("ticket lookup", zap.Error(err))
			}
			pattern, err := tickets.Pattern(ctx)
			if err != nil {
				log.Warn("ticket lookup disabled", zap.Error(err))
			} else {
				log.Info("listening to ticket mentions", zap.String("pattern", pattern.String()))
				srv.EnableTicketLookup(tickets, note, pattern)
			}
		}

		watchAndReload(cfgPath, log, srv)

		sweeper := application.NewSweeper(log, engine, cfg.Watch.SweepInterval)
		go sweeper.Run(ctx)

		httpSrv := srv.NewHTTPServer(cfg.Server.Addr)
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		log.Info("start",
			zap.String("version", version),
			zap.Int("projects", len(cfg.EnabledProjects())),
			zap.String("branches", cfg.Watch.Branches),
			zap.Duration("max_age", cfg.Watch.MaxAge),
			zap.String("addr", cfg.Server.Addr),
			zap.String("gitlab", cfg.GitLab.BaseURL),
			zap.String("cache", cfg.Cache.Path),
		)

		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// watchAndReload swaps the watch filter when the config file changes.
func watchAndReload(cfgPath string, log *zap.Logger, srv *webhook.Server) {
	if cfgPath == "" {
		return
	}

	dir := filepath.Dir(cfgPath)
	base := filepath.Base(cfgPath)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify init failed", zap.Error(err))
		return
	}

	go func() {
		defer func() { _ = w.Close() }()

		var timer *time.Timer
		fire := func() {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				log.Warn("config reload failed", zap.Error(err))
				return
			}
			filter, err := application.NewWatchFilter(cfg.EnabledProjects(), cfg.Watch.Branches)
			if err != nil {
				log.Warn("config reload failed", zap.Error(err))
				return
			}
			srv.UpdateFilter(filter)
			log.Info("config reloaded", zap.Int("projects", len(cfg.EnabledProjects())))
		}

		startTimer := func() {
			if timer == nil {
				timer = time.AfterFunc(300*time.Millisecond, fire)
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(300 * time.Millisecond)
			}
		}

		if err := w.Add(dir); err != nil {
			log.Warn("fsnotify add dir failed", zap.String("dir", dir), zap.Error(err))
			return
		}

		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}

				if filepath.Base(ev.Name) != base {
					continue
				}

				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					startTimer()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("fsnotify error", zap.Error(err))
			}
		}
	}()
}
