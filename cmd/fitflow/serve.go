package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	adapthttp "fitflow/internal/adapter/http"
	"fitflow/internal/app"
	"fitflow/internal/clock"
	"fitflow/internal/config"
	"fitflow/internal/domain"
	"fitflow/internal/undo"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(v *viper.Viper, load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("web-dir", "", "directory with the web client")
	cmd.Flags().String("outbox-dir", "", "badger directory for failed deletes (empty keeps them in memory)")
	cmd.Flags().Duration("undo-window", 0, "how long a delete can be undone")
	for _, name := range []string{"addr", "web-dir", "outbox-dir", "undo-window"} {
		_ = v.BindPFlag(configKey(name), cmd.Flags().Lookup(name))
	}
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	b := &backend{}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("close backend", "err", err)
		}
	}()
	if err := openStore(ctx, cfg, b); err != nil {
		return err
	}
	if err := openOutbox(cfg, logger, b); err != nil {
		return err
	}
	if err := openObjects(ctx, cfg, b); err != nil {
		return err
	}

	clk := clock.New()
	queue := undo.NewQueue(clk, cfg.UndoWindow)
	notices := undo.NewNotices(clk)
	deps := app.Deps{
		Queue:         queue,
		Notices:       notices,
		Outbox:        b.outbox,
		Clock:         clk,
		RemoteTimeout: cfg.RemoteTimeout,
		Logger:        logger,
	}

	weights := app.NewWeightService(b.repos, deps)
	calories := app.NewCalorieService(b.repos, deps)
	wellness := app.NewWellnessService(b.repos, deps)
	moods := app.NewMoodService(b.repos, deps)
	profiles := app.NewProfileService(b.repos, b.repos, clk)
	authSvc := app.NewAuthService(b.repos, b.sessions).WithProfiles(b.repos)

	if cfg.InitialEmail != "" {
		if err := authSvc.CreateInitialUser(ctx, cfg.InitialEmail, cfg.InitialPassword); err != nil {
			logger.Debug("initial user skipped", "err", err)
		} else {
			logger.Info("created initial user", "email", cfg.InitialEmail)
		}
	}

	svc := adapthttp.Services{
		Auth:      authSvc,
		Weight:    weights,
		Calorie:   calories,
		Wellness:  wellness,
		Mood:      moods,
		Profile:   profiles,
		Photo:     app.NewPhotoService(b.repos, b.objects, clk, logger),
		Charts:    app.NewChartsService(weights, calories, wellness, clk),
		Dashboard: app.NewDashboardService(profiles, weights, calories, wellness, moods, clk),
		QuickLog: app.NewQuickLogService(weights, calories, wellness, profiles, app.QuickLogOptions{
			Delay:         cfg.AutoCommitDelay,
			Enabled:       cfg.AutoCommitEnabled,
			RemoteTimeout: cfg.RemoteTimeout,
			Clock:         clk,
			Logger:        logger,
		}),
		Export:  app.NewExportService(weights, calories, wellness, moods),
		Undo:    queue,
		Notices: notices,
	}

	srv := adapthttp.New(svc, cfg.WebDir, logger)
	if b.memFiles != nil {
		srv = srv.WithFiles(adapthttp.ObjectServer(b.memFiles.Get))
	}
	if cfg.SSOEnabled() {
		oidcCfg, err := newOIDC(ctx, cfg)
		if err != nil {
			return err
		}
		srv = srv.WithOIDC(oidcCfg)
	}

	reconciler := app.NewReconciler(b.outbox, map[domain.Kind]app.RemoveFunc{
		domain.KindWeight:   weights.RemoveFunc(),
		domain.KindCalorie:  calories.RemoveFunc(),
		domain.KindWellness: wellness.RemoveFunc(),
		domain.KindMood:     moods.RemoveFunc(),
	}, cfg.ReconcileRate, clk, cfg.RemoteTimeout, logger.With("component", "reconciler"))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := reconciler.Run(gctx, cfg.ReconcileInterval); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		cleanupSessions(gctx, authSvc, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		// Deletes still inside their undo window are finalized now so they
		// are not lost with the process.
		for _, flush := range []func(context.Context) error{weights.Flush, calories.Flush, wellness.Flush, moods.Flush} {
			if ferr := flush(shutdownCtx); ferr != nil {
				logger.Error("flush pending deletes", "err", ferr)
			}
		}
		return err
	})
	return g.Wait()
}

func cleanupSessions(ctx context.Context, auth *app.AuthService, logger *slog.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		if err := auth.CleanupSessions(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("session cleanup failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func newOIDC(ctx context.Context, cfg config.Config) (adapthttp.OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return adapthttp.OIDCConfig{}, fmt.Errorf("oidc provider %s: %w", cfg.OIDCIssuer, err)
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}
