package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/auth"
	"github.com/DelightGeorge/Ikeya-Backend/database"
	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/DelightGeorge/Ikeya-Backend/outbox"
	"github.com/DelightGeorge/Ikeya-Backend/payments/paystack"
	"github.com/DelightGeorge/Ikeya-Backend/realtime"
	"github.com/DelightGeorge/Ikeya-Backend/routes"
	"github.com/DelightGeorge/Ikeya-Backend/storage"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	skipMigrate bool
	backupHour  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the email worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not auto-migrate the schema on start")
	serveCmd.Flags().IntVar(&backupHour, "backup-hour", 2, "Hour of day for the uploads backup when BACKUP_DIR is set")
}

func runServe(ctx context.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	google, err := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	if err != nil {
		// Sign-in with Google stays off; everything else still works.
		slog.Error("Google sign-in unavailable", "error", err)
		google, _ = auth.NewGoogleVerifier(ctx, "")
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(cfg.CORSOrigins)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	worker := outbox.NewWorker(db, newSender(cfg.Mail), cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)

	router := routes.NewRouter(routes.Dependencies{
		DB:       db,
		Config:   cfg,
		Issuer:   auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL, cfg.ResetTTL),
		Outbox:   notifications.NewOutbox(cfg.Mail.AdminEmail, cfg.Outbox.MaxAttempts),
		Google:   google,
		Store:    store,
		Payments: paystack.NewClient(cfg.PaystackSecret, cfg.PaystackBaseURL),
		Hub:      hub,
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "port", cfg.Port, "env", cfg.AppEnv, "login_mode", cfg.LoginMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return worker.Run(ctx) })

	if database.IsPostgres(db) {
		g.Go(func() error { return outbox.Listen(ctx, cfg.DatabaseURL, worker) })
	}

	g.Go(func() error {
		limiter.Run(ctx)
		return nil
	})

	if cfg.BackupDir != "" {
		if _, ok := store.(*storage.LocalStore); ok {
			g.Go(func() error {
				return storage.RunDailyBackup(ctx, cfg.UploadsDir, cfg.BackupDir, cfg.BackupRetention, backupHour, 0)
			})
		}
	}

	return g.Wait()
}
