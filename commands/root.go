// Package commands is the ikeya command line: the API server plus the
// maintenance tasks operators run against its database.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/DelightGeorge/Ikeya-Backend/config"
	"github.com/DelightGeorge/Ikeya-Backend/database"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/DelightGeorge/Ikeya-Backend/storage"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "ikeya",
	Short: "Ikeyà e-commerce API",
	Long: `Ikeyà serves the storefront API: accounts, catalog, cart, orders,
Paystack payments, transactional email and the newsletter.

Run "ikeya serve" to start the HTTP server and the email worker.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ ")+err.Error())
		os.Exit(1)
	}
}

// bootstrap loads configuration, installs the default logger and opens the
// database. Every subcommand starts here.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	setupLogger(cfg)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}

// newSender prefers Resend, then SMTP, then logging the mail.
func newSender(mail config.MailConfig) notifications.Sender {
	switch {
	case mail.ResendAPIKey != "":
		return notifications.NewResendSender(mail.ResendAPIKey, mail.From)
	case mail.SMTPHost != "":
		return notifications.NewSMTPSender(mail.SMTPHost, mail.SMTPPort, mail.SMTPUser, mail.SMTPPassword, mail.From)
	default:
		slog.Warn("No mail transport configured; emails will only be logged")
		return notifications.LogSender{}
	}
}

// newStore uses Firebase Storage when a bucket is configured and the local
// uploads directory otherwise.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.FirebaseBucket != "" {
		return storage.NewFirebaseStore(ctx, cfg.FirebaseCreds, cfg.FirebaseBucket)
	}
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.Port
	}
	return storage.NewLocalStore(cfg.UploadsDir, baseURL)
}
