// Parafeur daemon - serves the signing API and the notification feed
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parafeur/parafeur/internal/api"
	"github.com/parafeur/parafeur/internal/config"
	"github.com/parafeur/parafeur/internal/logging"
	"github.com/parafeur/parafeur/internal/notifications"
	"github.com/parafeur/parafeur/internal/signing"
	"github.com/parafeur/parafeur/internal/storage"
)

var (
	configPath string
	dataDir    string
	port       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "parafeurd",
		Short: "Parafeur daemon - quote and contract signing service",
		RunE:  runDaemon,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: <data-dir>/config.json)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logging.SetLevel(logging.ParseLevel(cfg.Log.Level))
	logging.Info("starting parafeurd")

	// Open database
	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Services
	docs := storage.NewDocumentStore(db)
	notifService := notifications.NewService(db)
	emitter := notifications.NewEmitter(notifService)
	signingService := signing.NewService(docs, emitter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Purge old read/dismissed notifications once a day
	if cfg.Notifications.RetentionDays > 0 {
		go runNotificationCleanup(ctx, notifService, cfg.Notifications.RetentionDays)
	}

	server := api.New(api.Config{
		Host:                cfg.Server.Host,
		Port:                cfg.Server.Port,
		Signing:             signingService,
		Documents:           docs,
		NotificationService: notifService,
	})

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		logging.Info("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Stop(shutdownCtx)
	}()

	logging.WithField("url", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)).Info("signing API ready")
	return server.Start()
}

func runNotificationCleanup(ctx context.Context, svc *notifications.Service, retentionDays int) {
	retention := time.Duration(retentionDays) * 24 * time.Hour
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.Cleanup(ctx, retention)
			if err != nil {
				logging.WithField("error", err.Error()).Warn("notification cleanup failed")
				continue
			}
			if n > 0 {
				logging.WithField("purged", n).Info("notification cleanup")
			}
		}
	}
}
