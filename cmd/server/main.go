// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/gurkanbulca/taskflow/internal/bus"
	"github.com/gurkanbulca/taskflow/internal/config"
	"github.com/gurkanbulca/taskflow/internal/directory"
	"github.com/gurkanbulca/taskflow/internal/service"
	"github.com/gurkanbulca/taskflow/internal/store"
	"github.com/gurkanbulca/taskflow/pkg/email"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	log.Println("Connecting to PostgreSQL...")
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	taskStore := store.NewSQLStore(db)
	if cfg.Server.AutoMigrate {
		log.Println("Running auto migration...")
		if err := taskStore.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to run auto migration: %v", err)
		}
	}

	// Initialize email sender
	var sender email.Sender
	if cfg.Email.TestingMode || cfg.IsDevelopment() {
		log.Println("Using mock email sender for development/testing")
		sender = email.NewMockSender()
	} else {
		log.Println("Using SMTP email sender")
		smtpSender := email.NewSMTPSender(cfg.ToEmailConfig())
		if err := smtpSender.TestConnection(context.Background()); err != nil {
			log.Printf("Warning: SMTP connection test failed: %v", err)
		} else {
			log.Println("SMTP connection test successful")
		}
		sender = smtpSender
	}

	// Initialize services
	eventBus := bus.NewMemoryBus()
	defer eventBus.Close()

	engine := service.NewLifecycleEngine(taskStore, eventBus)

	scanner := service.NewDeadlineScanner(taskStore, eventBus, service.ScannerConfig{
		Interval:   cfg.Scanner.Interval,
		Thresholds: cfg.Scanner.Thresholds,
	})

	dispatcher := service.NewNotificationDispatcher(eventBus, loadDirectory(), sender, service.DispatcherConfig{
		AdminRecipient: cfg.Notification.AdminRecipient,
		RetryLimit:     cfg.Notification.RetryLimit,
		RetryBackoff:   cfg.Notification.RetryBackoff,
		DedupWindow:    cfg.Notification.DedupWindow,
		AppName:        cfg.Email.AppName,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scanner.Run(ctx)
	go dispatcher.Run(ctx)

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler: newHandler(engine),
	}

	go func() {
		log.Printf("TaskFlow server listening on port %s", cfg.Server.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	cancel()
	dispatcher.Wait()
	log.Println("Server shutdown complete")
}

// loadDirectory builds the static user directory from DIRECTORY_USERS, a
// comma-separated list of id=email pairs.
func loadDirectory() *directory.StaticDirectory {
	dir := directory.NewStaticDirectory()
	raw := os.Getenv("DIRECTORY_USERS")
	if raw == "" {
		log.Println("DIRECTORY_USERS not set; assignee notifications will fail recipient resolution")
		return dir
	}

	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			log.Printf("Skipping malformed DIRECTORY_USERS entry %q", pair)
			continue
		}
		dir.AddUser(directory.User{
			ID:     parts[0],
			Email:  parts[1],
			Name:   parts[0],
			Status: "CONFIRMED",
		})
	}
	return dir
}
