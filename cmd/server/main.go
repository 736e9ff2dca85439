/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config.yml and environment overrides
  3. Configure logging
  4. Initialize SQLite store
  5. Create API handler and router
  6. Start the ledger audit scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config       Config file (default: config.yml)
  -port         HTTP server port, overrides app.port
  -db           SQLite database path, overrides database.path
                Use ":memory:" for in-memory database
  -issue-token  Print a signed token for the given user id and exit
  -admin        With -issue-token, grant the admin claim

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the audit scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (app.shutdown_timeout_sec)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/leave.db"
  ./server -issue-token=emp-alex
  ./server -issue-token=ops -admin

ENVIRONMENT:
  APP_PORT, DB_PATH, JWT_SECRET, LOG_LEVEL, LOG_FORMAT and friends,
  see config/config.go.

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	configFile := flag.String("config", "config.yml", "Configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	issueToken := flag.String("issue-token", "", "Print a signed token for this user id and exit")
	admin := flag.Bool("admin", false, "Grant the admin claim to the issued token")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	configureLogging(cfg)

	if *issueToken != "" {
		token, err := api.IssueToken(cfg.Auth.JWTSecret, *issueToken, *admin, cfg.TokenTTL())
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}
	if cfg.Auth.JWTSecret == "change-me" {
		log.Warn("JWT secret is the default value, set JWT_SECRET before exposing this server")
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, cfg)
	router := api.NewRouter(handler, cfg)

	scheduler := api.NewLedgerAuditScheduler(store, handler.Ledger)
	scheduler.CheckInterval = cfg.AuditInterval()
	scheduler.Enabled = cfg.AuditEnabled()
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.ListenAddr, cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{"addr": server.Addr, "db": cfg.Database.Path}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("server stopped")
}

func configureLogging(cfg *config.Configuration) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
