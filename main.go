package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"project/database"
	"project/lobby"
	"project/middleware"
	"project/models"
	"project/routes"

	"github.com/joho/godotenv"
)

func envSeconds(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			return time.Duration(v) * time.Second
		}
	}
	return def
}

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	requiredEnvVars := []string{"DB_HOST", "DB_USER", "DB_PASS", "DB_NAME", "JWT_SECRET"}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	allModels := []interface{}{
		&models.Admin{},
		&models.RefreshToken{},
		&models.User{},
		&models.TicketWallet{},
		&models.LedgerEntry{},
		&models.Lobby{},
		&models.LobbyPlayer{},
		&models.LobbyRound{},
		&models.GameHistory{},
		&models.GameHistoryPlayer{},
	}

	// Auto-migrate only in development to avoid accidental production schema
	// changes; production opts in explicitly and gets a best-effort backup first.
	if strings.ToLower(os.Getenv("ENV")) == "development" {
		log.Println("Running in development mode - performing auto-migration")
		if err := db.AutoMigrate(allModels...); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		log.Println("Auto-migration completed successfully")
	} else if os.Getenv("DB_MIGRATE_ON_BOOT") == "true" {
		log.Println("Running production migration with backup")
		if err := database.RunMigrationsWithBackup(db, allModels...); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	} else {
		log.Println("Running in production mode - skipping auto-migration")
	}

	// Lobby engine: countdown length, stale-lobby expiry (0 disables) and the
	// sweeper that resolves due countdowns and retries stuck settlements.
	countdown := envSeconds("COUNTDOWN_SECONDS", 30*time.Second)
	expiry := envSeconds("LOBBY_EXPIRY_SECONDS", 0)
	sweepInterval := envSeconds("SWEEP_INTERVAL_SECONDS", 1*time.Second)

	mgr := lobby.NewManager(db, countdown, expiry)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go mgr.Run(sweepCtx, sweepInterval)

	router := routes.InitRouter(mgr)

	// Global middleware, outermost first:
	// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery -> Metrics -> Suspicious Activity
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.TimeoutMiddleware(
						middleware.RecoveryMiddleware(
							middleware.MetricsMiddleware(
								middleware.SuspiciousActivityMiddleware(router),
							),
						),
					),
				),
			),
		),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopSweep()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
