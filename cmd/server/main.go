// Command server runs the session service the desktop timer records Pomodoro
// sessions against.
//
//	server                         serve the API
//	server token -user 1 -ttl 720h print a bearer token for the desktop client
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focusmatrix/internal/server"
	"focusmatrix/internal/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	jwtSecret := os.Getenv("JWT_SECRET")

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(jwtSecret, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "focusmatrix.db")
	if jwtSecret == "" {
		slog.Warn("JWT_SECRET not set, authentication disabled", "user_id", server.AnonymousUserID)
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	router := server.NewRouter(server.Dependencies{
		Tasks:    db.Tasks(),
		Sessions: db.Sessions(),
		Auth:     server.NewAuthenticator(jwtSecret),
		Health:   db,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "database", dbPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func issueToken(secret string, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.Int64("user", server.AnonymousUserID, "user id to put in the token subject")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if secret == "" {
		return errors.New("JWT_SECRET must be set to issue tokens")
	}

	token, err := server.NewAuthenticator(secret).IssueToken(*userID, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
