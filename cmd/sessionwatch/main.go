package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jfperusse/chainlit/internal/apiclient"
	"github.com/jfperusse/chainlit/internal/domain"
	"github.com/jfperusse/chainlit/internal/session"
)

// sessionwatch polls a running server's who-am-I endpoint and prints every
// authentication state change. Useful for watching session expiry and
// server-side revocation from a client's point of view.
func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "Base URL of the server")
		email     = flag.String("email", "", "Log in with this email before watching")
		password  = flag.String("password", "", "Password for --email")
		interval  = flag.Duration("interval", 10*time.Second, "Poll interval")
		ttl       = flag.Duration("ttl", 5*time.Second, "Freshness window for cached identity")
	)
	flag.Parse()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

	client, err := apiclient.New(*serverURL)
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *email != "" {
		if err := client.Login(ctx, *email, *password); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		slog.Info("Logged in", "email", *email)
	}

	resource := apiclient.NewUserResource(client, *ttl, clockwork.NewRealClock())
	cell := session.NewCell()

	unsubscribe := cell.Subscribe(func(state domain.AuthState, user *domain.User) {
		if user != nil {
			slog.Info("Session changed", "state", state, "user_id", user.ID, "email", user.Email)
			return
		}
		slog.Info("Session changed", "state", state)
	})
	defer unsubscribe()

	sync := session.NewSync(cell, resource)
	defer sync.Close()

	sync.Prime(ctx)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping")
			return
		case <-ticker.C:
			sync.Refresh(ctx)
		}
	}
}
