package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jfperusse/chainlit/internal/app"
	"github.com/jfperusse/chainlit/internal/database"
)

// adduser provisions a password-auth user directly against the database.
// Intended for operators bootstrapping accounts; header-auth users are
// provisioned automatically on first request.
func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		email       = flag.String("email", "", "Email address for the new user")
		displayName = flag.String("name", "", "Display name (defaults to the email local part)")
		password    = flag.String("password", "", "Password (min 8 characters)")
		roles       = flag.String("roles", "user", "Comma-separated roles")
	)
	flag.Parse()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

	if *databaseURL == "" {
		log.Fatal("Postgres URL required (--database or DATABASE_URL env)")
	}
	if *email == "" || *password == "" {
		log.Fatal("--email and --password are required")
	}

	name := *displayName
	if name == "" {
		name, _, _ = strings.Cut(*email, "@")
	}

	var roleList []string
	for _, role := range strings.Split(*roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roleList = append(roleList, role)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, *databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	svc := app.NewService(database.NewUserRepo(pool), nil, 0)

	user, err := svc.Register(ctx, *email, name, *password, roleList)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	slog.Info("User created", "user_id", user.ID, "email", user.Email, "roles", user.Roles)
}
