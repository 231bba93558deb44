// cmd/seeduser/main.go: creates a login through the same rules as /register.
// Usage: go run ./cmd/seeduser -username demo -email demo@example.com -password demo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"salescrm/internal/apierror"
	"salescrm/internal/config"
	"salescrm/internal/dto"
	"salescrm/internal/infra"
	"salescrm/internal/repository"
	"salescrm/internal/service"
	"salescrm/internal/session"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	username := flag.String("username", envOr("SEED_USERNAME", "demo"), "username")
	email := flag.String("email", envOr("SEED_EMAIL", "demo@example.com"), "e-mail address")
	password := flag.String("password", envOr("SEED_PASSWORD", "demo1234"), "password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	// Register never touches sessions; the manager only satisfies the constructor.
	sessions := session.NewManager(session.NewMemoryStore(), cfg.SessionSecret, cfg.SessionTTL())
	svc := service.NewAuthService(repository.NewUserRepository(db), sessions, cfg.BcryptCost, cfg.LoginRedirect)

	err = svc.Register(context.Background(), dto.RegisterRequest{Username: *username, Email: *email, Password: *password})
	switch {
	case apierror.Is(err, apierror.KindConflict):
		fmt.Printf("user %q already exists, nothing to do\n", *username)
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create user")
	default:
		fmt.Printf("user %q created\n", *username)
	}
}
