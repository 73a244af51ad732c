package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/smarttransit/travel-booking-backend/pkg/jwt"
	"github.com/spf13/pflag"
)

// dev-token mints an access token signed with JWT_SECRET for calling the API locally
func main() {
	var (
		userIDFlag string
		email      string
		name       string
		roles      []string
		issuer     string
		expiry     time.Duration
	)

	flagSet := pflag.NewFlagSet("dev-token", pflag.ContinueOnError)
	flagSet.StringVar(&userIDFlag, "user-id", "", "user id to embed (default: random)")
	flagSet.StringVar(&email, "email", "dev@example.com", "email claim")
	flagSet.StringVar(&name, "name", "Dev User", "name claim")
	flagSet.StringSliceVar(&roles, "roles", []string{"user"}, "comma separated roles, e.g. user,admin")
	flagSet.StringVar(&issuer, "issuer", "", "issuer claim (default: JWT_ISSUER)")
	flagSet.DurationVar(&expiry, "expiry", time.Hour, "token lifetime")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fatal(err)
	}

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fatal(fmt.Errorf("JWT_SECRET is not set"))
	}
	if issuer == "" {
		issuer = os.Getenv("JWT_ISSUER")
	}

	userID := uuid.New()
	if userIDFlag != "" {
		parsed, err := uuid.Parse(userIDFlag)
		if err != nil {
			fatal(fmt.Errorf("invalid --user-id: %w", err))
		}
		userID = parsed
	}

	token, err := jwt.NewService(secret, issuer, expiry).GenerateAccessToken(userID, email, name, roles)
	if err != nil {
		fatal(err)
	}

	fmt.Fprintf(os.Stderr, "user_id=%s roles=%v expires_in=%s\n", userID, roles, expiry)
	fmt.Println(token)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "dev-token: %v\n", err)
	os.Exit(1)
}
