// Command token mints bearer tokens: member tokens for local development and
// payment gateway tokens, the only ones ConfirmPayment accepts.
//
//	EQUB_AUTH_JWT_SECRET=dev go run ./cmd/token -member alice
//	EQUB_AUTH_JWT_SECRET=dev go run ./cmd/token -service -member telebirr
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mmynk/equb/internal/auth"
	"github.com/mmynk/equb/internal/config"
	"github.com/mmynk/equb/pkg/logging"
)

func main() {
	memberID := flag.String("member", "", "member id (or gateway service id with -service) to put in the token")
	service := flag.Bool("service", false, "mint a payment gateway token")
	name := flag.String("name", "", "optional display name")
	ttl := flag.Duration("ttl", 0, "token lifetime (default: auth.token_ttl)")
	flag.Parse()

	cfg, err := config.Load(".", "/etc/equb")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, lifetime)
	if err != nil {
		slog.Error("Failed to create token manager", "error", err)
		os.Exit(1)
	}

	var token string
	if *service {
		token, err = jwtManager.GenerateGateway(*memberID)
	} else {
		token, err = jwtManager.Generate(*memberID, *name)
	}
	if err != nil {
		slog.Error("Failed to generate token", "member_id", *memberID, "error", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
