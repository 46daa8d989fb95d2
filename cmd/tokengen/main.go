// Command tokengen prints a signed access token for local testing of the
// websocket endpoint.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/immxrtalbeast/chat_relay/internal/config"
	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	var (
		id    uint
		name  string
		email string
		ttl   time.Duration
	)
	flag.UintVar(&id, "id", 0, "user id")
	flag.StringVar(&name, "name", "", "display name")
	flag.StringVar(&email, "email", "", "email")
	flag.DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to auth.token_ttl")

	_ = godotenv.Load(".env")
	cfg := config.MustLoad()

	if id == 0 {
		fmt.Fprintln(os.Stderr, "-id is required")
		os.Exit(2)
	}

	auth := service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	token, err := auth.IssueToken(domain.NewIdentity(id, name, email), ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to issue token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
