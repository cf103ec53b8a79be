// Command devtoken mints identity tokens for local development. Production
// tokens come from the identity service and share its JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tintd/salon-dispatch/internal/utils"
)

func main() {
	sub := flag.String("sub", "", "subject (user or partner id)")
	role := flag.String("role", "customer", "customer, partner or admin")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *sub == "" {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... devtoken -sub <id> [-role partner] [-email a@b.c]")
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(secret, *sub, *role, *email, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
