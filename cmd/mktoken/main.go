// mktoken mints an HS256 bearer token for local development against the
// shared-secret verifier.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"loxodon/internal/auth"
)

func main() {
	_ = godotenv.Load()
	oid := flag.String("oid", "", "subject oid for the token")
	roles := flag.String("roles", "", "comma-separated token roles")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is empty")
		os.Exit(1)
	}
	if *oid == "" {
		fmt.Fprintln(os.Stderr, "-oid is required")
		os.Exit(1)
	}
	var roleList []string
	if *roles != "" {
		roleList = strings.Split(*roles, ",")
	}
	tok, err := auth.Sign([]byte(secret), *oid, roleList, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
