// Command admin_token prints a bearer token for the /admin endpoints.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gold_mining/internal/logger"
	"gold_mining/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	subject := flag.String("sub", "operator", "token subject, shown in the audit log")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}
	service.InitJWT(secret)

	token, err := service.GenerateAdminJWT(*subject, *ttl)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
