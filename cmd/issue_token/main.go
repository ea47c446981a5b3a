// Command issue_token mints an access token for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"questionnaire-engine/internal/config"
	"questionnaire-engine/internal/dto"
	"questionnaire-engine/internal/logger"
	"questionnaire-engine/internal/service"

	"go.uber.org/zap"
)

func main() {
	userID := flag.String("user", "", "user id the token is issued to")
	role := flag.String("role", dto.RoleRespondent, "respondent or reviewer")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	if *userID == "" {
		log.Fatal("A user id is required (-user)")
	}
	if *role != dto.RoleRespondent && *role != dto.RoleReviewer {
		log.Fatal("Unknown role", zap.String("role", *role))
	}

	authService, err := service.NewAuthService(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal("Failed to create AuthService", zap.Error(err))
	}
	token, err := authService.CreateJWT(*userID, *role, *ttl)
	if err != nil {
		log.Fatal("Failed to create token", zap.Error(err))
	}
	fmt.Println(token)
}
