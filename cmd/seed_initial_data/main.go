package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"questionnaire-engine/cmd/seed_initial_data/internal/seedmodels"
	"questionnaire-engine/internal/adapter/evaluator"
	"questionnaire-engine/internal/config"
	"questionnaire-engine/internal/database"
	"questionnaire-engine/internal/logger"
	"questionnaire-engine/internal/repository"
	"questionnaire-engine/internal/service"

	"go.uber.org/zap"
)

const defaultSeedFilePath = "configs/seed_data/questionnaires.json"

func main() {
	seedFilePath := flag.String("file", defaultSeedFilePath, "JSON file of questionnaire definitions")
	flag.Parse()

	ctx := context.Background()
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

	log.Info("Starting questionnaire seeding process...")
	db, err := database.NewSQLXOracleDB(cfg.GetDSN())
	if err != nil {
		log.Fatal("Failed to connect to Oracle database", zap.Error(err))
	}
	defer db.Close()

	// Backend names are checked against the registry; no model is called.
	deps, err := evaluator.NewDependencies(cfg.Evaluator)
	if err != nil {
		log.Fatal("Failed to create evaluator clients", zap.Error(err))
	}
	registry, err := evaluator.NewRegistry(deps, cfg.Evaluator.DefaultBackend)
	if err != nil {
		log.Fatal("Failed to create evaluator registry", zap.Error(err))
	}

	definitions := service.NewDefinitionService(
		repository.NewQuestionnaireDatabaseAdapter(db),
		repository.NewTransactionManagerAdapter(db),
		nil,
		registry,
		cfg.Cache.DefinitionTTL,
	)

	log.Info("Loading seed data from file", zap.String("path", *seedFilePath))
	byteValue, err := os.ReadFile(*seedFilePath)
	if err != nil {
		log.Fatal("Failed to read seed file", zap.String("path", *seedFilePath), zap.Error(err))
	}

	var seeds []seedmodels.SeedQuestionnaire
	if err := json.Unmarshal(byteValue, &seeds); err != nil {
		log.Fatal("Failed to unmarshal seed data", zap.Error(err))
	}
	log.Info("Successfully unmarshalled seed data", zap.Int("questionnaires_loaded", len(seeds)))

	failed := 0
	for _, seed := range seeds {
		saved, err := definitions.SaveQuestionnaire(ctx, seed.ToDomain(seed.ID))
		if err != nil {
			failed++
			log.Error("Error seeding questionnaire", zap.String("id", seed.ID), zap.String("name", seed.Name), zap.Error(err))
			continue
		}
		log.Info("Seeded questionnaire",
			zap.String("id", saved.ID),
			zap.Int("sections", len(saved.Sections)),
			zap.Int("questions", len(saved.Questions)),
		)
	}
	if failed > 0 {
		log.Fatal("Questionnaire seeding finished with errors", zap.Int("failed", failed))
	}
	log.Info("Questionnaire seeding process completed.")
}
