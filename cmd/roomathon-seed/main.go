// Command roomathon-seed loads inspection fixtures from YAML into the local Badger store.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/services/inspections"
	"github.com/ternarybob/roomathon/internal/storage"
)

func main() {
	configPath := flag.String("config", "deployments/local/roomathon.toml", "Configuration file path")
	fixturesPath := flag.String("fixtures", "deployments/local/seed.yaml", "Fixtures YAML file")
	flag.Parse()

	var paths []string
	if _, err := os.Stat(*configPath); err == nil {
		paths = append(paths, *configPath)
	}

	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		common.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger := common.InitLogger(config)

	fixtures, err := inspections.LoadFixtures(*fixturesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *fixturesPath).Msg("Failed to load fixtures")
	}

	manager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
	}

	_, err = inspections.Seed(context.Background(), manager.InspectionStorage(), fixtures, logger)
	closeErr := manager.Close()
	if err != nil {
		logger.Fatal().Err(err).Msg("Seeding failed")
	}
	if closeErr != nil {
		logger.Fatal().Err(closeErr).Msg("Failed to close storage")
	}
}
