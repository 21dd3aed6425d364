// Command loaddata performs the one-shot import of reference data
// (ingredients and tags) from delimited text files. It is meant to run
// out-of-band before serving traffic.
package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/foodgram-project/backend/config"
	"github.com/foodgram-project/backend/internal/database"
	"github.com/foodgram-project/backend/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ingredientsPath := flag.String("ingredients", cfg.IngredientsCSV, "path to the ingredients CSV (name,measurement_unit)")
	tagsPath := flag.String("tags", cfg.TagsCSV, "path to the tags CSV (name,color,slug)")
	flag.Parse()

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	loader := service.NewLoader(db, logger)

	created, err := loader.LoadIngredients(*ingredientsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("ingredient import failed")
	}
	logger.Info().Int("created", created).Msg("ingredients loaded")

	created, err = loader.LoadTags(*tagsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("tag import failed")
	}
	logger.Info().Int("created", created).Msg("tags loaded")
}
