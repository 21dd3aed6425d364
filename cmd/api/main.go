package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/foodgram-project/backend/config"
	"github.com/foodgram-project/backend/internal/api"
	"github.com/foodgram-project/backend/internal/database"
	"github.com/foodgram-project/backend/internal/middleware"
	"github.com/foodgram-project/backend/internal/router"
	"github.com/foodgram-project/backend/internal/server"
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

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	var rateLimit *middleware.RateLimiter
	if cfg.RedisEnabled() {
		redisClient, err := database.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		rateLimit = middleware.NewRecipeWriteRateLimiter(redisClient)
	}

	s3Config, err := config.NewS3Config(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure S3")
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	imageService := service.NewImageService(s3Config, cfg.MediaRoot, cfg.MediaURL)
	recipeService := service.NewRecipeService(db, imageService)
	subscriptionService := service.NewSubscriptionService(db)

	handlers := router.Handlers{
		Auth:        api.NewAuthHandler(authService),
		Users:       api.NewUserHandler(db, subscriptionService, recipeService),
		Tags:        api.NewTagHandler(db),
		Ingredients: api.NewIngredientHandler(db),
		Recipes:     api.NewRecipeHandler(recipeService, subscriptionService),
		Health:      api.NewHealthHandler(db),
	}

	engine := router.SetupRouter(handlers, authService, rateLimit, cfg, s3Config == nil)
	srv := server.New(engine, net.JoinHostPort(cfg.ServerHost, cfg.ServerPort), logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("received signal")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}
