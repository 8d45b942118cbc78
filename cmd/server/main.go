package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/config"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/dataset"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/handler"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/llm"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/openai"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Exit codes for startup failures.
const (
	exitGeneric       = 1
	exitMissingFile   = 2
	exitSchemaInvalid = 3
	exitNothingToDo   = 4
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	configPath := flag.String("config", "configs/config.yml", "path to YAML config")
	port := flag.String("port", "", "listen port (overrides config)")
	theme := flag.String("theme", "", "UI theme: light or dark (overrides config)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <annotator> <input-file> [output-file]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(exitGeneric)
	}
	annotator := args[0]
	inputPath := args[1]

	logger.Info("Starting Dialogue Annotation Tool...",
		zap.String("annotator", annotator),
		zap.String("input", inputPath))

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *theme != "" {
		cfg.UI.Theme = *theme
	}

	schema, err := cfg.Schema()
	if err != nil {
		logger.Fatal("Invalid dataset configuration", zap.Error(err))
	}

	outputPath := dataset.DeriveOutputPath(inputPath, annotator)
	if len(args) == 3 {
		outputPath = args[2]
	}

	// Load and reconcile the dataset
	store := dataset.NewStore(logger)

	ds, err := store.Load(inputPath, schema)
	if err != nil {
		fail(logger, err)
	}

	ds, err = store.Reconcile(ds, outputPath, schema)
	if err != nil {
		fail(logger, err)
	}

	// Initialize the generation provider (optional)
	var generator session.Generator

	if len(cfg.Generation.Providers) > 0 {
		multiClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
			Providers:   cfg.Generation.Providers,
			MaxFailures: cfg.Generation.MaxFailuresBeforeSwitch,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize multi-provider client, falling back to single provider",
				zap.Error(err))
		} else {
			generator = multiClient
			defer multiClient.Close()
			logger.Info("Multi-provider client initialized",
				zap.Int("provider_count", len(cfg.Generation.Providers)))
		}
	}

	if generator == nil && cfg.Generation.OpenAI.APIKey != "" {
		openaiClient, err := openai.NewClient(openai.Config{
			APIKey:     cfg.Generation.OpenAI.APIKey,
			ModelName:  cfg.Generation.OpenAI.ModelName,
			MaxRetries: cfg.Generation.OpenAI.MaxRetries,
			RetryDelay: 2 * time.Second,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize OpenAI client", zap.Error(err))
		}
		defer openaiClient.Close()

		// Wrap with rate limiting
		generator = llm.NewRateLimitedProvider(openaiClient, 8, logger)
		logger.Info("Single provider client initialized with rate limiting")
	}

	if generator == nil {
		logger.Info("No generation provider configured, running as pure review UI")
	}

	// Initialize the session controller
	ctrl, err := session.NewController(ds, schema, store, outputPath, session.Options{
		Annotator:         annotator,
		Generator:         generator,
		GenerationTimeout: time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		fail(logger, err)
	}

	sessionID := uuid.New().String()

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(ctrl, cfg.UI.Theme, sessionID, logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register routes
	apiHandler.RegisterRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Dialogue Annotation Tool is running",
		zap.String("port", cfg.Server.Port),
		zap.String("session_id", sessionID),
		zap.String("output", outputPath),
		zap.Int("rows", ds.Len()),
		zap.Int("annotated", ctrl.CountAnnotated()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// fail logs a startup error and exits with the code matching its class.
func fail(logger *zap.Logger, err error) {
	logger.Error("Startup failed", zap.Error(err))
	logger.Sync()

	code := exitGeneric
	var schemaErr *dataset.SchemaError
	switch {
	case errors.Is(err, dataset.ErrMissingFile):
		code = exitMissingFile
	case errors.As(err, &schemaErr), errors.Is(err, dataset.ErrResumeMismatch):
		code = exitSchemaInvalid
	case errors.Is(err, session.ErrEmptyDataset):
		code = exitNothingToDo
	}
	os.Exit(code)
}
