package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/config"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/dataset"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/llm"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/openai"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/session"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
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
	configPath := flag.String("config", "configs/config.yml", "path to YAML config")
	theme := flag.String("theme", "", "UI theme: light or dark (overrides config)")
	logPath := flag.String("log", "annotator_tui.log", "log file path")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <annotator> <input-file> [output-file]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(exitGeneric)
	}
	annotator := args[0]
	inputPath := args[1]

	// Log to a file: zap output on stderr would tear the terminal UI.
	logCfg := zap.NewDevelopmentConfig()
	logCfg.OutputPaths = []string{*logPath}
	logCfg.ErrorOutputPaths = []string{*logPath}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(exitGeneric)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fail(logger, err)
	}
	if *theme != "" {
		cfg.UI.Theme = *theme
	}

	schema, err := cfg.Schema()
	if err != nil {
		fail(logger, err)
	}

	outputPath := dataset.DeriveOutputPath(inputPath, annotator)
	if len(args) == 3 {
		outputPath = args[2]
	}

	store := dataset.NewStore(logger)

	ds, err := store.Load(inputPath, schema)
	if err != nil {
		fail(logger, err)
	}

	ds, err = store.Reconcile(ds, outputPath, schema)
	if err != nil {
		fail(logger, err)
	}

	var generator session.Generator

	if len(cfg.Generation.Providers) > 0 {
		multiClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
			Providers:   cfg.Generation.Providers,
			MaxFailures: cfg.Generation.MaxFailuresBeforeSwitch,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize multi-provider client", zap.Error(err))
		} else {
			generator = multiClient
			defer multiClient.Close()
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
			fail(logger, err)
		}
		defer openaiClient.Close()
		generator = llm.NewRateLimitedProvider(openaiClient, 8, logger)
	}

	ctrl, err := session.NewController(ds, schema, store, outputPath, session.Options{
		Annotator:         annotator,
		Generator:         generator,
		GenerationTimeout: time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		fail(logger, err)
	}

	logger.Info("TUI session starting",
		zap.String("annotator", annotator),
		zap.String("output", outputPath),
		zap.Int("rows", ds.Len()))

	program := tea.NewProgram(tui.New(ctrl, cfg.UI.Theme, logger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fail(logger, err)
	}
}

// fail prints a startup error and exits with the code matching its class.
func fail(logger *zap.Logger, err error) {
	logger.Error("Startup failed", zap.Error(err))
	logger.Sync()
	fmt.Fprintf(os.Stderr, "error: %v\n", err)

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
