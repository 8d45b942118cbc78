package config

import (
	"fmt"
	"os"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/llm"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	UI struct {
		Theme string `yaml:"theme"` // "light" or "dark"
	} `yaml:"ui"`

	Dataset struct {
		// Profile selects the column layout: "conversation" (default) or
		// "dialog". Explicit column settings below override the profile.
		Profile         string   `yaml:"profile"`
		RequiredColumns []string `yaml:"required_columns"`
		ContextColumn   string   `yaml:"context_column"`
		TitleColumn     string   `yaml:"title_column"`
		StyleColumn     string   `yaml:"style_column"`
		StarterColumn   string   `yaml:"starter_column"`
		GeneratedColumn string   `yaml:"generated_column"`
		AnnotatedColumn string   `yaml:"annotated_column"`
		FlagColumn      string   `yaml:"flag_column"`
	} `yaml:"dataset"`

	Generation struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`

		// Multiple providers configuration
		Providers []llm.ProviderConfig `yaml:"providers"`

		// Legacy single provider config (fallback)
		OpenAI struct {
			APIKey     string `yaml:"api_key"`
			ModelName  string `yaml:"model_name"`
			MaxRetries int    `yaml:"max_retries"`
		} `yaml:"openai"`

		MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`
	} `yaml:"generation"`
}

// LoadConfig loads configuration from a YAML file. A missing file is not an
// error: the tool then runs as a pure review UI with defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "7860"
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "light"
	}

	if config.Dataset.Profile == "" {
		config.Dataset.Profile = "conversation"
	}

	if config.Generation.TimeoutSeconds == 0 {
		config.Generation.TimeoutSeconds = 120
	}

	if config.Generation.OpenAI.ModelName == "" {
		config.Generation.OpenAI.ModelName = "chatgpt-4o-latest"
	}

	if config.Generation.OpenAI.MaxRetries == 0 {
		config.Generation.OpenAI.MaxRetries = 3
	}

	if config.Generation.MaxFailuresBeforeSwitch == 0 {
		config.Generation.MaxFailuresBeforeSwitch = 3
	}

	// Expand environment variables in provider API keys
	for i := range config.Generation.Providers {
		config.Generation.Providers[i].APIKey = os.ExpandEnv(config.Generation.Providers[i].APIKey)
	}
	config.Generation.OpenAI.APIKey = os.ExpandEnv(config.Generation.OpenAI.APIKey)
}

// Schema resolves the column layout: the profile supplies the base and any
// explicit dataset settings override it.
func (c *Config) Schema() (models.Schema, error) {
	var schema models.Schema
	switch c.Dataset.Profile {
	case "conversation":
		schema = models.ConversationSchema()
	case "dialog":
		schema = models.DialogSchema()
	default:
		return models.Schema{}, fmt.Errorf("unknown dataset profile: %q", c.Dataset.Profile)
	}

	if len(c.Dataset.RequiredColumns) > 0 {
		schema.Required = c.Dataset.RequiredColumns
	}
	if c.Dataset.ContextColumn != "" {
		schema.Context = c.Dataset.ContextColumn
	}
	if c.Dataset.TitleColumn != "" {
		schema.Title = c.Dataset.TitleColumn
	}
	if c.Dataset.StyleColumn != "" {
		schema.Style = c.Dataset.StyleColumn
	}
	if c.Dataset.StarterColumn != "" {
		schema.Starter = c.Dataset.StarterColumn
	}
	if c.Dataset.GeneratedColumn != "" {
		schema.Generated = c.Dataset.GeneratedColumn
	}
	if c.Dataset.AnnotatedColumn != "" {
		schema.Annotated = c.Dataset.AnnotatedColumn
	}
	if c.Dataset.FlagColumn != "" {
		schema.Flag = c.Dataset.FlagColumn
	}

	return schema, nil
}
