package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "7860", cfg.Server.Port)
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.Equal(t, "conversation", cfg.Dataset.Profile)
	assert.Equal(t, 120, cfg.Generation.TimeoutSeconds)
	assert.Empty(t, cfg.Generation.Providers)
}

func TestLoadConfigExpandsEnvInAPIKeys(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-expanded")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
server:
  port: "9001"
ui:
  theme: dark
generation:
  providers:
    - type: openai
      api_key: ${TEST_OPENAI_KEY}
      model_name: chatgpt-4o-latest
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.Server.Port)
	assert.Equal(t, "dark", cfg.UI.Theme)
	require.Len(t, cfg.Generation.Providers, 1)
	assert.Equal(t, llm.ProviderOpenAI, cfg.Generation.Providers[0].Type)
	assert.Equal(t, "sk-expanded", cfg.Generation.Providers[0].APIKey)
}

func TestSchemaProfiles(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	schema, err := cfg.Schema()
	require.NoError(t, err)
	assert.Equal(t, "text", schema.Context)
	assert.Contains(t, schema.Required, "selected_starter")

	cfg.Dataset.Profile = "dialog"
	schema, err = cfg.Schema()
	require.NoError(t, err)
	assert.Equal(t, "dialog", schema.Context)
	assert.Equal(t, []string{"dialog", "generated_conversation"}, schema.Required)
}

func TestSchemaOverrides(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Dataset.ContextColumn = "article_body"
	cfg.Dataset.AnnotatedColumn = "final_text"

	schema, err := cfg.Schema()
	require.NoError(t, err)
	assert.Equal(t, "article_body", schema.Context)
	assert.Equal(t, "final_text", schema.Annotated)
	assert.Equal(t, "modified_flag", schema.Flag)
}

func TestSchemaUnknownProfile(t *testing.T) {
	cfg := &Config{}
	cfg.Dataset.Profile = "bogus"

	_, err := cfg.Schema()
	assert.Error(t, err)
}
