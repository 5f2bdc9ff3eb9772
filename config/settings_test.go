package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prachwal/rag07/llm"
)

// clearEnv blanks every variable Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RAG07_DEFAULT_LLM_PROVIDER", "RAG07_DEFAULT_VECTOR_PROVIDER", "RAG07_LOG_LEVEL",
		"RAG07_LOG_FORMAT", "RAG07_DEBUG", "RAG07_MAX_ITERATIONS", "RAG07_DB_PATH", "RAG07_MODEL_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}
	for _, p := range llm.AllProviderTypes {
		t.Setenv(envPrefix(p.String())+"_MODEL", "")
		t.Setenv(envPrefix(p.String())+"_BASE_URL", "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rag07.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", s.DefaultLLMProvider)
	assert.Equal(t, VectorSqlite, s.DefaultVectorProvider)
	assert.Equal(t, 5, s.Agent.MaxIterations)
	assert.InDelta(t, 0.1, s.Agent.Temperature, 1e-6)
	assert.Equal(t, 3, s.Agent.ContextLimit)
	assert.Equal(t, 24*time.Hour, s.ModelCacheTTL)
	assert.Len(t, s.LLMProviders, len(llm.AllProviderTypes))

	openai, err := s.LLMProvider("gpt")
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY", openai.APIKeyEnv)
	assert.Equal(t, llm.ProviderOpenAI.DefaultModel(), openai.DefaultModel)
	assert.Equal(t, 30, openai.Timeout)
	require.NotNil(t, openai.MaxRetries)
	assert.Equal(t, 3, *openai.MaxRetries)

	ollama, err := s.LLMProvider("ollama")
	require.NoError(t, err)
	assert.Equal(t, 60, ollama.Timeout)

	sqlite, err := s.VectorProvider("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "default", sqlite.DefaultCollection)
	assert.Equal(t, 1536, sqlite.Dimension)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai", s.DefaultLLMProvider)
}

func TestLoadMergesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
app_name: kb
default_llm_provider: claude
default_vector_provider: memory
llm_providers:
  - name: anthropic
    default_model: claude-custom
    timeout: 45
    max_retries: 0
  - name: localai
    api_key_env: LOCALAI_KEY
    base_url: http://localhost:8080/v1
    default_model: mistral
vector_providers:
  - name: sqlite
    storage_path: /tmp/kb.db
agent:
  max_iterations: 7
model_cache_ttl: 2h
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "kb", s.AppName)
	assert.Equal(t, "anthropic", s.DefaultLLMProvider)
	assert.Equal(t, VectorMemory, s.DefaultVectorProvider)
	assert.Equal(t, 7, s.Agent.MaxIterations)
	assert.Equal(t, 3, s.Agent.ContextLimit, "unset fields keep defaults")
	assert.Equal(t, 2*time.Hour, s.ModelCacheTTL)

	anthropic, err := s.LLMProvider("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "claude-custom", anthropic.DefaultModel)
	assert.Equal(t, "ANTHROPIC_API_KEY", anthropic.APIKeyEnv, "env var name inherited from defaults")
	assert.Equal(t, 45, anthropic.Timeout)
	assert.Equal(t, 0, *anthropic.MaxRetries, "explicit zero retries is kept")

	custom, err := s.LLMProvider("localai")
	require.NoError(t, err)
	assert.Equal(t, 30, custom.Timeout)
	assert.Equal(t, 3, *custom.MaxRetries)

	sqlite, err := s.VectorProvider("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/kb.db", sqlite.StoragePath)
	assert.Equal(t, 1536, sqlite.Dimension)
}

func TestLoadKeepsZeroTemperature(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "agent:\n  temperature: 0\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, s.Agent.Temperature)
	assert.Equal(t, 5, s.Agent.MaxIterations, "unset fields keep defaults")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAG07_DEFAULT_LLM_PROVIDER", "google")
	t.Setenv("RAG07_MAX_ITERATIONS", "9")
	t.Setenv("RAG07_DEBUG", "true")
	t.Setenv("RAG07_DB_PATH", "/data/rag.db")
	t.Setenv("RAG07_MODEL_CACHE_TTL", "30m")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", s.DefaultLLMProvider)
	assert.Equal(t, 9, s.Agent.MaxIterations)
	assert.True(t, s.Debug)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 30*time.Minute, s.ModelCacheTTL)

	sqlite, _ := s.VectorProvider("sqlite")
	assert.Equal(t, "/data/rag.db", sqlite.StoragePath)

	openai, _ := s.LLMProvider("openai")
	assert.Equal(t, "gpt-test", openai.DefaultModel)
	ollama, _ := s.LLMProvider("ollama")
	assert.Equal(t, "http://gpu-box:11434", ollama.BaseURL)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "unknown default provider", yaml: "default_llm_provider: nope\n"},
		{name: "unknown vector provider", yaml: "default_vector_provider: faiss\n"},
		{name: "unsupported backend", yaml: "vector_providers:\n  - name: chroma\n"},
		{name: "negative iterations", yaml: "agent:\n  max_iterations: -1\n"},
		{name: "negative timeout", yaml: "llm_providers:\n  - name: openai\n    timeout: -5\n"},
		{name: "negative dimension", yaml: "vector_providers:\n  - name: sqlite\n    dimension: -1\n"},
		{name: "unknown field", yaml: "colour: blue\n"},
		{name: "malformed yaml", yaml: "agent: [\n"},
		{name: "bad env integer", env: map[string]string{"RAG07_MAX_ITERATIONS": "many"}},
		{name: "bad env duration", env: map[string]string{"RAG07_MODEL_CACHE_TTL": "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, llm.ErrConfiguration), "got %v", err)
		})
	}
}

func TestProviderConfigs(t *testing.T) {
	clearEnv(t)
	s, err := Load("")
	require.NoError(t, err)

	configs := s.ProviderConfigs()
	require.Contains(t, configs, "openai")
	assert.Equal(t, 30*time.Second, configs["openai"].Timeout)
	assert.Equal(t, 3, configs["openai"].MaxRetries)
	assert.Equal(t, "OPENAI_API_KEY", configs["openai"].APIKeyEnv)
	assert.Equal(t, 60*time.Second, configs["lmstudio"].Timeout)

	assert.Contains(t, s.ProviderNames(), "deepseek")
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "OPENROUTER", envPrefix("openrouter"))
	assert.Equal(t, "MY_LLM", envPrefix("my-llm"))
}
