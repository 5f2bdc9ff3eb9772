// Package config provides application settings loaded from a YAML file and
// environment variables.
//
// Settings are created via Load() which handles:
// - Built-in defaults for every provider
// - An optional YAML file merged over the defaults by provider name
// - Environment variable overrides with validation
// - Conversion into llm.ProviderConfig values

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/storage"
)

// Vector backends.
const (
	VectorSqlite = "sqlite"
	VectorMemory = "memory"
)

// Settings holds all application configuration.
type Settings struct {
	AppName               string                   `yaml:"app_name"`
	Debug                 bool                     `yaml:"debug"`
	LogLevel              string                   `yaml:"log_level"`
	LogFormat             string                   `yaml:"log_format"`
	DefaultLLMProvider    string                   `yaml:"default_llm_provider"`
	DefaultVectorProvider string                   `yaml:"default_vector_provider"`
	LLMProviders          []LLMProviderSettings    `yaml:"llm_providers"`
	VectorProviders       []VectorProviderSettings `yaml:"vector_providers"`
	Agent                 AgentSettings            `yaml:"agent"`
	ModelCacheTTL         time.Duration            `yaml:"model_cache_ttl"`
}

// LLMProviderSettings configures one text-generation provider.
type LLMProviderSettings struct {
	Name              string   `yaml:"name"`
	APIKeyEnv         string   `yaml:"api_key_env"`
	BaseURL           string   `yaml:"base_url"`
	DefaultModel      string   `yaml:"default_model"`
	EmbeddingModel    string   `yaml:"embedding_model"`
	AvailableModels   []string `yaml:"available_models"`
	Timeout           int      `yaml:"timeout"` // seconds
	MaxRetries        *int     `yaml:"max_retries"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
}

// VectorProviderSettings configures one vector store.
type VectorProviderSettings struct {
	Name              string `yaml:"name"`
	StoragePath       string `yaml:"storage_path"`
	DefaultCollection string `yaml:"default_collection"`
	Dimension         int    `yaml:"dimension"`
}

// AgentSettings holds orchestration defaults.
type AgentSettings struct {
	MaxIterations int     `yaml:"max_iterations"`
	Temperature   float32 `yaml:"temperature"`
	ContextLimit  int     `yaml:"context_limit"`
}

// overrides are the RAG07_* environment variables.
type overrides struct {
	DefaultLLMProvider    string        `env:"RAG07_DEFAULT_LLM_PROVIDER"`
	DefaultVectorProvider string        `env:"RAG07_DEFAULT_VECTOR_PROVIDER"`
	LogLevel              string        `env:"RAG07_LOG_LEVEL"`
	LogFormat             string        `env:"RAG07_LOG_FORMAT"`
	Debug                 *bool         `env:"RAG07_DEBUG"`
	MaxIterations         int           `env:"RAG07_MAX_ITERATIONS"`
	DBPath                string        `env:"RAG07_DB_PATH"`
	ModelCacheTTL         time.Duration `env:"RAG07_MODEL_CACHE_TTL"`
}

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30
	defaultDimension  = 1536
	defaultDBPath     = "rag07.db"
)

// Default returns the built-in settings: every known provider, a SQLite and
// an in-memory vector store, and the agent defaults.
func Default() *Settings {
	s := &Settings{
		AppName:               "rag07",
		LogLevel:              "info",
		LogFormat:             "console",
		DefaultLLMProvider:    llm.ProviderOpenAI.String(),
		DefaultVectorProvider: VectorSqlite,
		Agent: AgentSettings{
			MaxIterations: 5,
			Temperature:   0.1,
			ContextLimit:  3,
		},
		ModelCacheTTL: storage.DefaultModelCacheTTL,
	}

	for _, p := range llm.AllProviderTypes {
		retries := defaultMaxRetries
		s.LLMProviders = append(s.LLMProviders, LLMProviderSettings{
			Name:           p.String(),
			APIKeyEnv:      p.EnvVar(),
			BaseURL:        p.DefaultBaseURL(),
			DefaultModel:   p.DefaultModel(),
			EmbeddingModel: p.DefaultEmbeddingModel(),
			Timeout:        int(p.DefaultTimeout() / time.Second),
			MaxRetries:     &retries,
		})
	}

	s.VectorProviders = []VectorProviderSettings{
		{Name: VectorSqlite, StoragePath: defaultDBPath, DefaultCollection: "default", Dimension: defaultDimension},
		{Name: VectorMemory, DefaultCollection: "default", Dimension: defaultDimension},
	}
	return s
}

// Load reads path over the defaults and applies environment overrides.
// An empty or missing path leaves the defaults in place.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, llm.NewConfigurationError("failed to read %s: %v", path, err)
		default:
			if err := s.merge(bytes.NewReader(data)); err != nil {
				return nil, llm.NewConfigurationError("failed to parse %s: %v", path, err)
			}
		}
	}

	if err := s.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// merge decodes YAML from r. Providers named in the file replace the
// defaults of the same name; new names are appended.
func (s *Settings) merge(r io.Reader) error {
	// Agent fields absent from the file keep their current values.
	file := Settings{Agent: s.Agent}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if file.AppName != "" {
		s.AppName = file.AppName
	}
	s.Debug = s.Debug || file.Debug
	if file.LogLevel != "" {
		s.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		s.LogFormat = file.LogFormat
	}
	if file.DefaultLLMProvider != "" {
		s.DefaultLLMProvider = file.DefaultLLMProvider
	}
	if file.DefaultVectorProvider != "" {
		s.DefaultVectorProvider = file.DefaultVectorProvider
	}
	s.Agent = file.Agent
	if file.ModelCacheTTL != 0 {
		s.ModelCacheTTL = file.ModelCacheTTL
	}

	for _, p := range file.LLMProviders {
		p.Name = canonical(p.Name)
		if i := s.llmIndex(p.Name); i >= 0 {
			s.LLMProviders[i] = fillLLM(p, s.LLMProviders[i])
		} else {
			s.LLMProviders = append(s.LLMProviders, p)
		}
	}
	for _, v := range file.VectorProviders {
		if i := s.vectorIndex(v.Name); i >= 0 {
			s.VectorProviders[i] = fillVector(v, s.VectorProviders[i])
		} else {
			s.VectorProviders = append(s.VectorProviders, v)
		}
	}
	return nil
}

// fillLLM completes p with the fields it leaves empty from base.
func fillLLM(p, base LLMProviderSettings) LLMProviderSettings {
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = base.APIKeyEnv
	}
	if p.BaseURL == "" {
		p.BaseURL = base.BaseURL
	}
	if p.DefaultModel == "" {
		p.DefaultModel = base.DefaultModel
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = base.EmbeddingModel
	}
	if len(p.AvailableModels) == 0 {
		p.AvailableModels = base.AvailableModels
	}
	if p.Timeout == 0 {
		p.Timeout = base.Timeout
	}
	if p.MaxRetries == nil {
		p.MaxRetries = base.MaxRetries
	}
	if p.RequestsPerMinute == 0 {
		p.RequestsPerMinute = base.RequestsPerMinute
	}
	return p
}

func fillVector(v, base VectorProviderSettings) VectorProviderSettings {
	if v.StoragePath == "" {
		v.StoragePath = base.StoragePath
	}
	if v.DefaultCollection == "" {
		v.DefaultCollection = base.DefaultCollection
	}
	if v.Dimension == 0 {
		v.Dimension = base.Dimension
	}
	return v
}

// applyEnv applies RAG07_* variables and the per-provider <NAME>_MODEL and
// <NAME>_BASE_URL overrides.
func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	environ := map[string]string{}
	for _, key := range []string{
		"RAG07_DEFAULT_LLM_PROVIDER", "RAG07_DEFAULT_VECTOR_PROVIDER", "RAG07_LOG_LEVEL",
		"RAG07_LOG_FORMAT", "RAG07_DEBUG", "RAG07_MAX_ITERATIONS", "RAG07_DB_PATH", "RAG07_MODEL_CACHE_TTL",
	} {
		if v, ok := lookup(key); ok && v != "" {
			environ[key] = v
		}
	}

	var o overrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return llm.NewConfigurationError("invalid environment: %v", err)
	}

	if o.DefaultLLMProvider != "" {
		s.DefaultLLMProvider = o.DefaultLLMProvider
	}
	if o.DefaultVectorProvider != "" {
		s.DefaultVectorProvider = o.DefaultVectorProvider
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		s.LogFormat = o.LogFormat
	}
	if o.Debug != nil {
		s.Debug = *o.Debug
	}
	if o.MaxIterations != 0 {
		s.Agent.MaxIterations = o.MaxIterations
	}
	if o.ModelCacheTTL != 0 {
		s.ModelCacheTTL = o.ModelCacheTTL
	}
	if o.DBPath != "" {
		if i := s.vectorIndex(VectorSqlite); i >= 0 {
			s.VectorProviders[i].StoragePath = o.DBPath
		}
	}

	for i := range s.LLMProviders {
		prefix := envPrefix(s.LLMProviders[i].Name)
		if v, ok := lookup(prefix + "_MODEL"); ok && v != "" {
			s.LLMProviders[i].DefaultModel = v
		}
		if v, ok := lookup(prefix + "_BASE_URL"); ok && v != "" {
			s.LLMProviders[i].BaseURL = v
		}
	}
	return nil
}

// normalize fills per-provider defaults and canonicalizes names.
func (s *Settings) normalize() {
	s.DefaultLLMProvider = canonical(s.DefaultLLMProvider)
	s.DefaultVectorProvider = strings.ToLower(strings.TrimSpace(s.DefaultVectorProvider))
	if s.Debug {
		s.LogLevel = "debug"
	}

	for i := range s.LLMProviders {
		p := &s.LLMProviders[i]
		p.Name = canonical(p.Name)
		if p.Timeout == 0 {
			p.Timeout = defaultTimeout
		}
		if p.MaxRetries == nil {
			retries := defaultMaxRetries
			p.MaxRetries = &retries
		}
	}
	for i := range s.VectorProviders {
		v := &s.VectorProviders[i]
		v.Name = strings.ToLower(strings.TrimSpace(v.Name))
		if v.DefaultCollection == "" {
			v.DefaultCollection = "default"
		}
		if v.Dimension == 0 {
			v.Dimension = defaultDimension
		}
	}
}

// Validate reports the first invalid setting as a *llm.ConfigurationError.
func (s *Settings) Validate() error {
	if _, err := s.LLMProvider(s.DefaultLLMProvider); err != nil {
		return llm.NewConfigurationError("default_llm_provider: unknown provider %q", s.DefaultLLMProvider)
	}
	if _, err := s.VectorProvider(s.DefaultVectorProvider); err != nil {
		return llm.NewConfigurationError("default_vector_provider: unknown provider %q", s.DefaultVectorProvider)
	}
	for _, p := range s.LLMProviders {
		if p.Name == "" {
			return llm.NewConfigurationError("llm_providers: provider without name")
		}
		if p.Timeout <= 0 {
			return llm.NewConfigurationError("%s: timeout must be positive, got %d", p.Name, p.Timeout)
		}
		if p.MaxRetries != nil && *p.MaxRetries < 0 {
			return llm.NewConfigurationError("%s: max_retries must not be negative", p.Name)
		}
	}
	for _, v := range s.VectorProviders {
		if v.Name != VectorSqlite && v.Name != VectorMemory {
			return llm.NewConfigurationError("vector_providers: unsupported backend %q", v.Name)
		}
		if v.Dimension <= 0 {
			return llm.NewConfigurationError("%s: dimension must be positive, got %d", v.Name, v.Dimension)
		}
	}
	if s.Agent.MaxIterations <= 0 {
		return llm.NewConfigurationError("agent.max_iterations must be positive, got %d", s.Agent.MaxIterations)
	}
	if s.Agent.ContextLimit <= 0 {
		return llm.NewConfigurationError("agent.context_limit must be positive, got %d", s.Agent.ContextLimit)
	}
	if s.ModelCacheTTL <= 0 {
		return llm.NewConfigurationError("model_cache_ttl must be positive, got %s", s.ModelCacheTTL)
	}
	return nil
}

// LLMProvider returns the settings of a provider by name or alias.
func (s *Settings) LLMProvider(name string) (LLMProviderSettings, error) {
	if i := s.llmIndex(canonical(name)); i >= 0 {
		return s.LLMProviders[i], nil
	}
	return LLMProviderSettings{}, fmt.Errorf("unknown provider: %q", name)
}

// VectorProvider returns the settings of a vector store by name.
func (s *Settings) VectorProvider(name string) (VectorProviderSettings, error) {
	if i := s.vectorIndex(strings.ToLower(strings.TrimSpace(name))); i >= 0 {
		return s.VectorProviders[i], nil
	}
	return VectorProviderSettings{}, fmt.Errorf("unknown vector provider: %q", name)
}

// ProviderConfigs converts the provider settings for llm.NewFactory.
func (s *Settings) ProviderConfigs() map[string]llm.ProviderConfig {
	configs := make(map[string]llm.ProviderConfig, len(s.LLMProviders))
	for _, p := range s.LLMProviders {
		configs[p.Name] = p.ProviderConfig()
	}
	return configs
}

// ProviderConfig converts to the adapter configuration.
func (p LLMProviderSettings) ProviderConfig() llm.ProviderConfig {
	retries := defaultMaxRetries
	if p.MaxRetries != nil {
		retries = *p.MaxRetries
	}
	return llm.ProviderConfig{
		Name:              p.Name,
		APIKeyEnv:         p.APIKeyEnv,
		BaseURL:           p.BaseURL,
		DefaultModel:      p.DefaultModel,
		EmbeddingModel:    p.EmbeddingModel,
		AvailableModels:   append([]string(nil), p.AvailableModels...),
		Timeout:           time.Duration(p.Timeout) * time.Second,
		MaxRetries:        retries,
		RequestsPerMinute: p.RequestsPerMinute,
	}
}

// ProviderNames lists configured LLM providers, sorted.
func (s *Settings) ProviderNames() []string {
	names := make([]string, 0, len(s.LLMProviders))
	for _, p := range s.LLMProviders {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func (s *Settings) llmIndex(name string) int {
	for i, p := range s.LLMProviders {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (s *Settings) vectorIndex(name string) int {
	for i, v := range s.VectorProviders {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// canonical maps aliases (claude, gpt, google, lm-studio) to provider names.
func canonical(name string) string {
	if p, err := llm.ParseProviderType(name); err == nil {
		return p.String()
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// envPrefix turns a provider name into its variable prefix: lmstudio -> LMSTUDIO.
func envPrefix(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(name))
}
