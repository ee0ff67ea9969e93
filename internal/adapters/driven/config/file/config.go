package file

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// AppDirName is the directory under the user's home holding config,
// prompts and data.
const AppDirName = ".filings"

// Secrets are the API keys read from the environment. They only fill
// keys the config file leaves empty.
type Secrets struct {
	OpenAI    string `envconfig:"OPENAI_API_KEY"`
	Anthropic string `envconfig:"ANTHROPIC_API_KEY"`
	Gemini    string `envconfig:"GEMINI_API_KEY"`
	Qdrant    string `envconfig:"QDRANT_API_KEY"`
	Weaviate  string `envconfig:"WEAVIATE_API_KEY"`
}

// LoadSecrets reads Secrets from the environment.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return s, fmt.Errorf("%w: read environment: %w", domain.ErrConfiguration, err)
	}
	return s, nil
}

// DefaultDir returns ~/.filings.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, AppDirName), nil
}

// DefaultConfigPath returns ~/.filings/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadConfig decodes the TOML file at path over domain.DefaultConfig and
// fills secrets from the environment. A missing file yields the defaults.
// Unknown keys are rejected. The result is not validated; callers run
// Config.Validate.
func LoadConfig(path string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, path, err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, path, err)
		}
	}

	secrets, err := LoadSecrets()
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg, secrets)

	if err := resolvePaths(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv fills empty API keys with the secret of the configured provider.
func applyEnv(cfg *domain.Config, s Secrets) {
	providerKey := map[domain.AIProvider]string{
		domain.AIProviderOpenAI:    s.OpenAI,
		domain.AIProviderAnthropic: s.Anthropic,
		domain.AIProviderGemini:    s.Gemini,
	}
	backendKey := map[domain.VectorBackend]string{
		domain.VectorBackendQdrant:   s.Qdrant,
		domain.VectorBackendWeaviate: s.Weaviate,
	}
	cfg.Embedding.APIKey = cmp.Or(cfg.Embedding.APIKey, providerKey[cfg.Embedding.Provider])
	cfg.LLM.APIKey = cmp.Or(cfg.LLM.APIKey, providerKey[cfg.LLM.Provider])
	cfg.VectorStore.APIKey = cmp.Or(cfg.VectorStore.APIKey, backendKey[cfg.VectorStore.Backend])
}

// resolvePaths expands a leading ~ and defaults the data directory.
func resolvePaths(cfg *domain.Config) error {
	if cfg.Storage.DataDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		cfg.Storage.DataDir = filepath.Join(dir, "data")
	}
	var err error
	if cfg.Storage.DataDir, err = expandHome(cfg.Storage.DataDir); err != nil {
		return err
	}
	cfg.Storage.Manifest, err = expandHome(cfg.Storage.Manifest)
	return err
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// EncodeConfig renders cfg as TOML with API keys masked.
func EncodeConfig(cfg domain.Config) ([]byte, error) {
	cfg.Embedding.APIKey = mask(cfg.Embedding.APIKey)
	cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
	cfg.VectorStore.APIKey = mask(cfg.VectorStore.APIKey)
	return toml.Marshal(cfg)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
