package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config describes the top-level application configuration loaded from YAML and ENV.
type Config struct {
	Version    string                   `mapstructure:"version"`
	Artifacts  ArtifactsConfig          `mapstructure:"artifacts"`
	Backends   map[string]BackendConfig `mapstructure:"backends"`
	Generation GenerationConfig         `mapstructure:"generation"`
	Selection  SelectionConfig          `mapstructure:"selection"`
	Budget     BudgetConfig             `mapstructure:"budget"`
	Output     OutputConfig             `mapstructure:"output"`
	Logging    LoggingConfig            `mapstructure:"logging"`
	Metrics    MetricsConfig            `mapstructure:"metrics"`
}

// ArtifactsConfig points at the artifact metadata service.
type ArtifactsConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 = unlimited
	Burst             int           `mapstructure:"burst"`
}

// BackendConfig represents one generative backend (openai, gemini, ollama).
type BackendConfig struct {
	Type            string        `mapstructure:"type"`
	Model           string        `mapstructure:"model"`
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`     // takes precedence over api_key_env
	APIKeyEnv       string        `mapstructure:"api_key_env"` // env var holding the key
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxPromptTokens int           `mapstructure:"max_prompt_tokens"` // 0 = no ceiling
	Default         bool          `mapstructure:"default"`
}

// ResolveAPIKey returns the configured key, reading api_key_env when no literal key is set.
func (b BackendConfig) ResolveAPIKey() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	env := b.APIKeyEnv
	if env == "" {
		env = defaultKeyEnv(b.Type)
	}
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

func defaultKeyEnv(backendType string) string {
	switch backendType {
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINIAI_API_KEY"
	default:
		return ""
	}
}

// GenerationConfig pins decoding parameters shared by every backend.
type GenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	TopK        int     `mapstructure:"top_k"`
}

// SelectionConfig drives the shortlist run.
type SelectionConfig struct {
	TargetCount           int    `mapstructure:"target_count"`
	MaxTokens             int    `mapstructure:"max_tokens"`
	Language              string `mapstructure:"language"`
	MinReproduceSuccesses int    `mapstructure:"min_reproduce_successes"`
	OutputFile            string `mapstructure:"output_file"`
	Seed                  uint64 `mapstructure:"seed"` // 0 = seeded from the clock
}

// BudgetConfig holds the character-per-token heuristic.
type BudgetConfig struct {
	CharsPerToken int `mapstructure:"chars_per_token"`
}

// OutputConfig sets where merge and report files go.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// MetricsConfig configures the optional Pushgateway push at the end of a run.
type MetricsConfig struct {
	PushURL string `mapstructure:"push_url"`
	Job     string `mapstructure:"job"`
}

// Load reads configuration from the provided path or defaults to configs/config.yaml.
// Environment variables override file values (prefix: BUGREPORT_, dots replaced with underscores).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BUGREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("artifacts.token", "BUGREPORT_ARTIFACTS_TOKEN", "BUGSWARM_TOKEN")

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && path == "" {
			v.SetConfigName("config.example")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults mirrors the values the selection and report scripts were tuned with.
func setDefaults(v *viper.Viper) {
	v.SetDefault("artifacts.base_url", "https://api.bugswarm.org/v1")
	v.SetDefault("artifacts.timeout", 60*time.Second)
	v.SetDefault("artifacts.requests_per_second", 0)
	v.SetDefault("artifacts.burst", 1)

	v.SetDefault("generation.temperature", 0.0)
	v.SetDefault("generation.top_p", 1.0)
	v.SetDefault("generation.top_k", 1)

	v.SetDefault("selection.target_count", 40)
	v.SetDefault("selection.max_tokens", 200_000)
	v.SetDefault("selection.language", "Java")
	v.SetDefault("selection.min_reproduce_successes", 1)
	v.SetDefault("selection.output_file", "java_artifacts_40.txt")
	v.SetDefault("selection.seed", 0)

	v.SetDefault("budget.chars_per_token", 4)

	v.SetDefault("output.dir", "output")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.push_url", "")
	v.SetDefault("metrics.job", "bugreport")
}

// DefaultBackend returns the name of the backend marked default.
func (c *Config) DefaultBackend() string {
	for name, b := range c.Backends {
		if b.Default {
			return name
		}
	}
	return ""
}

// Validate performs basic sanity checks on configuration values.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("at least one backend must be configured")
	}

	defaults := 0
	for name, b := range c.Backends {
		switch b.Type {
		case "openai", "gemini", "ollama":
		case "":
			return fmt.Errorf("backend %q must define type", name)
		default:
			return fmt.Errorf("backend %q has unknown type %q", name, b.Type)
		}
		if strings.TrimSpace(b.Model) == "" {
			return fmt.Errorf("backend %q must define model", name)
		}
		if b.MaxPromptTokens < 0 {
			return fmt.Errorf("backend %q max_prompt_tokens cannot be negative", name)
		}
		if b.Default {
			defaults++
		}
	}
	if defaults != 1 {
		return fmt.Errorf("exactly one backend must be marked default, got %d", defaults)
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return errors.New("generation.temperature must be within [0,2]")
	}
	if c.Generation.TopP <= 0 || c.Generation.TopP > 1 {
		return errors.New("generation.top_p must be within (0,1]")
	}
	if c.Generation.TopK < 0 {
		return errors.New("generation.top_k must be >= 0")
	}

	if c.Selection.TargetCount < 0 {
		return errors.New("selection.target_count must be >= 0")
	}
	if c.Selection.MaxTokens <= 0 {
		return errors.New("selection.max_tokens must be > 0")
	}
	if c.Selection.MinReproduceSuccesses < 0 {
		return errors.New("selection.min_reproduce_successes must be >= 0")
	}
	if strings.TrimSpace(c.Selection.OutputFile) == "" {
		return errors.New("selection.output_file is required")
	}

	if c.Budget.CharsPerToken <= 0 {
		return errors.New("budget.chars_per_token must be > 0")
	}

	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir is required")
	}

	if c.Artifacts.RequestsPerSecond < 0 {
		return errors.New("artifacts.requests_per_second must be >= 0")
	}

	return nil
}
