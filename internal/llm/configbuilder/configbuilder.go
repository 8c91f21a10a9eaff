package configbuilder

import (
	"fmt"

	"github.com/ahnaf005/llm-bug-report/internal/config"
	"github.com/ahnaf005/llm-bug-report/internal/llm"
	llmgemini "github.com/ahnaf005/llm-bug-report/internal/llm/providers/gemini"
	llmollama "github.com/ahnaf005/llm-bug-report/internal/llm/providers/ollama"
	llmopenai "github.com/ahnaf005/llm-bug-report/internal/llm/providers/openai"
)

// BuildRegistryFromConfig constructs a registry and providers from config.
func BuildRegistryFromConfig(cfg *config.Config) (*llm.Registry, error) {
	reg := llm.NewRegistry()
	reg.SetSampling(llm.Sampling{
		Temperature: cfg.Generation.Temperature,
		TopP:        cfg.Generation.TopP,
		TopK:        cfg.Generation.TopK,
	})

	for name, bCfg := range cfg.Backends {
		p, err := buildProvider(name, bCfg)
		if err != nil {
			return nil, err
		}
		reg.Register(llm.Backend{
			Name:            name,
			Provider:        p,
			Model:           bCfg.Model,
			MaxPromptTokens: bCfg.MaxPromptTokens,
		}, bCfg.Default)
	}

	if _, err := reg.Resolve(""); err != nil {
		return nil, err
	}

	return reg, nil
}

func buildProvider(name string, cfg config.BackendConfig) (llm.Provider, error) {
	switch cfg.Type {
	case "openai":
		return llmopenai.NewProvider(name, cfg.BaseURL, cfg.ResolveAPIKey(), cfg.Timeout), nil
	case "gemini":
		return llmgemini.NewProvider(name, cfg.BaseURL, cfg.ResolveAPIKey(), cfg.Timeout), nil
	case "ollama":
		return llmollama.NewProvider(name, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q for backend %s", cfg.Type, name)
	}
}
