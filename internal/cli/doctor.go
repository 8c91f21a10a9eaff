package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDoctorCmd returns a health-check command validating config and environment.
func NewDoctorCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config OK. Backends: %d, default: %s\n", len(cfg.Backends), cfg.DefaultBackend())
			fmt.Fprintf(out, "Artifact service: %s (token set: %v)\n", cfg.Artifacts.BaseURL, cfg.Artifacts.Token != "")

			reg, err := opts.newRegistry(cfg)
			if err != nil {
				return err
			}
			t := newTable(out, "Backend", "Type", "Model", "Prompt ceiling", "Credential")
			for _, name := range reg.Names() {
				b := cfg.Backends[name]
				cred := "missing"
				switch {
				case b.Type == "ollama":
					cred = "n/a"
				case b.ResolveAPIKey() != "":
					cred = "present"
				}
				ceiling := "none"
				if b.MaxPromptTokens > 0 {
					ceiling = fmt.Sprintf("%d tokens", b.MaxPromptTokens)
				}
				t.AppendRow([]any{name, b.Type, b.Model, ceiling, cred})
			}
			t.Render()
			return nil
		},
	}
}
