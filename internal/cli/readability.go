package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahnaf005/llm-bug-report/internal/output"
	"github.com/ahnaf005/llm-bug-report/internal/readability"
)

// NewReadabilityCmd scores the stored reports of one artifact.
func NewReadabilityCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "readability <artifact-id>",
		Short: "Compute Flesch reading ease for an artifact's reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Usage()
			}

			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			store, err := output.NewStore(s.cfg.Output.Dir)
			if err != nil {
				return err
			}
			scores, path, err := readability.Write(store, args[0], nil, s.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			t := newTable(out, "Report", "Flesch reading ease")
			for _, sc := range scores {
				value := "missing"
				if sc.Value != nil {
					value = fmt.Sprintf("%.2f", *sc.Value)
				}
				t.AppendRow([]any{sc.Variant.Name, value})
			}
			t.Render()
			fmt.Fprintf(out, "Saved readability report to: %s\n", path)
			return nil
		},
	}
}
