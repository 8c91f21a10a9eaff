package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahnaf005/llm-bug-report/internal/artifact"
	"github.com/ahnaf005/llm-bug-report/internal/budget"
	"github.com/ahnaf005/llm-bug-report/internal/selector"
)

// NewSelectCmd draws the shortlist and writes it to the configured file.
func NewSelectCmd(opts *Options) *cobra.Command {
	var (
		count     int
		maxTokens int
		seed      uint64
		outFile   string
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select artifacts whose merged log and diff fit the token budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			sel := s.cfg.Selection
			if cmd.Flags().Changed("count") {
				sel.TargetCount = count
			}
			if cmd.Flags().Changed("max-tokens") {
				sel.MaxTokens = maxTokens
			}
			if cmd.Flags().Changed("seed") {
				sel.Seed = seed
			}
			if cmd.Flags().Changed("output") {
				sel.OutputFile = outFile
			}

			runner := selector.New(
				opts.newArtifacts(s.cfg),
				budget.New(s.cfg.Budget.CharsPerToken),
				selector.Options{TargetCount: sel.TargetCount, Budget: sel.MaxTokens},
				selector.WithSeed(sel.Seed),
				selector.WithLogger(s.logger),
				selector.WithMetrics(s.metrics),
			)
			res, err := runner.Run(cmd.Context(), artifact.Query{
				Language:              sel.Language,
				MinReproduceSuccesses: sel.MinReproduceSuccesses,
			})
			if err != nil {
				return fmt.Errorf("select artifacts: %w", err)
			}

			out := cmd.OutOrStdout()
			printOutcomes(cmd, res)

			err = selector.WriteShortlist(sel.OutputFile, res.IDs)
			if errors.Is(err, selector.ErrEmptyShortlist) {
				fmt.Fprintln(out, "No artifacts satisfied the token limit.")
				return nil
			}
			if err != nil {
				return err
			}
			s.logger.Info("shortlist written", zap.String("path", sel.OutputFile), zap.Int("count", len(res.IDs)))
			fmt.Fprintf(out, "Saved %d artifacts to %s\n", len(res.IDs), sel.OutputFile)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Number of artifacts to select (default from config)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Token budget per merged document (default from config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Shuffle seed; 0 seeds from the clock")
	cmd.Flags().StringVar(&outFile, "output", "", "Shortlist file (default from config)")
	return cmd
}

func printOutcomes(cmd *cobra.Command, res selector.Result) {
	outcomes := make([]string, 0, len(res.Outcomes))
	for o := range res.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)

	t := newTable(cmd.OutOrStdout(), "Outcome", "Candidates")
	for _, o := range outcomes {
		t.AppendRow([]any{o, res.Outcomes[o]})
	}
	t.AppendFooter([]any{"considered", res.Considered})
	t.Render()
}
