package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahnaf005/llm-bug-report/internal/budget"
	"github.com/ahnaf005/llm-bug-report/internal/output"
	"github.com/ahnaf005/llm-bug-report/internal/reporter"
	"github.com/ahnaf005/llm-bug-report/internal/selector"
)

// NewReportCmd generates a bug report for one artifact or every artifact of a shortlist.
func NewReportCmd(opts *Options) *cobra.Command {
	var (
		backend   string
		shortlist string
	)

	cmd := &cobra.Command{
		Use:   "report <artifact-id>",
		Short: "Generate a bug report from an artifact's build log and diff",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids []string
			switch {
			case len(args) == 1:
				ids = args
			case shortlist != "":
				var err error
				if ids, err = selector.ReadShortlist(shortlist); err != nil {
					return err
				}
			default:
				return cmd.Usage()
			}

			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			reg, err := opts.newRegistry(s.cfg)
			if err != nil {
				return err
			}
			store, err := output.NewStore(s.cfg.Output.Dir)
			if err != nil {
				return err
			}
			gen := reporter.New(
				opts.newArtifacts(s.cfg),
				reg,
				budget.New(s.cfg.Budget.CharsPerToken),
				store,
				reporter.WithLogger(s.logger),
				reporter.WithMetrics(s.metrics),
			)

			out := cmd.OutOrStdout()
			var failed int
			for _, id := range ids {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				rep, err := gen.Generate(cmd.Context(), id, backend)
				if err != nil {
					if len(ids) == 1 {
						return fmt.Errorf("report %s: %w", id, err)
					}
					failed++
					s.logger.Error("report failed", zap.String("artifact", id), zap.Error(err))
					fmt.Fprintf(out, "FAILED %s: %v\n", id, err)
					continue
				}
				fmt.Fprintf(out, "Bug report saved to: %s\n", rep.ReportPath)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d reports failed", failed, len(ids))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Backend name from config (default: the backend marked default)")
	cmd.Flags().StringVar(&shortlist, "shortlist", "", "Generate reports for every identifier in this file")
	return cmd
}
