package main

import (
	"commitflow/internal/platform/logger"

	"github.com/spf13/cobra"
)

var (
	backfillStart string
	backfillEnd   string
)

var backfillCmd = &cobra.Command{
	Use:     "backfill",
	Short:   "Run every logical date in [start, end]",
	Example: `  commitflow backfill --start 2024-01-01 --end 2024-01-31`,
	RunE:    runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillStart, "start", "", "first logical date YYYY-MM-DD")
	backfillCmd.Flags().StringVar(&backfillEnd, "end", "", "last logical date YYYY-MM-DD (inclusive)")
	_ = backfillCmd.MarkFlagRequired("start")
	_ = backfillCmd.MarkFlagRequired("end")
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	start, err := dateFlag("start", backfillStart)
	if err != nil {
		return err
	}
	end, err := dateFlag("end", backfillEnd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := bootstrap(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer closeApp(a)

	drv := a.pipeline.Driver()
	// reject a bad range before touching any backend
	if _, err := drv.Dates(start, end); err != nil {
		return err
	}

	runs, err := drv.RunRange(ctx, start, end)
	if werr := printRuns(cmd.OutOrStdout(), runs...); werr != nil {
		logger.C(ctx).Error().Err(werr).Msg("print runs failed")
	}
	return err
}
