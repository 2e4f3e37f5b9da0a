package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	pipedom "commitflow/internal/services/pipeline/domain"

	"github.com/spf13/cobra"
)

var runDate string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extract, transform and load for one logical date",
	Example: `  commitflow run --date 2024-01-15
  commitflow run            # yesterday (UTC)`,
	RunE: runDay,
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "logical date YYYY-MM-DD (default: yesterday UTC)")
}

func runDay(cmd *cobra.Command, _ []string) error {
	d, err := dateFlag("date", runDate)
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

	run, err := a.pipeline.Driver().Run(ctx, d)
	if werr := printRuns(cmd.OutOrStdout(), run); werr != nil {
		logger.C(ctx).Error().Err(werr).Msg("print run failed")
	}
	return err
}

// dateFlag parses a YYYY-MM-DD flag; empty means yesterday in UTC
func dateFlag(name, v string) (day.Date, error) {
	if v == "" {
		return day.Of(time.Now().UTC().AddDate(0, 0, -1)), nil
	}
	d, err := day.Parse(v)
	if err != nil {
		return day.Date{}, perr.WithField(err, name)
	}
	return d, nil
}

// signalContext cancels on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func closeApp(a *app) {
	if err := a.Close(context.Background()); err != nil {
		logger.Get().Error().Err(err).Msg("close failed")
	}
}

// printRuns writes runs as indented JSON, one document per call
func printRuns(w io.Writer, runs ...pipedom.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(runs) == 1 {
		return enc.Encode(runs[0])
	}
	return enc.Encode(runs)
}
