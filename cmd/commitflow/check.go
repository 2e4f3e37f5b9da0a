package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"commitflow/internal/platform/logger"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Open every backend and the bucket, ping them, and report",
	RunE:  runCheck,
}

type checkReport struct {
	Store  string `json:"store"`
	Bucket string `json:"bucket"`
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := bootstrap(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer closeApp(a)

	rep := checkReport{Store: "ok", Bucket: "ok"}
	serr := a.store.Guard(ctx)
	if serr != nil {
		rep.Store = serr.Error()
	}
	berr := a.bucket.Ping(ctx)
	if berr != nil {
		rep.Bucket = berr.Error()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		logger.C(ctx).Error().Err(err).Msg("print check failed")
	}
	if err := errors.Join(serr, berr); err != nil {
		return fmt.Errorf("check: %w", err)
	}
	return nil
}
