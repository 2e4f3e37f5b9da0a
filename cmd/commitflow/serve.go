package main

import (
	"commitflow/internal/platform/logger"
	phttp "commitflow/internal/platform/net/http"
	"commitflow/internal/services/api"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ops API: health, run history and manual triggers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := bootstrap(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer closeApp(a)

	apiCfg := a.cfg.Prefix("CORE_API_")
	srv := phttp.NewServer(apiCfg)

	mounted, err := api.Mount(ctx, srv.Router(), api.Options{
		Deps:           a.deps,
		Pipeline:       a.pipeline,
		Plan:           a.plan,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	})
	if err != nil {
		return err
	}

	err = srv.Run(ctx)
	stop()
	// queued runs observe the cancelled context and return promptly
	mounted.Wait()
	logger.C(ctx).Info().Msg("serve stopped")
	return err
}
