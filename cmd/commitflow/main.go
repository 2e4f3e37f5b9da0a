// Command commitflow runs the daily GitHub commits pipeline and its ops API
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"commitflow/internal/core/version"
	"commitflow/internal/platform/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "commitflow",
	Short:         "Daily GitHub commits ETL: extract, transform, load",
	Version:       version.Info().Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnv(envFile, cmd.Flags().Changed("env-file")); err != nil {
			return err
		}
		opt := logger.FromEnv()
		if opt.Component == "" {
			opt.Component = cmd.Name()
		}
		// stdout carries command output
		opt.Writer = os.Stderr
		logger.Init(opt)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading config")
	rootCmd.AddCommand(runCmd, backfillCmd, serveCmd, checkCmd)
}

// loadEnv loads path into the environment without overriding set variables.
// A missing default file is not an error.
func loadEnv(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
