package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/apicore/config"
)

var version = "dev"

// annotationBestEffort marks commands that run without a valid configuration.
const annotationBestEffort = "apicore/best-effort"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "apicore",
	Short:   "Configuration driven HTTP API server",
	Long: `apicore serves HTTP routes declared in a YAML routes file. Each route
binds a path and its methods to a named action and an ordered list of
named middlewares. Access tokens are issued to registered API consumers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		files, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			if cmd.Annotations[annotationBestEffort] == "true" {
				slog.Error("load config", "err", err)
				return nil
			}
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, may be repeated (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("env", "", "environment: dev or prod (env: APICORE_ENV)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: APICORE_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("cache-type", "", "cache backend: memory, redis, sqlite, postgres (env: APICORE_CACHE_TYPE)")
	rootCmd.PersistentFlags().String("cache-dsn", "", "cache connection string (env: APICORE_CACHE_DSN)")
	rootCmd.PersistentFlags().String("routes", "", "routes file name (default: routes.yaml, env: APICORE_ROUTES_FILE)")
	rootCmd.PersistentFlags().String("routes-dir", "", "directory holding the routes file (env: APICORE_ROUTES_DIR)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
