package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/apicore"
	"github.com/sagarc03/apicore/cache"
	"github.com/sagarc03/apicore/config"
)

const cacheClearedMessage = "Successfully cleared all available caches!"

var cacheClearCmd = &cobra.Command{
	Use:   "cache:clear",
	Short: "Clear the configuration and request caches",
	Long: `Clear every cache bucket: the parsed routes configuration and the
responses stored by the request_cache middleware.

Failures, including an invalid configuration, are logged; the command
always reports success and exits 0.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationBestEffort: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		clearCaches(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context) (apicore.CacheStore, error) {
			cfg, err := config.FromContext(ctx)
			if err != nil {
				return nil, err
			}
			return cache.New(ctx, cfg.Cache)
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheClearCmd)
}

// clearCaches opens the store, clears every bucket and prints the fixed
// success line. Errors are only logged.
func clearCaches(ctx context.Context, out io.Writer, open func(context.Context) (apicore.CacheStore, error)) {
	store, err := open(ctx)
	if err != nil {
		slog.Error("open cache", "err", err)
	} else {
		if err := apicore.ClearCaches(ctx, store); err != nil {
			slog.Error("clear caches", "err", err)
		}
		if err := store.Close(); err != nil {
			slog.Warn("close cache", "err", err)
		}
	}

	_, _ = fmt.Fprintln(out, cacheClearedMessage)
}
