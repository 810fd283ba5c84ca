package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sagarc03/apicore/config"
	apihttp "github.com/sagarc03/apicore/http"
)

var routesListCmd = &cobra.Command{
	Use:   "routes:list",
	Short: "Validate the routes file and print the route table",
	Long: `Load the routes file exactly as serve does, resolve every action and
middleware and print one line per registered method and path.

Exits non-zero when the routes file is invalid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if err := a.router.RegisterRoutes(cmd.Context()); err != nil {
			return err
		}

		return printRoutes(cmd.OutOrStdout(), a.router.Routes())
	},
}

func init() {
	rootCmd.AddCommand(routesListCmd)
}

func printRoutes(w io.Writer, routes []apihttp.RegisteredRoute) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tMETHOD\tPATH\tACTION\tMIDDLEWARES")
	for _, r := range routes {
		mws := strings.Join(r.Middlewares, ",")
		if mws == "" {
			mws = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Key, r.Method, r.Pattern, r.Action, mws)
	}
	return tw.Flush()
}
