package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List routed commands and hooks",
	Args:  cobra.NoArgs,
	RunE:  listRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func listRoutes(cmd *cobra.Command, args []string) error {
	routes, err := loadRoutes()
	if err != nil {
		return xerrors.Errorf("loading routes: %w", err)
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tROUTE\tPIPELINES\tDESCRIPTION")
	for _, c := range routes.Commands {
		fmt.Fprintf(w, "command\t%s\t%s\t%s\n", c.Command, strings.Join(c.Pipelines, ","), c.Description)
	}
	for _, h := range routes.Hooks {
		fmt.Fprintf(w, "hook\t/hooks/%s\t%s\t%s\n", h.Name, h.Pipeline, h.Description)
	}
	return w.Flush()
}
