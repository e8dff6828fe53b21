package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"relay/internal/pipelines"
)

var checkCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Build every routed pipeline and report all configuration problems",
	Args:  cobra.NoArgs,
	RunE:  checkConfig,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkConfig(cmd *cobra.Command, args []string) error {
	reg, err := defaultRegistry()
	if err != nil {
		return err
	}
	routes, err := loadRoutes()
	if err != nil {
		return err
	}

	catalog, buildErr := pipelines.Build(reg, routes)
	var problems []string
	if buildErr != nil {
		var merr *multierror.Error
		if errors.As(buildErr, &merr) {
			for _, e := range merr.Errors {
				problems = append(problems, e.Error())
			}
		} else {
			problems = append(problems, buildErr.Error())
		}
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"ok": buildErr == nil, "problems": problems}); err != nil {
			return err
		}
	} else if buildErr == nil {
		fmt.Printf("Configuration OK: %d command(s), %d hook(s).\n", len(catalog.Commands.List()), len(catalog.Hooks.List()))
	} else {
		fmt.Printf("Found %d configuration problem(s):\n", len(problems))
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
	}

	if buildErr != nil {
		return xerrors.New("configuration check failed")
	}
	return nil
}
