package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"relay/internal/pipelines"
)

var describeCmd = &cobra.Command{
	Use:   "describe <pipeline>",
	Short: "Show a pipeline's usage and configuration keys",
	Args:  cobra.ExactArgs(1),
	RunE:  describePipeline,
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

func describePipeline(cmd *cobra.Command, args []string) error {
	def, ok := pipelines.Lookup(args[0])
	if !ok {
		var names []string
		for _, d := range pipelines.Definitions() {
			names = append(names, d.Name)
		}
		return xerrors.Errorf("pipeline %q not found (known: %s)", args[0], strings.Join(names, ", "))
	}

	reg, err := defaultRegistry()
	if err != nil {
		return err
	}

	type keyStatus struct {
		Key string `json:"key"`
		Set bool   `json:"set"`
	}
	var keys []keyStatus
	for _, k := range def.RequiredKeys() {
		_, set := reg.Get(k)
		keys = append(keys, keyStatus{Key: k, Set: set})
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			pipelines.Definition
			Keys []keyStatus `json:"keys"`
		}{def, keys})
	}

	fmt.Printf("Name:        %s\n", def.Name)
	fmt.Printf("Kind:        %s\n", def.Kind)
	fmt.Printf("Usage:       %s\n", def.Usage)
	fmt.Printf("Description: %s\n", def.Description)
	if def.Base != "" {
		fmt.Printf("Based on:    %s\n", def.Base)
	}

	fmt.Println("\nConfiguration:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\tSET")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%v\n", k.Key, k.Set)
	}
	return w.Flush()
}
