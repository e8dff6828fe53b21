package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"
)

var (
	commandText string
	commandUser string
)

var runCmd = &cobra.Command{
	Use:   "run <command> [text...]",
	Short: "Run a routed slash command locally and print its answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCommand,
}

func init() {
	runCmd.Flags().StringVar(&commandText, "text", "", "command text, as typed after the command")
	runCmd.Flags().StringVar(&commandUser, "user", "", "user name to run as (defaults to the current user)")
	rootCmd.AddCommand(runCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	catalog, reg, err := loadCatalog()
	if err != nil {
		return err
	}

	name := commandUser
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		}
	}

	text := commandText
	if text == "" && len(args) > 1 {
		text = strings.Join(args[1:], " ")
	}

	resp, err := catalog.RunCommand(context.Background(), newRuntime(reg, nil), args[0], name, text)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
