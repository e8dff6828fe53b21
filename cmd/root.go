package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var (
	routesPath   string
	secretsFile  string
	configFile   string
	outputFormat string
	logLevel     string
	logFormat    string

	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "relay: route Slack commands and webhooks to CI and issue trackers",
	Long: "relay answers Slack slash commands and HTTP hooks by calling CircleCI, GitHub, YouTrack " +
		"and Slack, acknowledging right away and delivering the result once it is ready.",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&routesPath, "routes", "./routes.yaml", "routes file or directory of route files")
	rootCmd.PersistentFlags().StringVar(&secretsFile, "secrets-file", "", "path to .env-style secrets file")
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "path to a flat YAML file of configuration keys")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return xerrors.Errorf("invalid --log-level: %w", err)
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)

	switch logFormat {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return xerrors.Errorf("invalid --log-format %q: must be text or json", logFormat)
	}
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}
