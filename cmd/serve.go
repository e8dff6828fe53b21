package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"relay/internal/server"
)

var (
	servePort    int
	replyTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the command and hook server",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on")
	serveCmd.Flags().DurationVar(&replyTimeout, "reply-timeout", server.DefaultReplyTimeout, "how long a request waits for its answer")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	catalog, reg, err := loadCatalog()
	if err != nil {
		return err
	}

	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	rt := newRuntime(reg, sink)
	srv := server.New(catalog, rt,
		server.WithMetrics(sink),
		server.WithLogger(rt.Logger.WithField("component", "server")),
		server.WithReplyTimeout(replyTimeout),
	)

	addr := fmt.Sprintf(":%d", servePort)
	log := rt.Logger
	for _, c := range catalog.Routes.Commands {
		log.WithFields(logrus.Fields{"command": c.Command, "pipelines": c.Pipelines}).Info("routed command")
	}
	for _, h := range catalog.Routes.Hooks {
		log.WithFields(logrus.Fields{"path": "/hooks/" + h.Name, "pipeline": h.Pipeline}).Info("routed hook")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}
