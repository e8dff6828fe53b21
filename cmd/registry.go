package cmd

import (
	"github.com/hashicorp/go-metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"relay/internal/config"
	"relay/internal/connector"
	"relay/internal/loader"
	"relay/internal/pipelines"
	"relay/internal/transport"
	"relay/internal/types"
)

// defaultRegistry chains the configuration sources: the secrets file wins
// over the config file, which wins over the process environment.
func defaultRegistry() (config.Registry, error) {
	var chain config.Chain
	if secretsFile != "" {
		secrets, err := config.LoadSecrets(secretsFile)
		if err != nil {
			return nil, xerrors.Errorf("loading secrets: %w", err)
		}
		chain = append(chain, secrets)
	}
	if configFile != "" {
		file, err := config.LoadFile(configFile)
		if err != nil {
			return nil, xerrors.Errorf("loading config file: %w", err)
		}
		chain = append(chain, file)
	}
	return append(chain, config.Environment), nil
}

func loadRoutes() (*types.RouteFile, error) {
	routes, err := loader.LoadRoutes(routesPath)
	if err != nil {
		return nil, err
	}
	if err := loader.ValidateRoutes(routes); err != nil {
		return nil, err
	}
	return routes, nil
}

func loadCatalog() (*pipelines.Catalog, config.Registry, error) {
	reg, err := defaultRegistry()
	if err != nil {
		return nil, nil, err
	}
	routes, err := loadRoutes()
	if err != nil {
		return nil, nil, err
	}
	catalog, err := pipelines.Build(reg, routes)
	if err != nil {
		return nil, nil, xerrors.Errorf("building pipelines: %w", err)
	}
	return catalog, reg, nil
}

func newRuntime(reg config.Registry, sink metrics.MetricSink) *connector.Runtime {
	log := logrus.NewEntry(logger)
	return &connector.Runtime{
		Env:       reg,
		Transport: transport.New(transport.WithLogger(log.WithField("component", "transport"))),
		Logger:    log,
		Metrics:   sink,
	}
}
