package connector

import (
	"io"
	"sync"

	"github.com/hashicorp/go-metrics"
	"github.com/sirupsen/logrus"

	"relay/internal/async"
	"relay/internal/config"
	"relay/internal/transport"
)

// Runtime carries the ambient collaborators every slot may use. It is built
// once at process start and shared by all runs. Nil fields are replaced with
// defaults when a run starts.
type Runtime struct {
	// Env is consulted by request builders for tokens and hosts. Defaults to
	// the process environment.
	Env config.Registry

	// Transport performs downstream HTTP calls.
	Transport *transport.Client

	// Logger defaults to an output-discarding logger.
	Logger *logrus.Entry

	// Scheduler runs background deliveries. Defaults to one goroutine per
	// task.
	Scheduler async.Scheduler

	// Metrics receives run counters and timings. Defaults to a blackhole.
	Metrics metrics.MetricSink
}

var defaultTransport = sync.OnceValue(func() *transport.Client { return transport.New() })

func (rt *Runtime) withDefaults() *Runtime {
	var out Runtime
	if rt != nil {
		out = *rt
	}
	if out.Env == nil {
		out.Env = config.Environment
	}
	if out.Logger == nil {
		out.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	if out.Scheduler == nil {
		out.Scheduler = async.Goroutines
	}
	if out.Transport == nil {
		out.Transport = defaultTransport()
	}
	if out.Metrics == nil {
		out.Metrics = &metrics.BlackholeSink{}
	}
	return &out
}
