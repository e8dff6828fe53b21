// Package connector implements the pipeline that turns one inbound payload
// into a downstream call and maps the result back into the shape the caller
// understands.
//
// A Connector is assembled from six independently pluggable slots:
//
//   - Check answers immediately when the payload fails pre-flight validation.
//   - Request either answers immediately (Left) or builds the downstream
//     request (Right).
//   - Call performs the downstream interaction. It is only invoked for a
//     Right request and reports every failure as a Left.
//   - Response maps the downstream response back into the origin's shape.
//   - Deliver posts the final response to the caller's callback address.
//   - Instant is the acknowledgement returned while delivery is pending.
//
// Connectors validate their configuration keys when built and never change
// afterwards; one Connector serves any number of concurrent runs.
package connector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"relay/internal/async"
	"relay/internal/config"
	"relay/internal/either"
	"relay/internal/transport"
)

// Domain is implemented by every origin payload and downstream request
// type. ConfigKeys is called on the zero value, so implementations must use
// a value receiver and must not depend on the receiver's fields.
type Domain interface {
	ConfigKeys() config.KeySet
}

// Callbacker is implemented by payloads that may carry an out-of-band
// address to deliver the final response to.
type Callbacker interface {
	CallbackURL() (string, bool)
}

// KeysOf returns the configuration keys required by domain type T.
func KeysOf[T Domain]() config.KeySet {
	var zero T
	return zero.ConfigKeys()
}

// CallbackOf returns v's callback address, if v has one.
func CallbackOf(v any) (string, bool) {
	cb, ok := v.(Callbacker)
	if !ok {
		return "", false
	}
	addr, ok := cb.CallbackURL()
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}

type (
	Check[From, FromResp any]       func(rt *Runtime, from From) (FromResp, bool)
	Request[From, FromResp, To any] func(ctx context.Context, rt *Runtime, from From) *async.Value[either.Either[FromResp, To]]
	Call[FromResp, To, ToResp any]  func(ctx context.Context, rt *Runtime, to To) *async.Value[either.Either[FromResp, ToResp]]
	Response[ToResp, FromResp any]  func(resp ToResp) FromResp
	Deliver[From, FromResp any]     func(ctx context.Context, rt *Runtime, from From, resp FromResp) error
	Instant[From, FromResp any]     func(ctx context.Context, rt *Runtime, from From) FromResp
)

// SyncRequest adapts a synchronous request builder.
func SyncRequest[From, FromResp, To any](f func(rt *Runtime, from From) either.Either[FromResp, To]) Request[From, FromResp, To] {
	return func(_ context.Context, rt *Runtime, from From) *async.Value[either.Either[FromResp, To]] {
		return async.Pure(f(rt, from))
	}
}

// Slots holds the behaviour of a Connector. Name, Request, Call and Response
// are required. A nil Check never short-circuits, a nil Deliver posts the
// response as JSON to the callback address and a nil Instant acknowledges
// with the zero FromResp.
type Slots[From Domain, FromResp any, To Domain, ToResp any] struct {
	Name     string
	Check    Check[From, FromResp]
	Request  Request[From, FromResp, To]
	Call     Call[FromResp, To, ToResp]
	Response Response[ToResp, FromResp]
	Deliver  Deliver[From, FromResp]
	Instant  Instant[From, FromResp]
}

// Connector translates From payloads into To requests and ToResp responses
// back into FromResp.
type Connector[From Domain, FromResp any, To Domain, ToResp any] struct {
	slots    Slots[From, FromResp, To, ToResp]
	fromKeys config.KeySet
	toKeys   config.KeySet
}

// New builds a Connector and validates its configuration keys against reg.
// Every configuration problem is reported at once in a
// *config.CombinedError.
func New[From Domain, FromResp any, To Domain, ToResp any](reg config.Registry, s Slots[From, FromResp, To, ToResp]) (*Connector[From, FromResp, To, ToResp], error) {
	var err error
	if s.Name == "" {
		err = multierror.Append(err, xerrors.New("connector name is required"))
	}
	if s.Request == nil {
		err = multierror.Append(err, xerrors.New("request slot is required"))
	}
	if s.Call == nil {
		err = multierror.Append(err, xerrors.New("call slot is required"))
	}
	if s.Response == nil {
		err = multierror.Append(err, xerrors.New("response slot is required"))
	}
	if err != nil {
		return nil, xerrors.Errorf("connector %q: %w", s.Name, err)
	}

	if s.Deliver == nil {
		s.Deliver = DeliverJSON[From, FromResp]
	}
	if s.Instant == nil {
		s.Instant = func(context.Context, *Runtime, From) FromResp {
			var zero FromResp
			return zero
		}
	}

	c := &Connector[From, FromResp, To, ToResp]{
		slots:    s,
		fromKeys: KeysOf[From](),
		toKeys:   KeysOf[To](),
	}
	if err := c.CheckConfigs(reg); err != nil {
		return nil, xerrors.Errorf("connector %q: %w", s.Name, err)
	}
	return c, nil
}

// MustNew is like New but panics on error. It is meant for wiring done at
// process start.
func MustNew[From Domain, FromResp any, To Domain, ToResp any](reg config.Registry, s Slots[From, FromResp, To, ToResp]) *Connector[From, FromResp, To, ToResp] {
	c, err := New(reg, s)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the connector name.
func (c *Connector[From, FromResp, To, ToResp]) Name() string { return c.slots.Name }

// Keys returns the origin and destination key sets.
func (c *Connector[From, FromResp, To, ToResp]) Keys() (from, to config.KeySet) {
	return c.fromKeys, c.toKeys
}

// Slots returns the connector's slots with defaults filled in.
func (c *Connector[From, FromResp, To, ToResp]) Slots() Slots[From, FromResp, To, ToResp] {
	return c.slots
}

// CheckConfigs validates the connector's key sets against reg. It returns
// nil or a *config.CombinedError.
func (c *Connector[From, FromResp, To, ToResp]) CheckConfigs(reg config.Registry) error {
	return config.Validate(c.fromKeys, c.toKeys, reg)
}

func (c *Connector[From, FromResp, To, ToResp]) labels() []metrics.Label {
	return []metrics.Label{LabelConnector.M(c.slots.Name)}
}

func (c *Connector[From, FromResp, To, ToResp]) check(rt *Runtime, from From) (FromResp, bool) {
	if c.slots.Check == nil {
		var zero FromResp
		return zero, false
	}
	return c.slots.Check(rt, from)
}

// pipeline runs request, call and response. The result is Left when the
// request or the call answered early and Right when response produced it.
func (c *Connector[From, FromResp, To, ToResp]) pipeline(ctx context.Context, rt *Runtime, from From) *async.Value[either.Either[FromResp, FromResp]] {
	start := time.Now()
	req := c.slots.Request(ctx, rt, from)

	called := async.FlatMap(req, func(e either.Either[FromResp, To]) *async.Value[either.Either[FromResp, ToResp]] {
		to, ok := e.GetRight()
		if !ok {
			l, _ := e.GetLeft()
			return async.Pure(either.Left[FromResp, ToResp](l))
		}
		return c.slots.Call(ctx, rt, to)
	})

	return async.Map(called, func(e either.Either[FromResp, ToResp]) either.Either[FromResp, FromResp] {
		rt.Metrics.AddSampleWithLabels(MetricRunDuration, float32(time.Since(start).Milliseconds()), c.labels())
		return either.Map[FromResp, ToResp, FromResp](e, c.slots.Response)
	})
}

// Outcome runs the connector without deferred delivery and keeps the two
// arms apart: Left when check, request or call answered early, Right when
// the downstream response was mapped back.
func (c *Connector[From, FromResp, To, ToResp]) Outcome(ctx context.Context, rt *Runtime, from From) *async.Value[either.Either[FromResp, FromResp]] {
	rt = rt.withDefaults()
	rt.Metrics.IncrCounterWithLabels(MetricRunCount, 1, c.labels())
	if resp, ok := c.check(rt, from); ok {
		rt.Metrics.IncrCounterWithLabels(MetricShortCircuitCount, 1, c.labels())
		return async.Pure(either.Left[FromResp, FromResp](resp))
	}
	return c.pipeline(ctx, rt, from)
}

// Run processes one payload.
//
// When check answers, its value is returned. Otherwise, if from carries no
// callback address, the returned value resolves to the full pipeline
// result. If it does, the pipeline and the delivery of its result are
// detached onto the runtime's scheduler and the instant acknowledgement is
// returned right away. Run never fails; domain errors are responses.
func (c *Connector[From, FromResp, To, ToResp]) Run(ctx context.Context, rt *Runtime, from From) *async.Value[FromResp] {
	rt = rt.withDefaults()
	log := rt.Logger.WithFields(logrus.Fields{
		"connector": c.slots.Name,
		"run_id":    uuid.NewString(),
	})

	rt.Metrics.IncrCounterWithLabels(MetricRunCount, 1, c.labels())
	if resp, ok := c.check(rt, from); ok {
		rt.Metrics.IncrCounterWithLabels(MetricShortCircuitCount, 1, c.labels())
		log.Debug("answered by check")
		return async.Pure(resp)
	}

	return settle(ctx, rt, log, c.labels(), from,
		func(ctx context.Context) *async.Value[either.Either[FromResp, FromResp]] {
			return c.pipeline(ctx, rt, from)
		},
		c.slots.Deliver, c.slots.Instant)
}

// settle returns the pipeline result directly, or detaches it together with
// its delivery and returns the instant acknowledgement when from carries a
// callback address.
func settle[From, FromResp any](
	ctx context.Context,
	rt *Runtime,
	log *logrus.Entry,
	labels []metrics.Label,
	from From,
	pipeline func(ctx context.Context) *async.Value[either.Either[FromResp, FromResp]],
	deliver Deliver[From, FromResp],
	instant Instant[From, FromResp],
) *async.Value[FromResp] {
	callback, deferred := CallbackOf(from)
	if !deferred {
		return async.Map(pipeline(ctx), either.Merge[FromResp])
	}

	rt.Metrics.IncrCounterWithLabels(MetricDeferredCount, 1, labels)
	log = log.WithField("callback", callback)

	// The caller is answered before the pipeline finishes, so its
	// cancellation must not reach the background work.
	bg := context.WithoutCancel(ctx)
	rt.Scheduler.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				rt.Metrics.IncrCounterWithLabels(MetricDeliverErrorCount, 1, labels)
				log.WithField("panic", r).Error("deferred delivery panicked")
			}
		}()

		resp := either.Merge(pipeline(bg).Get())
		if err := deliver(bg, rt, from, resp); err != nil {
			rt.Metrics.IncrCounterWithLabels(MetricDeliverErrorCount, 1, labels)
			log.WithError(err).Warn("deferred delivery failed")
			return
		}
		log.Debug("deferred delivery completed")
	})

	return async.Pure(instant(ctx, rt, from))
}

// DeliverJSON posts resp as JSON to from's callback address.
func DeliverJSON[From, FromResp any](ctx context.Context, rt *Runtime, from From, resp FromResp) error {
	addr, ok := CallbackOf(from)
	if !ok {
		return xerrors.New("payload has no callback address")
	}
	req, err := transport.NewPost(addr, resp)
	if err != nil {
		return err
	}
	if err := rt.withDefaults().Transport.Send(ctx, req).ExpectOK(); err != nil {
		return xerrors.Errorf("posting to callback: %w", err)
	}
	return nil
}
