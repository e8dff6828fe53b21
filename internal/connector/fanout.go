package connector

import (
	"context"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"relay/internal/async"
	"relay/internal/config"
	"relay/internal/either"
)

// Pipeline is anything that answers From payloads with FromResp. Connectors
// with different destinations but the same origin all satisfy
// Pipeline[From, FromResp], which is what lets them share a Bundle.
type Pipeline[From, FromResp any] interface {
	Name() string
	Run(ctx context.Context, rt *Runtime, from From) *async.Value[FromResp]
	Outcome(ctx context.Context, rt *Runtime, from From) *async.Value[either.Either[FromResp, FromResp]]
	CheckConfigs(reg config.Registry) error
}

var (
	_ Pipeline[struct{}, string] = (*Bundle[struct{}, string])(nil)
)

// BundleSlots configures a Bundle. Concat merges two responses and is
// required; Deliver and Instant default as they do for a Connector.
type BundleSlots[From, FromResp any] struct {
	Name    string
	Concat  func(a, b FromResp) FromResp
	Deliver Deliver[From, FromResp]
	Instant Instant[From, FromResp]
}

// Bundle runs several pipelines against the same payload concurrently and
// reduces their outcomes in registration order.
type Bundle[From, FromResp any] struct {
	slots   BundleSlots[From, FromResp]
	members []Pipeline[From, FromResp]
}

// NewBundle builds a Bundle over members, in the order given.
func NewBundle[From, FromResp any](s BundleSlots[From, FromResp], members ...Pipeline[From, FromResp]) (*Bundle[From, FromResp], error) {
	var err error
	if s.Name == "" {
		err = multierror.Append(err, xerrors.New("bundle name is required"))
	}
	if s.Concat == nil {
		err = multierror.Append(err, xerrors.New("concat function is required"))
	}
	if len(members) == 0 {
		err = multierror.Append(err, xerrors.New("bundle needs at least one member"))
	}
	for i, m := range members {
		if m == nil {
			err = multierror.Append(err, xerrors.Errorf("member %d is nil", i))
		}
	}
	if err != nil {
		return nil, xerrors.Errorf("bundle %q: %w", s.Name, err)
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

	return &Bundle[From, FromResp]{
		slots:   s,
		members: append([]Pipeline[From, FromResp](nil), members...),
	}, nil
}

// Name returns the bundle name.
func (b *Bundle[From, FromResp]) Name() string { return b.slots.Name }

// Members returns the member names in registration order.
func (b *Bundle[From, FromResp]) Members() []string {
	names := make([]string, len(b.members))
	for i, m := range b.members {
		names[i] = m.Name()
	}
	return names
}

// CheckConfigs validates every member and reports all their problems
// together.
func (b *Bundle[From, FromResp]) CheckConfigs(reg config.Registry) error {
	var err error
	for _, m := range b.members {
		if mErr := m.CheckConfigs(reg); mErr != nil {
			err = multierror.Append(err, xerrors.Errorf("%s: %w", m.Name(), mErr))
		}
	}
	return err
}

func (b *Bundle[From, FromResp]) labels() []metrics.Label {
	return []metrics.Label{LabelBundle.M(b.slots.Name)}
}

// Outcome starts every member, waits for all of them and reduces their
// outcomes with Reduce in registration order.
func (b *Bundle[From, FromResp]) Outcome(ctx context.Context, rt *Runtime, from From) *async.Value[either.Either[FromResp, FromResp]] {
	rt = rt.withDefaults()
	rt.Metrics.IncrCounterWithLabels(MetricFanOutCount, 1, b.labels())

	outcomes := make([]*async.Value[either.Either[FromResp, FromResp]], len(b.members))
	for i, m := range b.members {
		outcomes[i] = m.Outcome(ctx, rt, from)
	}
	return async.Map(async.All(outcomes), func(outs []either.Either[FromResp, FromResp]) either.Either[FromResp, FromResp] {
		return Reduce(outs, b.slots.Concat, b.slots.Concat)
	})
}

// Run fans from out to every member and applies the same deferred delivery
// rules as Connector.Run to the reduced result.
func (b *Bundle[From, FromResp]) Run(ctx context.Context, rt *Runtime, from From) *async.Value[FromResp] {
	rt = rt.withDefaults()
	log := rt.Logger.WithFields(logrus.Fields{
		"bundle":  b.slots.Name,
		"run_id":  uuid.NewString(),
		"members": len(b.members),
	})

	return settle(ctx, rt, log, b.labels(), from,
		func(ctx context.Context) *async.Value[either.Either[FromResp, FromResp]] {
			return b.Outcome(ctx, rt, from)
		},
		b.slots.Deliver, b.slots.Instant)
}

// FanOut runs bundle against from.
func FanOut[From, FromResp any](ctx context.Context, rt *Runtime, bundle *Bundle[From, FromResp], from From) *async.Value[FromResp] {
	return bundle.Run(ctx, rt, from)
}

// Reduce folds outcomes left to right:
//
//	(Left a,  Left b)  -> Left(concatL(a, b))
//	(Left a,  Right b) -> Left(a)
//	(Right a, Right b) -> Right(concatR(a, b))
//	(Right a, Left b)  -> Left(b)
//
// The fold is order sensitive. An empty input reduces to a Right holding
// the zero R.
func Reduce[L, R any](outcomes []either.Either[L, R], concatL func(a, b L) L, concatR func(a, b R) R) either.Either[L, R] {
	if len(outcomes) == 0 {
		var zero R
		return either.Right[L](zero)
	}

	acc := outcomes[0]
	for _, next := range outcomes[1:] {
		accL, accIsLeft := acc.GetLeft()
		nextL, nextIsLeft := next.GetLeft()
		switch {
		case accIsLeft && nextIsLeft:
			acc = either.Left[L, R](concatL(accL, nextL))
		case accIsLeft:
			// an earlier failure masks a later success
		case nextIsLeft:
			acc = next
		default:
			accR, _ := acc.GetRight()
			nextR, _ := next.GetRight()
			acc = either.Right[L](concatR(accR, nextR))
		}
	}
	return acc
}
