package connector

import (
	"context"

	"golang.org/x/xerrors"

	"relay/internal/async"
	"relay/internal/config"
	"relay/internal/either"
)

// Head is the origin-facing half of a connector: what TransformFrom needs
// to put a new origin in front of an existing downstream call.
type Head[From Domain, FromResp any, To Domain] struct {
	Name    string
	Check   Check[From, FromResp]
	Request Request[From, FromResp, To]
	Deliver Deliver[From, FromResp]
	Instant Instant[From, FromResp]
}

// Tail is the downstream-facing half of a connector: what TransformTo needs
// to send an existing origin to a new destination.
type Tail[From Domain, FromResp any, To Domain, ToResp any] struct {
	Name     string
	Request  Request[From, FromResp, To]
	Call     Call[FromResp, To, ToResp]
	Response Response[ToResp, FromResp]
}

// TransformFrom builds a connector for a new origin type From2 that reuses
// base's call slot as is. Early answers produced by that call are converted
// with adapt; response maps base's downstream response to the new origin's
// response type. As with any connector, a Left from head.Request means the
// call is never made.
func TransformFrom[From2 Domain, FromResp2 any, From Domain, FromResp any, To Domain, ToResp any](
	reg config.Registry,
	base *Connector[From, FromResp, To, ToResp],
	head Head[From2, FromResp2, To],
	response Response[ToResp, FromResp2],
	adapt func(FromResp) FromResp2,
) (*Connector[From2, FromResp2, To, ToResp], error) {
	if base == nil {
		return nil, xerrors.Errorf("connector %q: base connector is required", head.Name)
	}
	if adapt == nil {
		return nil, xerrors.Errorf("connector %q: adapt function is required", head.Name)
	}

	call := base.slots.Call
	return New(reg, Slots[From2, FromResp2, To, ToResp]{
		Name:    head.Name,
		Check:   head.Check,
		Request: head.Request,
		Call: func(ctx context.Context, rt *Runtime, to To) *async.Value[either.Either[FromResp2, ToResp]] {
			return async.Map(call(ctx, rt, to), func(e either.Either[FromResp, ToResp]) either.Either[FromResp2, ToResp] {
				return either.MapLeft(e, adapt)
			})
		},
		Response: response,
		Deliver:  head.Deliver,
		Instant:  head.Instant,
	})
}

// TransformTo builds a connector that keeps base's check, deliver and
// instant slots for the same origin but reaches a different destination
// through tail.
func TransformTo[From Domain, FromResp any, To Domain, ToResp any, To2 Domain, ToResp2 any](
	reg config.Registry,
	base *Connector[From, FromResp, To, ToResp],
	tail Tail[From, FromResp, To2, ToResp2],
) (*Connector[From, FromResp, To2, ToResp2], error) {
	if base == nil {
		return nil, xerrors.Errorf("connector %q: base connector is required", tail.Name)
	}

	return New(reg, Slots[From, FromResp, To2, ToResp2]{
		Name:     tail.Name,
		Check:    base.slots.Check,
		Request:  tail.Request,
		Call:     tail.Call,
		Response: tail.Response,
		Deliver:  base.slots.Deliver,
		Instant:  base.slots.Instant,
	})
}
