package connector

import (
	"context"

	"relay/internal/async"
	"relay/internal/either"
	"relay/internal/transport"
)

// HTTPCall builds a Call slot on top of the runtime's transport. build turns
// the downstream request into an HTTP request, decode turns the raw result
// into the downstream response, and fail renders any error from either step
// (or from the transport itself) as an origin response. The returned slot
// never fails in any other way.
func HTTPCall[FromResp, To, ToResp any](
	build func(rt *Runtime, to To) (transport.Request, error),
	decode func(to To, res transport.Result) (ToResp, error),
	fail func(err error) FromResp,
) Call[FromResp, To, ToResp] {
	return func(ctx context.Context, rt *Runtime, to To) *async.Value[either.Either[FromResp, ToResp]] {
		rt = rt.withDefaults()

		req, err := build(rt, to)
		if err != nil {
			rt.Logger.WithError(err).Debug("building downstream request failed")
			return async.Pure(either.Left[FromResp, ToResp](fail(err)))
		}

		return async.Map(rt.Transport.Do(ctx, req), func(res transport.Result) either.Either[FromResp, ToResp] {
			out, err := decode(to, res)
			if err != nil {
				rt.Logger.WithError(err).WithField("status", res.Status).Debug("downstream call failed")
				return either.Left[FromResp, ToResp](fail(err))
			}
			return either.Right[FromResp](out)
		})
	}
}

// DecodeJSON is a decode function for HTTPCall that ignores the request and
// decodes a 2xx JSON body into a ToResp.
func DecodeJSON[To, ToResp any](_ To, res transport.Result) (ToResp, error) {
	return transport.DecodeJSON[ToResp](res)
}
