package lz4mtotel

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// statser is the constraint on the stats value returned by the call
// Trace instruments. lz4mt.Stats satisfies it, so
// Trace(tracer, "encode", enc.Encode) and Trace(tracer, "decode",
// dec.Decode) both apply without lz4mtotel importing the root package.
type statser interface {
	String() string
}

// Op is the signature shared by Encoder.Encode and Decoder.Decode.
type Op[S statser] func(ctx context.Context) (S, error)

// Trace wraps op in a span named "lz4mt."+name, recording an
// operation attribute and a result attribute ("OK" or the error
// text) and, on failure, the error plus an error status whose
// description is the returned stats' String(); on success the stats
// are not recorded — adapted from
// otelch/keys.go's attribute-key conventions and query.go's span
// propagation around a single protocol round trip.
func Trace[S statser](tracer trace.Tracer, name string, op Op[S]) Op[S] {
	if tracer == nil {
		return op
	}
	return func(ctx context.Context) (S, error) {
		ctx, span := tracer.Start(ctx, "lz4mt."+name)
		defer span.End()

		span.SetAttributes(Operation(name))

		stats, err := op(ctx)
		span.SetAttributes(Result(resultString(err)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, stats.String())
			return stats, err
		}
		return stats, nil
	}
}

func resultString(err error) string {
	if err == nil {
		return "OK"
	}
	return err.Error()
}
