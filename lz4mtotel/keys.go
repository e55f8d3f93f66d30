// Package lz4mtotel provides OpenTelemetry attribute keys and a tracing
// wrapper for lz4mt encoders and decoders. It is optional: callers that
// never wrap an Encode or Decode call with Trace pay no tracing cost.
package lz4mtotel

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	OperationKey = attribute.Key("lz4mt.operation")
	ModeKey      = attribute.Key("lz4mt.mode")
	BlocksKey    = attribute.Key("lz4mt.blocks")
	InBytesKey   = attribute.Key("lz4mt.in_bytes")
	OutBytesKey  = attribute.Key("lz4mt.out_bytes")
	ResultKey    = attribute.Key("lz4mt.result")
)

// Operation attribute: "encode" or "decode".
func Operation(v string) attribute.KeyValue {
	return attribute.KeyValue{Key: OperationKey, Value: attribute.StringValue(v)}
}

// Mode attribute: "sequential" or "parallel".
func Mode(v string) attribute.KeyValue {
	return attribute.KeyValue{Key: ModeKey, Value: attribute.StringValue(v)}
}

// Blocks attribute.
func Blocks(v int64) attribute.KeyValue {
	return attribute.KeyValue{Key: BlocksKey, Value: attribute.Int64Value(v)}
}

// InBytes attribute.
func InBytes(v int64) attribute.KeyValue {
	return attribute.KeyValue{Key: InBytesKey, Value: attribute.Int64Value(v)}
}

// OutBytes attribute.
func OutBytes(v int64) attribute.KeyValue {
	return attribute.KeyValue{Key: OutBytesKey, Value: attribute.Int64Value(v)}
}

// Result attribute: the Result string, e.g. "OK" or "DECOMPRESS_FAIL".
func Result(v string) attribute.KeyValue {
	return attribute.KeyValue{Key: ResultKey, Value: attribute.StringValue(v)}
}
