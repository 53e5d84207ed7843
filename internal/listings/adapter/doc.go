// Package adapter contains implementations of interfaces defined in app.
// DynamoDB, Redis and in-memory listing adapters live here.
package adapter

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("listings/adapter")
