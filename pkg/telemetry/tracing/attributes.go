package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow the OpenTelemetry semantic conventions;
// domain keys use the "uidthrottle.*" namespace.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPTarget     = "http.target"
	AttrHTTPStatusCode = "http.status_code"

	AttrRequestID   = "uidthrottle.request_id"
	AttrSource      = "uidthrottle.source"
	AttrUID         = "uidthrottle.uid"
	AttrRate        = "uidthrottle.rate"
	AttrGlobalReset = "uidthrottle.global_reset"
)

// AttributeBuilder collects span attributes.
//
//	opts := tracing.NewAttributeBuilder().
//		WithCommand("http", 1000, 4096).
//		WithRequest(requestID).
//		Build()
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder returns an empty builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{}
}

// WithCommand adds the source and arguments of a rate limit command.
func (ab *AttributeBuilder) WithCommand(source string, uid, rate int64) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrSource, source),
		attribute.Int64(AttrUID, uid),
		attribute.Int64(AttrRate, rate),
		attribute.Bool(AttrGlobalReset, uid < 0),
	)
	return ab
}

// WithRequest adds the request id. Empty ids are skipped.
func (ab *AttributeBuilder) WithRequest(requestID string) *AttributeBuilder {
	if requestID != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrRequestID, requestID))
	}
	return ab
}

// WithHTTP adds the request method and path.
func (ab *AttributeBuilder) WithHTTP(method, target string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPTarget, target),
	)
	return ab
}

// Build returns the attributes as a span start option.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Attributes returns the collected attributes.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
