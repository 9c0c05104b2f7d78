package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorEvent names the span event added when a workflow step or run fails.
const ErrorEvent = "facilityflow.workflow.failed"

// SetError marks span as failed with err. attrs are attached to the recorded
// error and to the failure event. Nil errors and spans that are not recording
// are ignored.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil || !span.IsRecording() {
		return
	}

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent(ErrorEvent, trace.WithAttributes(
		append([]attribute.KeyValue{attribute.String("error.message", err.Error())}, attrs...)...,
	))
}
