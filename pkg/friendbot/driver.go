package friendbot

import "context"

// EventSink accepts trigger events for dispatching into the pipeline.
type EventSink interface {
	// Dispatch submits one trigger event. It fails only on invalid events;
	// candidate failures are contained by the pipeline and logged.
	Dispatch(ctx context.Context, event *TriggerEvent) error
}

// Driver adapts one external chat platform into neutral trigger events.
//
// Drivers own transport and session concerns and must publish only TriggerEvent.
type Driver interface {
	// Name returns a stable driver identifier.
	Name() string
	// Start consumes platform updates and publishes trigger events at sink.
	// It returns only after context cancellation or a fatal error.
	Start(ctx context.Context, sink EventSink) error
	// Shutdown stops external resources not tied to the Start context alone.
	Shutdown(ctx context.Context) error
}
