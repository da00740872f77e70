package interfaces

import (
	"context"

	"github.com/riccamini/shipper/pkg/domain/model"
)

// ReleasePublisher defines the interface for handling upstream workflow
// run completions
type ReleasePublisher interface {
	// HandleRunCompletion evaluates the event, resolves concurrency, and
	// issues at most one publish attempt. Rejected and superseded events
	// return nil; only a failure of the publish attempt itself is an error.
	HandleRunCompletion(ctx context.Context, event *model.ReleaseEvent) error
}

// EventProcessor defines the interface for translating raw CI host webhook
// payloads into release events
type EventProcessor interface {
	// ProcessEvent processes a webhook event payload
	ProcessEvent(ctx context.Context, eventType string, payload any) error
}
