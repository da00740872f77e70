package model

import (
	"strings"
	"time"
)

// Conclusion represents the terminal status of an upstream workflow run
type Conclusion string

const (
	ConclusionSuccess   Conclusion = "success"
	ConclusionFailure   Conclusion = "failure"
	ConclusionCancelled Conclusion = "cancelled"
	ConclusionSkipped   Conclusion = "skipped"
)

// EventKind represents the kind of event that triggered the upstream run
type EventKind string

const (
	EventKindPush        EventKind = "push"
	EventKindPullRequest EventKind = "pull_request"
	EventKindOther       EventKind = "other"
)

// EventKindOf maps a raw event name from the CI host to an EventKind
func EventKindOf(name string) EventKind {
	switch name {
	case "push":
		return EventKindPush
	case "pull_request":
		return EventKindPullRequest
	default:
		return EventKindOther
	}
}

// ReleaseEvent represents one notification that an upstream build workflow
// finished. It is immutable after construction and evaluated exactly once;
// it is never persisted.
type ReleaseEvent struct {
	WorkflowName string     // Name of the upstream pipeline
	Conclusion   Conclusion // Terminal status of the run
	EventKind    EventKind  // Kind of event that triggered the run
	Ref          string     // Fully qualified git ref (e.g. refs/tags/v1.2.0)
	RunID        string     // Unique identifier of the run, for correlation
	Owner        string     // Repository owner
	Repo         string     // Repository name
	ReceivedAt   time.Time  // Time when the event was received
}

const tagRefPrefix = "refs/tags/"

// IsTagRef reports whether the event's ref denotes a tag reference
func (e *ReleaseEvent) IsTagRef() bool {
	return strings.HasPrefix(e.Ref, tagRefPrefix)
}

// TagName returns the tag name without the refs/tags/ prefix, or an empty
// string when the ref is not a tag
func (e *ReleaseEvent) TagName() string {
	if !e.IsTagRef() {
		return ""
	}
	return strings.TrimPrefix(e.Ref, tagRefPrefix)
}
