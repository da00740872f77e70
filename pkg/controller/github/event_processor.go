package github

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/riccamini/shipper/pkg/domain/interfaces"
	"github.com/riccamini/shipper/pkg/domain/model"
)

// EventProcessor translates GitHub webhook payloads into release events
// and hands them to the publisher pipeline
type EventProcessor struct {
	publisher interfaces.ReleasePublisher
	artifacts interfaces.ArtifactSource
}

// NewEventProcessor creates a new GitHub event processor
func NewEventProcessor(publisher interfaces.ReleasePublisher, artifacts interfaces.ArtifactSource) *EventProcessor {
	return &EventProcessor{
		publisher: publisher,
		artifacts: artifacts,
	}
}

// ProcessEvent processes a GitHub webhook event
func (p *EventProcessor) ProcessEvent(ctx context.Context, eventType string, payload any) error {
	logger := ctxlog.From(ctx)

	switch eventType {
	case "workflow_run":
		return p.processWorkflowRun(ctx, payload)
	default:
		logger.Info("Ignoring unsupported event type", "event_type", eventType)
		return nil
	}
}

// processWorkflowRun handles a workflow_run event
func (p *EventProcessor) processWorkflowRun(ctx context.Context, payload any) error {
	logger := ctxlog.From(ctx)

	runEvent, ok := payload.(*github.WorkflowRunEvent)
	if !ok {
		logger.Warn("Invalid workflow_run event payload")
		return nil
	}

	// Only completed runs carry a conclusion
	if runEvent.GetAction() != "completed" {
		logger.Info("Ignoring workflow_run event with non-completed action",
			"action", runEvent.GetAction(),
		)
		return nil
	}

	event, err := p.extractReleaseEvent(ctx, runEvent)
	if err != nil {
		logger.Error("Failed to extract release event", "error", err)
		return err
	}

	logger.Info("Processing workflow run completion",
		"workflow", event.WorkflowName,
		"run_id", event.RunID,
		"conclusion", event.Conclusion,
		"event_kind", event.EventKind,
		"ref", event.Ref,
	)

	return p.publisher.HandleRunCompletion(ctx, event)
}

// extractReleaseEvent builds a release event from a workflow_run payload.
// The payload only carries a bare head branch/tag name, so for push-driven
// runs the name is resolved to a fully qualified ref against the
// repository's actual refs.
func (p *EventProcessor) extractReleaseEvent(ctx context.Context, runEvent *github.WorkflowRunEvent) (*model.ReleaseEvent, error) {
	run := runEvent.GetWorkflowRun()
	if run == nil {
		return nil, fmt.Errorf("missing workflow run in workflow_run event")
	}
	if runEvent.GetRepo() == nil {
		return nil, fmt.Errorf("missing repository information in workflow_run event")
	}

	owner := runEvent.GetRepo().GetOwner().GetLogin()
	repo := runEvent.GetRepo().GetName()
	workflow := runEvent.GetWorkflow().GetName()
	if workflow == "" {
		workflow = run.GetName()
	}

	if owner == "" || repo == "" || run.GetID() == 0 {
		return nil, fmt.Errorf("missing required fields: owner=%s, repo=%s, run_id=%d", owner, repo, run.GetID())
	}

	kind := model.EventKindOf(run.GetEvent())
	headName := run.GetHeadBranch()

	var ref string
	switch {
	case headName == "":
		ref = ""
	case kind == model.EventKindPush:
		// Failing to resolve fails closed: no ref means no tag, no publish.
		resolved, err := p.artifacts.ResolveRef(ctx, owner, repo, headName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve head ref %q: %w", headName, err)
		}
		ref = resolved
	default:
		ref = "refs/heads/" + headName
	}

	return &model.ReleaseEvent{
		WorkflowName: workflow,
		Conclusion:   model.Conclusion(run.GetConclusion()),
		EventKind:    kind,
		Ref:          ref,
		RunID:        strconv.FormatInt(run.GetID(), 10),
		Owner:        owner,
		Repo:         repo,
		ReceivedAt:   time.Now(),
	}, nil
}
