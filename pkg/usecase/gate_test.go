package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/riccamini/shipper/pkg/domain/model"
	"github.com/riccamini/shipper/pkg/usecase"
)

func tagPushEvent(runID string) *model.ReleaseEvent {
	return &model.ReleaseEvent{
		WorkflowName: "koheesio",
		Conclusion:   model.ConclusionSuccess,
		EventKind:    model.EventKindPush,
		Ref:          "refs/tags/v1.2.0",
		RunID:        runID,
		Owner:        "riccamini",
		Repo:         "koheesio",
	}
}

func TestGate_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		event    *model.ReleaseEvent
		accepted bool
		reason   model.RejectReason
	}{
		{
			name: "Successful tag push - accepted",
			event: &model.ReleaseEvent{
				WorkflowName: "koheesio",
				Conclusion:   model.ConclusionSuccess,
				EventKind:    model.EventKindPush,
				Ref:          "refs/tags/v1.2.0",
			},
			accepted: true,
		},
		{
			name: "Pull request - event kind mismatch",
			event: &model.ReleaseEvent{
				Conclusion: model.ConclusionSuccess,
				EventKind:  model.EventKindPullRequest,
				Ref:        "refs/pull/42/merge",
			},
			reason: model.ReasonEventKindMismatch,
		},
		{
			name: "Other event kind - event kind mismatch",
			event: &model.ReleaseEvent{
				Conclusion: model.ConclusionSuccess,
				EventKind:  model.EventKindOther,
				Ref:        "refs/tags/v1.2.0",
			},
			reason: model.ReasonEventKindMismatch,
		},
		{
			name: "Branch push - not a tag push",
			event: &model.ReleaseEvent{
				Conclusion: model.ConclusionSuccess,
				EventKind:  model.EventKindPush,
				Ref:        "refs/heads/main",
			},
			reason: model.ReasonNotTagPush,
		},
		{
			name: "Branch push with failed run - ref checked before conclusion",
			event: &model.ReleaseEvent{
				Conclusion: model.ConclusionFailure,
				EventKind:  model.EventKindPush,
				Ref:        "refs/heads/main",
			},
			reason: model.ReasonNotTagPush,
		},
		{
			name: "Failed tag push - upstream not successful",
			event: &model.ReleaseEvent{
				Conclusion: model.ConclusionFailure,
				EventKind:  model.EventKindPush,
				Ref:        "refs/tags/v1.2.1",
			},
			reason: model.ReasonUpstreamNotSuccessful,
		},
		{
			name: "Cancelled tag push - upstream not successful",
			event: &model.ReleaseEvent{
				Conclusion: model.ConclusionCancelled,
				EventKind:  model.EventKindPush,
				Ref:        "refs/tags/v1.2.1",
			},
			reason: model.ReasonUpstreamNotSuccessful,
		},
		{
			name: "Skipped tag push - upstream not successful",
			event: &model.ReleaseEvent{
				Conclusion: model.ConclusionSkipped,
				EventKind:  model.EventKindPush,
				Ref:        "refs/tags/v1.2.1",
			},
			reason: model.ReasonUpstreamNotSuccessful,
		},
		{
			name: "Empty ref on push - not a tag push",
			event: &model.ReleaseEvent{
				Conclusion: model.ConclusionSuccess,
				EventKind:  model.EventKindPush,
				Ref:        "",
			},
			reason: model.ReasonNotTagPush,
		},
	}

	gate := usecase.NewGate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := gate.Evaluate(tt.event)
			gt.Value(t, decision.Accepted).Equal(tt.accepted)
			if !tt.accepted {
				gt.Value(t, decision.Reason).Equal(tt.reason)
			}
		})
	}
}

func TestGate_Evaluate_Idempotent(t *testing.T) {
	gate := usecase.NewGate()
	event := tagPushEvent("100")

	first := gate.Evaluate(event)
	second := gate.Evaluate(event)
	gt.Value(t, first).Equal(second)

	// Admission does not change the answer either
	group := model.NewConcurrencyGroup(event.WorkflowName, event.Ref, event.RunID)
	gate.Admit(context.Background(), group, event.RunID)
	third := gate.Evaluate(event)
	gt.Value(t, first).Equal(third)
}

func TestGate_Admit_FirstAttempt(t *testing.T) {
	gate := usecase.NewGate()
	group := model.ConcurrencyGroup("koheesio-refs/tags/v1.2.0")

	adm := gate.Admit(context.Background(), group, "100")
	gt.Value(t, adm.Superseded).Equal(false)
	gt.Value(t, adm.Ctx).NotNil()
	gt.NoError(t, adm.Ctx.Err())
}

func TestGate_Admit_CancelsPreUploadIncumbent(t *testing.T) {
	gate := usecase.NewGate()
	group := model.ConcurrencyGroup("koheesio-refs/tags/v1.2.0")

	a := gate.Admit(context.Background(), group, "100")
	gt.Value(t, a.Superseded).Equal(false)

	b := gate.Admit(context.Background(), group, "101")
	gt.Value(t, b.Superseded).Equal(false)

	// A was still pre-upload, so B's admission cancelled it
	gt.Error(t, a.Ctx.Err())
	gt.NoError(t, b.Ctx.Err())

	// A no longer holds the key and must not start its upload
	gt.Value(t, gate.BeginUpload(group, "100")).Equal(false)
	gt.Value(t, gate.BeginUpload(group, "101")).Equal(true)
}

func TestGate_Admit_RefusedWhileUploading(t *testing.T) {
	gate := usecase.NewGate()
	group := model.ConcurrencyGroup("koheesio-refs/tags/v1.2.0")

	a := gate.Admit(context.Background(), group, "100")
	gt.Value(t, gate.BeginUpload(group, "100")).Equal(true)

	// A's upload has begun: B must not cancel it and must not run
	b := gate.Admit(context.Background(), group, "101")
	gt.Value(t, b.Superseded).Equal(true)
	gt.Value(t, b.HolderRunID).Equal("100")
	gt.NoError(t, a.Ctx.Err())

	// A runs to completion and releases the key
	gate.Complete(group, "100")

	// A fresh event starts a fresh cycle on the same key
	c := gate.Admit(context.Background(), group, "102")
	gt.Value(t, c.Superseded).Equal(false)
}

func TestGate_Complete_IgnoresStaleAttempt(t *testing.T) {
	gate := usecase.NewGate()
	group := model.ConcurrencyGroup("koheesio-refs/tags/v1.2.0")

	gate.Admit(context.Background(), group, "100")
	b := gate.Admit(context.Background(), group, "101")

	// The cancelled attempt completing must not release B's hold
	gate.Complete(group, "100")
	gt.Value(t, gate.BeginUpload(group, "101")).Equal(true)
	gt.NoError(t, b.Ctx.Err())

	gate.Complete(group, "101")
}

func TestGate_IndependentKeys(t *testing.T) {
	gate := usecase.NewGate()
	g1 := model.ConcurrencyGroup("koheesio-refs/tags/v1.2.0")
	g2 := model.ConcurrencyGroup("koheesio-refs/tags/v1.3.0")

	a := gate.Admit(context.Background(), g1, "100")
	b := gate.Admit(context.Background(), g2, "200")

	gt.Value(t, a.Superseded).Equal(false)
	gt.Value(t, b.Superseded).Equal(false)
	gt.NoError(t, a.Ctx.Err())
	gt.NoError(t, b.Ctx.Err())

	gt.Value(t, gate.BeginUpload(g1, "100")).Equal(true)
	gt.Value(t, gate.BeginUpload(g2, "200")).Equal(true)
}
