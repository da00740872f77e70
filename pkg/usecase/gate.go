package usecase

import (
	"context"
	"sync"

	"github.com/riccamini/shipper/pkg/domain/model"
)

// Gate decides whether an upstream run completion may publish, and
// serializes in-flight publish attempts per concurrency group key. The key
// table is process-lifetime, in-memory state; entries are removed on
// terminal transition.
type Gate struct {
	mu    sync.Mutex
	slots map[model.ConcurrencyGroup]*slot
}

// slot tracks the attempt currently holding a concurrency group key
type slot struct {
	runID     string
	uploading bool
	cancel    context.CancelFunc
}

// NewGate creates an empty trigger gate
func NewGate() *Gate {
	return &Gate{
		slots: make(map[model.ConcurrencyGroup]*slot),
	}
}

// Evaluate decides whether the event may produce a publish attempt. It is
// pure: it reads no gate state, has no side effects, and returns the same
// Decision for the same event.
func (g *Gate) Evaluate(event *model.ReleaseEvent) model.Decision {
	if event.EventKind != model.EventKindPush {
		return model.Reject(model.ReasonEventKindMismatch)
	}
	if !event.IsTagRef() {
		return model.Reject(model.ReasonNotTagPush)
	}
	if event.Conclusion != model.ConclusionSuccess {
		return model.Reject(model.ReasonUpstreamNotSuccessful)
	}
	return model.Accept()
}

// Admission is the result of admitting a publish attempt into a
// concurrency group
type Admission struct {
	// Ctx is the attempt's pre-upload context. It is cancelled when a newer
	// attempt takes over the same key. Nil unless admitted.
	Ctx context.Context

	// Superseded reports that the key is held by an attempt whose registry
	// upload has already begun, so this attempt must not run.
	Superseded bool

	// HolderRunID identifies the attempt holding the key when superseded
	HolderRunID string
}

// Admit performs the atomic check-and-set for a concurrency group key.
// An incumbent that has not begun its upload is cancelled and replaced.
// An incumbent whose upload has begun is never cancelled; the new attempt
// is refused instead, so uploads never interleave.
func (g *Gate) Admit(ctx context.Context, group model.ConcurrencyGroup, runID string) Admission {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cur, ok := g.slots[group]; ok {
		if cur.uploading {
			return Admission{Superseded: true, HolderRunID: cur.runID}
		}
		cur.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.slots[group] = &slot{runID: runID, cancel: cancel}
	return Admission{Ctx: runCtx}
}

// BeginUpload moves the attempt into its upload phase. Once it returns
// true, the attempt can no longer be cancelled by a newer admission. It
// returns false when the attempt no longer holds the key, i.e. it was
// cancelled while still pre-upload.
func (g *Gate) BeginUpload(group model.ConcurrencyGroup, runID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.slots[group]
	if !ok || cur.runID != runID {
		return false
	}
	cur.uploading = true
	return true
}

// Complete records the terminal transition for the attempt and releases
// the key. Calling it for an attempt that was already superseded or
// cancelled is a no-op.
func (g *Gate) Complete(group model.ConcurrencyGroup, runID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.slots[group]
	if !ok || cur.runID != runID {
		return
	}
	cur.cancel()
	delete(g.slots, group)
}
