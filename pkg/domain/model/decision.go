package model

// RejectReason explains why a ReleaseEvent produced no publish attempt
type RejectReason string

const (
	ReasonEventKindMismatch     RejectReason = "event kind mismatch"
	ReasonNotTagPush            RejectReason = "not a tag push"
	ReasonUpstreamNotSuccessful RejectReason = "upstream not successful"
)

// Decision is the outcome of evaluating a ReleaseEvent. A rejected event is
// a normal no-op outcome, not an error.
type Decision struct {
	Accepted bool
	Reason   RejectReason // Populated only when rejected
}

// Accept returns an accepting Decision
func Accept() Decision {
	return Decision{Accepted: true}
}

// Reject returns a rejecting Decision with the given reason
func Reject(reason RejectReason) Decision {
	return Decision{Reason: reason}
}
