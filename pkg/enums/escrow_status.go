package enums

import "fmt"

// EscrowStatus tracks the lifecycle of the escrow holding an order's funds.
type EscrowStatus string

const (
	EscrowStatusInitiated EscrowStatus = "initiated"
	EscrowStatusFunded    EscrowStatus = "funded"
	EscrowStatusReleased  EscrowStatus = "released"
	EscrowStatusRefunded  EscrowStatus = "refunded"
	EscrowStatusCancelled EscrowStatus = "cancelled"
)

var validEscrowStatuses = []EscrowStatus{
	EscrowStatusInitiated,
	EscrowStatusFunded,
	EscrowStatusReleased,
	EscrowStatusRefunded,
	EscrowStatusCancelled,
}

// escrowTransitions is the allowed edge set: initiated to funded, funded to
// released or refunded, and any state to cancelled.
var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusInitiated: {EscrowStatusFunded, EscrowStatusCancelled},
	EscrowStatusFunded:    {EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusCancelled},
	EscrowStatusReleased:  {EscrowStatusCancelled},
	EscrowStatusRefunded:  {EscrowStatusCancelled},
}

// String implements fmt.Stringer.
func (e EscrowStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EscrowStatus.
func (e EscrowStatus) IsValid() bool {
	for _, candidate := range validEscrowStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the edge from e to next is allowed.
func (e EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	for _, candidate := range escrowTransitions[e] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseEscrowStatus converts raw input into an EscrowStatus.
func ParseEscrowStatus(value string) (EscrowStatus, error) {
	for _, candidate := range validEscrowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow status %q", value)
}
