package enums

import "testing"

func TestEscrowTransitions(t *testing.T) {
	cases := []struct {
		from    EscrowStatus
		to      EscrowStatus
		allowed bool
	}{
		{EscrowStatusInitiated, EscrowStatusFunded, true},
		{EscrowStatusInitiated, EscrowStatusReleased, false},
		{EscrowStatusFunded, EscrowStatusReleased, true},
		{EscrowStatusFunded, EscrowStatusRefunded, true},
		{EscrowStatusReleased, EscrowStatusFunded, false},
		{EscrowStatusReleased, EscrowStatusCancelled, true},
		{EscrowStatusCancelled, EscrowStatusFunded, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestPaymentTransitionsAreMonotonic(t *testing.T) {
	if !PaymentStatusAuthorized.CanTransitionTo(PaymentStatusCaptured) {
		t.Error("authorized should allow capture")
	}
	if !PaymentStatusCaptured.CanTransitionTo(PaymentStatusRefunded) {
		t.Error("captured should allow refund")
	}
	if PaymentStatusCaptured.CanTransitionTo(PaymentStatusAuthorized) {
		t.Error("capture must not roll back to authorized")
	}
	if PaymentStatusRefunded.CanTransitionTo(PaymentStatusCaptured) {
		t.Error("refunded is terminal")
	}
}

func TestCurrencyValidation(t *testing.T) {
	for _, valid := range []string{"COP", "USD", "MXN", "EUR"} {
		if _, err := ParseCurrency(valid); err != nil {
			t.Errorf("expected %q to be valid: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "co", "cop", "COPS", "C0P"} {
		if _, err := ParseCurrency(invalid); err == nil {
			t.Errorf("expected %q to be rejected", invalid)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if OrderStatusCreated.IsTerminal() || OrderStatusPaid.IsTerminal() {
		t.Error("created and paid are not terminal")
	}
	if !OrderStatusCompleted.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Error("completed and cancelled are terminal")
	}
}
