package booking

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusAwaitingDeposit, true},
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusDone, false},
		{StatusAwaitingDeposit, StatusConfirmed, true},
		{StatusAwaitingDeposit, StatusInProgress, false},
		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusPending, false},
		{StatusInProgress, StatusDone, true},
		{StatusDone, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []string{StatusDone, StatusCancelled, StatusExpired}
	for _, s := range terminal {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
	nonTerminal := []string{StatusPending, StatusAwaitingDeposit, StatusConfirmed, StatusInProgress}
	for _, s := range nonTerminal {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}
}

func TestRequiresDeposit(t *testing.T) {
	tests := []struct {
		name string
		in   DepositPolicyInput
		want bool
	}{
		{"plain weekday repeat client", DepositPolicyInput{}, false},
		{"weekend", DepositPolicyInput{IsWeekend: true}, true},
		{"deep clean", DepositPolicyInput{IsDeepClean: true}, true},
		{"new client", DepositPolicyInput{IsNewClient: true}, true},
		{"all three", DepositPolicyInput{IsWeekend: true, IsDeepClean: true, IsNewClient: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiresDeposit(tt.in); got != tt.want {
				t.Errorf("RequiresDeposit(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBookingEndsAt(t *testing.T) {
	b := Booking{DurationMinutes: 90}
	end := b.EndsAt()
	if got := end.Sub(b.StartsAt); got.Minutes() != 90 {
		t.Errorf("EndsAt - StartsAt = %v, want 90m", got)
	}
}
