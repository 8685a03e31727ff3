package entitlements

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "pro", want: PlanPro},
		{in: "PRO", want: PlanPro},
		{in: "", want: PlanFree},
		{in: "invalid", want: PlanFree},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProUnlocksAdvancedMode(t *testing.T) {
	if CanUseAdvancedMode(PlanFree) {
		t.Fatalf("free plan must not unlock advanced mode")
	}
	if !CanUseAdvancedMode(PlanPro) {
		t.Fatalf("pro plan must unlock advanced mode")
	}
	if MaxPartySize(PlanFree) >= MaxPartySize(PlanPro) {
		t.Fatalf("pro party size should exceed free party size")
	}
}
