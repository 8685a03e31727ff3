package entitlements

import "strings"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Normalize maps arbitrary plan strings to a known plan, defaulting to free.
func Normalize(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPro):
		return PlanPro
	default:
		return PlanFree
	}
}

// CanUseAdvancedMode reports whether per-person individual tips are unlocked.
func CanUseAdvancedMode(plan Plan) bool {
	return plan == PlanPro
}

// MaxPartySize returns how many people a bill may be split across.
func MaxPartySize(plan Plan) int {
	if plan == PlanPro {
		return 100
	}
	return 10
}

// HistoryLimit returns how many recent calculations the account endpoint
// reports from the usage counters view.
func HistoryLimit(plan Plan) int {
	if plan == PlanPro {
		return 100
	}
	return 10
}
