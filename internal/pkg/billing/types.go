package billing

import "time"

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// ProStatus is the subscription view handed to the status endpoint.
// The zero value is the correct answer for "not yet a customer".
type ProStatus struct {
	IsPro    bool       `json:"is_pro"`
	PlanType *string    `json:"plan_type"`
	ProSince *time.Time `json:"pro_since"`
}

// ApplyResult reports what a reconciliation op did, so callers can trigger
// side effects (welcome mail, cache invalidation) only when state changed.
type ApplyResult struct {
	SubscriberID uint
	UserID       *uint
	Email        string
	BecamePro    bool
}
