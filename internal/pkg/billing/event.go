package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event types emitted by the payment provider that we reconcile.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventPaymentSucceeded     = "payment.succeeded"
	EventPaymentFailed        = "payment.failed"
	EventPaymentRefunded      = "payment.refunded"
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionRenewed  = "subscription.renewed"
	EventSubscriptionCanceled = "subscription.canceled"
)

// WebhookEvent is the strongly-typed provider event envelope. RequestID is
// the provider-assigned event id used for idempotent purchase recording.
type WebhookEvent struct {
	RequestID          string
	EventType          string
	CustomerID         string
	CustomerEmail      string
	ObjectID           string
	OrderID            string
	ProductID          string
	ProductName        string
	Status             string
	FailureReason      string
	SubscriptionID     string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

var (
	ErrMissingEventID    = errors.New("webhook event missing id")
	ErrMissingEventType  = errors.New("webhook event missing eventType")
	ErrMissingCustomerID = errors.New("webhook event missing customer id")
)

// rawEvent mirrors the provider's wire format. Everything the handlers need
// is pulled out into WebhookEvent so no handler ever chases optional nesting.
type rawEvent struct {
	ID        string `json:"id"`
	EventType string `json:"eventType"`
	Object    struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Customer struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"customer"`
		Product struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"product"`
		Items []struct {
			ProductID string `json:"product_id"`
		} `json:"items"`
		LastTransaction struct {
			Order  string `json:"order"`
			Reason string `json:"failure_reason"`
		} `json:"last_transaction"`
		Subscription struct {
			ID string `json:"id"`
		} `json:"subscription"`
		CurrentPeriodStart *time.Time `json:"current_period_start_date"`
		CurrentPeriodEnd   *time.Time `json:"current_period_end_date"`
	} `json:"object"`
}

// ParseWebhookEvent decodes and validates a provider event envelope. It
// fails fast on events missing required identity fields instead of letting
// empty values propagate into the reconciliation path.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	eventType := strings.TrimSpace(raw.EventType)
	if eventType == "" {
		return nil, ErrMissingEventType
	}
	requestID := strings.TrimSpace(raw.ID)
	if requestID == "" {
		return nil, ErrMissingEventID
	}

	ev := &WebhookEvent{
		RequestID:          requestID,
		EventType:          eventType,
		CustomerID:         strings.TrimSpace(raw.Object.Customer.ID),
		CustomerEmail:      strings.TrimSpace(raw.Object.Customer.Email),
		ObjectID:           strings.TrimSpace(raw.Object.ID),
		OrderID:            strings.TrimSpace(raw.Object.LastTransaction.Order),
		ProductID:          strings.TrimSpace(raw.Object.Product.ID),
		ProductName:        strings.TrimSpace(raw.Object.Product.Name),
		Status:             strings.TrimSpace(raw.Object.Status),
		FailureReason:      strings.TrimSpace(raw.Object.LastTransaction.Reason),
		SubscriptionID:     strings.TrimSpace(raw.Object.Subscription.ID),
		CurrentPeriodStart: raw.Object.CurrentPeriodStart,
		CurrentPeriodEnd:   raw.Object.CurrentPeriodEnd,
	}

	// Some payload variants carry the product only on the first line item.
	if ev.ProductID == "" && len(raw.Object.Items) > 0 {
		ev.ProductID = strings.TrimSpace(raw.Object.Items[0].ProductID)
	}
	// Subscription events use the object id as the subscription id.
	if ev.SubscriptionID == "" && strings.HasPrefix(eventType, "subscription.") {
		ev.SubscriptionID = ev.ObjectID
	}

	if IsRecognizedEventType(eventType) && ev.CustomerID == "" {
		return nil, ErrMissingCustomerID
	}

	return ev, nil
}

// IsRecognizedEventType reports whether the router has a handler for the type.
func IsRecognizedEventType(eventType string) bool {
	switch eventType {
	case EventCheckoutCompleted,
		EventPaymentSucceeded,
		EventPaymentFailed,
		EventPaymentRefunded,
		EventSubscriptionCreated,
		EventSubscriptionRenewed,
		EventSubscriptionCanceled:
		return true
	default:
		return false
	}
}
