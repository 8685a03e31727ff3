package billing

import (
	"errors"
	"testing"
	"time"
)

func TestParseWebhookEventCheckout(t *testing.T) {
	payload := []byte(`{
		"id": "evt_checkout_1",
		"eventType": "checkout.completed",
		"object": {
			"id": "ch_1",
			"status": "completed",
			"customer": {"id": "cust_1", "email": "Tipper@Example.com"},
			"product": {"id": "prod_yearly", "name": "Pro Yearly"},
			"last_transaction": {"order": "ord_1"},
			"subscription": {"id": "sub_1"}
		}
	}`)

	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.RequestID != "evt_checkout_1" || ev.EventType != EventCheckoutCompleted {
		t.Fatalf("unexpected envelope: %+v", ev)
	}
	if ev.CustomerID != "cust_1" || ev.CustomerEmail != "Tipper@Example.com" {
		t.Fatalf("unexpected customer: %+v", ev)
	}
	if ev.ObjectID != "ch_1" || ev.OrderID != "ord_1" || ev.ProductID != "prod_yearly" || ev.SubscriptionID != "sub_1" {
		t.Fatalf("unexpected object fields: %+v", ev)
	}
}

func TestParseWebhookEventProductFromItems(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"eventType": "checkout.completed",
		"object": {
			"customer": {"id": "cust_1"},
			"items": [{"product_id": "prod_monthly"}, {"product_id": "prod_other"}]
		}
	}`)

	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ProductID != "prod_monthly" {
		t.Fatalf("expected product id from first line item, got %q", ev.ProductID)
	}
}

func TestParseWebhookEventSubscriptionUsesObjectID(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	payload := []byte(`{
		"id": "evt_3",
		"eventType": "subscription.renewed",
		"object": {
			"id": "sub_77",
			"status": "active",
			"customer": {"id": "cust_1"},
			"current_period_start_date": "2026-08-01T00:00:00Z",
			"current_period_end_date": "2026-09-01T00:00:00Z"
		}
	}`)

	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.SubscriptionID != "sub_77" {
		t.Fatalf("expected subscription id from object id, got %q", ev.SubscriptionID)
	}
	if ev.CurrentPeriodStart == nil || !ev.CurrentPeriodStart.Equal(start) {
		t.Fatalf("unexpected period start: %v", ev.CurrentPeriodStart)
	}
	if ev.CurrentPeriodEnd == nil {
		t.Fatal("expected period end to be set")
	}
}

func TestParseWebhookEventRejectsIncomplete(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"missing id", `{"eventType":"checkout.completed","object":{"customer":{"id":"c"}}}`, ErrMissingEventID},
		{"missing type", `{"id":"evt_1","object":{"customer":{"id":"c"}}}`, ErrMissingEventType},
		{"missing customer", `{"id":"evt_1","eventType":"checkout.completed","object":{}}`, ErrMissingCustomerID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseWebhookEvent([]byte(tc.payload))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if _, err := ParseWebhookEvent([]byte(`{not json`)); err == nil {
		t.Fatal("expected malformed JSON to error")
	}
}

func TestParseWebhookEventUnknownTypeWithoutCustomer(t *testing.T) {
	// Unrecognized types are acknowledged as no-ops, so the customer id is
	// not required for them.
	ev, err := ParseWebhookEvent([]byte(`{"id":"evt_9","eventType":"dispute.created","object":{}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsRecognizedEventType(ev.EventType) {
		t.Fatalf("did not expect %q to be recognized", ev.EventType)
	}
}
