package billing

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/tipmasterapp/tipmaster/app/models"
)

// Outcome tells the webhook endpoint what a dispatched event did.
type Outcome struct {
	// Handled is false for event types without a handler; those are
	// acknowledged so the provider stops retrying them.
	Handled bool
	// Apply carries reconciliation side-effect info when a subscriber
	// changed, nil otherwise.
	Apply *ApplyResult
	// PurchaseRecorded is true when a new ledger row was written.
	PurchaseRecorded bool
}

// HandlerFunc processes one verified, parsed event.
type HandlerFunc func(ctx context.Context, ev *WebhookEvent) (*Outcome, error)

// EventRouter dispatches verified events to exactly one handler selected by
// event type. Dispatch is synchronous: the HTTP response is written only
// after the handler finished or failed.
type EventRouter struct {
	svc      *Service
	handlers map[string]HandlerFunc
}

// NewEventRouter builds the fixed event-type dispatch table.
func NewEventRouter(svc *Service) *EventRouter {
	r := &EventRouter{svc: svc}
	r.handlers = map[string]HandlerFunc{
		EventCheckoutCompleted:    r.handleCheckoutCompleted,
		EventPaymentSucceeded:     r.handlePaymentSucceeded,
		EventPaymentFailed:        r.handlePaymentFailed,
		EventPaymentRefunded:      r.handlePaymentRefunded,
		EventSubscriptionCreated:  r.handleSubscriptionUpsert,
		EventSubscriptionRenewed:  r.handleSubscriptionUpsert,
		EventSubscriptionCanceled: r.handleSubscriptionCanceled,
	}
	return r
}

// Dispatch routes the event to its handler. Unknown event types are logged
// and acknowledged as a no-op.
func (r *EventRouter) Dispatch(ctx context.Context, ev *WebhookEvent) (*Outcome, error) {
	handler, ok := r.handlers[ev.EventType]
	if !ok {
		log.Infof("[Billing] ignoring unhandled event type %q (id=%s)", ev.EventType, ev.RequestID)
		return &Outcome{Handled: false}, nil
	}
	return handler(ctx, ev)
}

// handleCheckoutCompleted records the purchase first, then flips the
// subscriber to pro. If the second step fails the caller answers 500; the
// provider's retry finds the ledger row already present (no-op insert) and
// re-runs only the subscriber upsert, which is idempotent.
func (r *EventRouter) handleCheckoutCompleted(ctx context.Context, ev *WebhookEvent) (*Outcome, error) {
	plan := r.svc.Catalog().PlanForEvent(ev)

	created, _, err := r.svc.RecordPurchase(ctx, ev, plan)
	if err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	apply, err := r.svc.UpsertProSubscriber(ctx, ev, plan)
	if err != nil {
		// Distinct partial-failure log: the ledger row exists but the
		// subscriber was not updated.
		log.Errorf("[Billing] purchase %s recorded but subscriber update failed: %v", ev.RequestID, err)
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}

	return &Outcome{Handled: true, Apply: apply, PurchaseRecorded: created}, nil
}

func (r *EventRouter) handlePaymentSucceeded(ctx context.Context, ev *WebhookEvent) (*Outcome, error) {
	if err := r.svc.MarkPaymentStatus(ctx, ev, models.PurchaseStatusPaid); err != nil {
		return nil, err
	}
	return &Outcome{Handled: true}, nil
}

func (r *EventRouter) handlePaymentFailed(ctx context.Context, ev *WebhookEvent) (*Outcome, error) {
	if err := r.svc.MarkPaymentStatus(ctx, ev, models.PurchaseStatusFailed); err != nil {
		return nil, err
	}
	return &Outcome{Handled: true}, nil
}

func (r *EventRouter) handlePaymentRefunded(ctx context.Context, ev *WebhookEvent) (*Outcome, error) {
	apply, err := r.svc.ApplyRefund(ctx, ev)
	if err != nil {
		return nil, err
	}
	return &Outcome{Handled: true, Apply: apply}, nil
}

func (r *EventRouter) handleSubscriptionUpsert(ctx context.Context, ev *WebhookEvent) (*Outcome, error) {
	plan := r.svc.Catalog().PlanForEvent(ev)
	apply, err := r.svc.ApplySubscriptionPeriod(ctx, ev, plan)
	if err != nil {
		return nil, err
	}
	return &Outcome{Handled: true, Apply: apply}, nil
}

func (r *EventRouter) handleSubscriptionCanceled(ctx context.Context, ev *WebhookEvent) (*Outcome, error) {
	apply, err := r.svc.CancelSubscription(ctx, ev)
	if err != nil {
		return nil, err
	}
	return &Outcome{Handled: true, Apply: apply}, nil
}
