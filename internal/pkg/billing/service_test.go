package billing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tipmasterapp/tipmaster/app/models"
)

// fakeRepository is an in-memory Repository with the same uniqueness
// semantics as the schema: one subscriber per provider customer id, one
// purchase per (provider, request_id), one stored event per provider event id.
type fakeRepository struct {
	subscribers []models.Subscriber
	purchases   []models.PurchaseRecord
	events      []models.BillingWebhookEvent

	nextSubscriberID uint
	nextPurchaseID   uint
	nextEventID      uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{nextSubscriberID: 1, nextPurchaseID: 1, nextEventID: 1}
}

func (f *fakeRepository) GetSubscriberByCustomerID(provider, customerID string) (*models.Subscriber, error) {
	for i := range f.subscribers {
		s := f.subscribers[i]
		if s.ProviderCustomerID != nil && *s.ProviderCustomerID == customerID {
			out := s
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSubscriberByEmail(email string) (*models.Subscriber, error) {
	for i := range f.subscribers {
		if strings.EqualFold(f.subscribers[i].Email, email) {
			out := f.subscribers[i]
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSubscriberByUserID(userID uint) (*models.Subscriber, error) {
	for i := range f.subscribers {
		s := f.subscribers[i]
		if s.UserID != nil && *s.UserID == userID {
			out := s
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateSubscriberIfNotExists(sub *models.Subscriber) error {
	if sub.ProviderCustomerID != nil {
		if existing, err := f.GetSubscriberByCustomerID(models.BillingProviderCreem, *sub.ProviderCustomerID); err == nil {
			*sub = *existing
			return nil
		}
	}
	sub.ID = f.nextSubscriberID
	f.nextSubscriberID++
	f.subscribers = append(f.subscribers, *sub)
	return nil
}

func (f *fakeRepository) SaveSubscriber(sub *models.Subscriber) error {
	for i := range f.subscribers {
		if f.subscribers[i].ID == sub.ID {
			f.subscribers[i] = *sub
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) InsertPurchaseIfNotExists(rec *models.PurchaseRecord) (bool, *models.PurchaseRecord, error) {
	for i := range f.purchases {
		p := f.purchases[i]
		if p.Provider == rec.Provider && p.RequestID == rec.RequestID {
			out := p
			return false, &out, nil
		}
	}
	rec.ID = f.nextPurchaseID
	f.nextPurchaseID++
	rec.CreatedAt = time.Now()
	f.purchases = append(f.purchases, *rec)
	out := *rec
	return true, &out, nil
}

func (f *fakeRepository) FindPurchaseForPayment(provider, orderID, subscriptionID string) (*models.PurchaseRecord, error) {
	if orderID != "" {
		for i := len(f.purchases) - 1; i >= 0; i-- {
			if f.purchases[i].Provider == provider && f.purchases[i].OrderID == orderID {
				out := f.purchases[i]
				return &out, nil
			}
		}
	}
	if subscriptionID != "" {
		for i := len(f.purchases) - 1; i >= 0; i-- {
			p := f.purchases[i]
			if p.Provider == provider && p.SubscriptionID != nil && *p.SubscriptionID == subscriptionID {
				out := p
				return &out, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdatePurchaseStatus(id uint, status, failureReason string) error {
	for i := range f.purchases {
		if f.purchases[i].ID == id {
			f.purchases[i].Status = status
			f.purchases[i].FailureReason = failureReason
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListOrphanPurchases(limit int) ([]models.PurchaseRecord, error) {
	var out []models.PurchaseRecord
	for _, p := range f.purchases {
		if p.SubscriberID == nil {
			out = append(out, p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepository) AttachPurchaseSubscriber(purchaseID, subscriberID uint) error {
	for i := range f.purchases {
		if f.purchases[i].ID == purchaseID {
			id := subscriberID
			f.purchases[i].SubscriberID = &id
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListPurchasesCreatedBefore(cutoff time.Time, limit int) ([]models.PurchaseRecord, error) {
	var out []models.PurchaseRecord
	for _, p := range f.purchases {
		if p.CreatedAt.Before(cutoff) {
			out = append(out, p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	for i := range f.events {
		e := f.events[i]
		if e.Provider == event.Provider && e.ProviderEventID == event.ProviderEventID {
			out := e
			return false, &out, nil
		}
	}
	event.ID = f.nextEventID
	f.nextEventID++
	f.events = append(f.events, *event)
	out := *event
	return true, &out, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for i := range f.events {
		if f.events[i].ID == id {
			now := time.Now()
			f.events[i].ProcessedAt = &now
			f.events[i].ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListRecentWebhookEvents(limit int) ([]models.BillingWebhookEvent, error) {
	out := make([]models.BillingWebhookEvent, 0, limit)
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.events[i])
	}
	return out, nil
}

func testCatalog() ProductCatalog {
	return ProductCatalog{MonthlyProductID: "prod_monthly", YearlyProductID: "prod_yearly"}
}

func checkoutEvent() *WebhookEvent {
	return &WebhookEvent{
		RequestID:      "evt_checkout_1",
		EventType:      EventCheckoutCompleted,
		CustomerID:     "cust_1",
		CustomerEmail:  "tipper@example.com",
		ObjectID:       "ch_1",
		OrderID:        "ord_1",
		ProductID:      "prod_yearly",
		SubscriptionID: "sub_1",
	}
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()

	in := WebhookEventInput{
		Provider:        "creem",
		ProviderEventID: "evt_1",
		EventType:       EventCheckoutCompleted,
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, stored, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	created, again, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)
	assert.Len(t, repo.events, 1)
}

func TestRecordWebhookEventHashesMissingID(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())

	payload := `{"eventType":"checkout.completed"}`
	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    "creem",
		PayloadJSON: payload,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, strings.HasPrefix(stored.ProviderEventID, "hash:"))

	// Same body re-delivered without an id still deduplicates.
	created, _, err = svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    "creem",
		PayloadJSON: payload,
	})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUpsertProSubscriberIdempotent(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()
	ev := checkoutEvent()

	res, err := svc.UpsertProSubscriber(ctx, ev, models.PlanYearly)
	require.NoError(t, err)
	assert.True(t, res.BecamePro)

	sub, err := repo.GetSubscriberByCustomerID(models.BillingProviderCreem, "cust_1")
	require.NoError(t, err)
	assert.True(t, sub.IsPro)
	assert.Equal(t, models.PlanYearly, sub.PlanType)
	require.NotNil(t, sub.ProSince)
	firstProSince := *sub.ProSince

	// Re-delivery: same customer, no second row, pro_since unchanged.
	res, err = svc.UpsertProSubscriber(ctx, ev, models.PlanYearly)
	require.NoError(t, err)
	assert.False(t, res.BecamePro)
	assert.Len(t, repo.subscribers, 1)

	sub, err = repo.GetSubscriberByCustomerID(models.BillingProviderCreem, "cust_1")
	require.NoError(t, err)
	assert.True(t, sub.ProSince.Equal(firstProSince))
}

func TestUpsertProSubscriberLinksPreexistingSignup(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()

	// User signed in before ever purchasing: subscriber row without a
	// provider customer id.
	existing, err := svc.EnsureSubscriberForUser(ctx, 42, "tipper@example.com")
	require.NoError(t, err)
	assert.Nil(t, existing.ProviderCustomerID)
	assert.False(t, existing.IsPro)

	res, err := svc.UpsertProSubscriber(ctx, checkoutEvent(), models.PlanMonthly)
	require.NoError(t, err)
	assert.True(t, res.BecamePro)
	require.NotNil(t, res.UserID)
	assert.Equal(t, uint(42), *res.UserID)
	assert.Len(t, repo.subscribers, 1)

	sub, err := repo.GetSubscriberByUserID(42)
	require.NoError(t, err)
	require.NotNil(t, sub.ProviderCustomerID)
	assert.Equal(t, "cust_1", *sub.ProviderCustomerID)
	assert.True(t, sub.IsPro)
}

func TestUpsertProSubscriberIgnoresForeignEmailMatch(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()

	// Same email but already bound to a different provider customer.
	otherCID := "cust_other"
	require.NoError(t, repo.CreateSubscriberIfNotExists(&models.Subscriber{
		Email:              "tipper@example.com",
		ProviderCustomerID: &otherCID,
		IsPro:              true,
		PlanType:           models.PlanMonthly,
	}))

	_, err := svc.UpsertProSubscriber(ctx, checkoutEvent(), models.PlanYearly)
	require.NoError(t, err)
	assert.Len(t, repo.subscribers, 2)

	other, err := repo.GetSubscriberByCustomerID(models.BillingProviderCreem, otherCID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanMonthly, other.PlanType)
}

func TestRecordPurchaseIdempotent(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()
	ev := checkoutEvent()

	created, rec, err := svc.RecordPurchase(ctx, ev, models.PlanYearly)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.PurchaseStatusActive, rec.Status)
	assert.Equal(t, "ord_1", rec.OrderID)

	created, again, err := svc.RecordPurchase(ctx, ev, models.PlanYearly)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.ID, again.ID)
	assert.Len(t, repo.purchases, 1)
}

func TestMarkPaymentStatusUnknownPurchaseIsNoop(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())

	ev := &WebhookEvent{
		RequestID:  "evt_pay_1",
		EventType:  EventPaymentSucceeded,
		CustomerID: "cust_1",
		OrderID:    "ord_unmatched",
	}
	err := svc.MarkPaymentStatus(context.Background(), ev, models.PurchaseStatusPaid)
	require.NoError(t, err)
	assert.Empty(t, repo.purchases)
}

func TestApplyRefundDropsProAndMarksPurchase(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()
	ev := checkoutEvent()

	_, _, err := svc.RecordPurchase(ctx, ev, models.PlanYearly)
	require.NoError(t, err)
	_, err = svc.UpsertProSubscriber(ctx, ev, models.PlanYearly)
	require.NoError(t, err)

	refund := *ev
	refund.RequestID = "evt_refund_1"
	refund.EventType = EventPaymentRefunded
	_, err = svc.ApplyRefund(ctx, &refund)
	require.NoError(t, err)

	assert.Equal(t, models.PurchaseStatusRefunded, repo.purchases[0].Status)
	sub, err := repo.GetSubscriberByCustomerID(models.BillingProviderCreem, "cust_1")
	require.NoError(t, err)
	assert.False(t, sub.IsPro)
	// Plan and history stay on the row after the flag drops.
	assert.Equal(t, models.PlanYearly, sub.PlanType)
	assert.NotNil(t, sub.ProSince)
}

func TestApplySubscriptionPeriod(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	ev := &WebhookEvent{
		RequestID:          "evt_sub_1",
		EventType:          EventSubscriptionRenewed,
		CustomerID:         "cust_1",
		CustomerEmail:      "tipper@example.com",
		SubscriptionID:     "sub_1",
		Status:             "active",
		ProductID:          "prod_monthly",
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}

	res, err := svc.ApplySubscriptionPeriod(ctx, ev, models.PlanMonthly)
	require.NoError(t, err)
	require.NotNil(t, res)

	sub, err := repo.GetSubscriberByCustomerID(models.BillingProviderCreem, "cust_1")
	require.NoError(t, err)
	assert.True(t, sub.IsPro)
	require.NotNil(t, sub.CurrentPeriodStart)
	assert.True(t, sub.CurrentPeriodStart.Equal(start))
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, sub.CurrentPeriodEnd.Equal(end))
}

func TestApplySubscriptionPeriodSkipsNonEntitlingStatus(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())

	ev := &WebhookEvent{
		RequestID:  "evt_sub_2",
		EventType:  EventSubscriptionCreated,
		CustomerID: "cust_1",
		Status:     "canceled",
	}
	res, err := svc.ApplySubscriptionPeriod(context.Background(), ev, models.PlanMonthly)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, repo.subscribers)
}

func TestCancelSubscriptionUnknownCustomerIsNoop(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())

	ev := &WebhookEvent{
		RequestID:  "evt_cancel_1",
		EventType:  EventSubscriptionCanceled,
		CustomerID: "cust_ghost",
	}
	res, err := svc.CancelSubscription(context.Background(), ev)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, repo.subscribers)
}

func TestCancelSubscriptionKeepsPlanType(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()
	ev := checkoutEvent()

	_, err := svc.UpsertProSubscriber(ctx, ev, models.PlanYearly)
	require.NoError(t, err)

	cancel := *ev
	cancel.RequestID = "evt_cancel_2"
	cancel.EventType = EventSubscriptionCanceled
	_, err = svc.CancelSubscription(ctx, &cancel)
	require.NoError(t, err)

	sub, err := repo.GetSubscriberByCustomerID(models.BillingProviderCreem, "cust_1")
	require.NoError(t, err)
	assert.False(t, sub.IsPro)
	assert.Equal(t, models.PlanYearly, sub.PlanType)
}

func TestProStatusForUser(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()

	// Unknown users get the free default, not an error.
	status, err := svc.ProStatusForUser(ctx, 99, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, status.IsPro)
	assert.Nil(t, status.PlanType)
	assert.Nil(t, status.ProSince)

	_, err = svc.EnsureSubscriberForUser(ctx, 42, "tipper@example.com")
	require.NoError(t, err)
	_, err = svc.UpsertProSubscriber(ctx, checkoutEvent(), models.PlanYearly)
	require.NoError(t, err)

	status, err = svc.ProStatusForUser(ctx, 42, "tipper@example.com")
	require.NoError(t, err)
	assert.True(t, status.IsPro)
	require.NotNil(t, status.PlanType)
	assert.Equal(t, models.PlanYearly, *status.PlanType)
	assert.NotNil(t, status.ProSince)
}

func TestEnsureSubscriberForUserAdoptsPurchaseFirstRow(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()

	// Purchase arrived before the user ever signed in.
	_, err := svc.UpsertProSubscriber(ctx, checkoutEvent(), models.PlanMonthly)
	require.NoError(t, err)

	sub, err := svc.EnsureSubscriberForUser(ctx, 7, "tipper@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub.UserID)
	assert.Equal(t, uint(7), *sub.UserID)
	assert.True(t, sub.IsPro)
	assert.Len(t, repo.subscribers, 1)
}

func TestReconcileOrphanPurchases(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, testCatalog())
	ctx := context.Background()
	ev := checkoutEvent()

	// Purchase first, subscriber second: the ledger row starts orphaned.
	_, rec, err := svc.RecordPurchase(ctx, ev, models.PlanYearly)
	require.NoError(t, err)
	assert.Nil(t, rec.SubscriberID)

	_, err = svc.UpsertProSubscriber(ctx, ev, models.PlanYearly)
	require.NoError(t, err)

	linked, err := svc.ReconcileOrphanPurchases(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, linked)
	require.NotNil(t, repo.purchases[0].SubscriberID)

	// Nothing left to link on the second pass.
	linked, err = svc.ReconcileOrphanPurchases(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, linked)
}
