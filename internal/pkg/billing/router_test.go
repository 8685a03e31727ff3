package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipmasterapp/tipmaster/app/models"
)

func TestDispatchUnknownEventType(t *testing.T) {
	repo := newFakeRepository()
	router := NewEventRouter(NewService(repo, testCatalog()))

	out, err := router.Dispatch(context.Background(), &WebhookEvent{
		RequestID:  "evt_unknown",
		EventType:  "dispute.created",
		CustomerID: "cust_1",
	})
	require.NoError(t, err)
	assert.False(t, out.Handled)
	assert.Empty(t, repo.subscribers)
	assert.Empty(t, repo.purchases)
}

func TestDispatchCheckoutCompleted(t *testing.T) {
	repo := newFakeRepository()
	router := NewEventRouter(NewService(repo, testCatalog()))
	ctx := context.Background()

	out, err := router.Dispatch(ctx, checkoutEvent())
	require.NoError(t, err)
	assert.True(t, out.Handled)
	assert.True(t, out.PurchaseRecorded)
	require.NotNil(t, out.Apply)
	assert.True(t, out.Apply.BecamePro)

	require.Len(t, repo.purchases, 1)
	assert.Equal(t, models.PlanYearly, repo.purchases[0].PlanType)
	require.Len(t, repo.subscribers, 1)
	assert.True(t, repo.subscribers[0].IsPro)

	// Re-delivery of the same event: nothing new is written.
	out, err = router.Dispatch(ctx, checkoutEvent())
	require.NoError(t, err)
	assert.True(t, out.Handled)
	assert.False(t, out.PurchaseRecorded)
	assert.False(t, out.Apply.BecamePro)
	assert.Len(t, repo.purchases, 1)
	assert.Len(t, repo.subscribers, 1)
}

func TestDispatchPaymentLifecycle(t *testing.T) {
	repo := newFakeRepository()
	router := NewEventRouter(NewService(repo, testCatalog()))
	ctx := context.Background()

	_, err := router.Dispatch(ctx, checkoutEvent())
	require.NoError(t, err)

	succeeded := *checkoutEvent()
	succeeded.RequestID = "evt_pay_1"
	succeeded.EventType = EventPaymentSucceeded
	out, err := router.Dispatch(ctx, &succeeded)
	require.NoError(t, err)
	assert.True(t, out.Handled)
	assert.Equal(t, models.PurchaseStatusPaid, repo.purchases[0].Status)

	failed := succeeded
	failed.RequestID = "evt_pay_2"
	failed.EventType = EventPaymentFailed
	failed.FailureReason = "card_declined"
	_, err = router.Dispatch(ctx, &failed)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusFailed, repo.purchases[0].Status)
	assert.Equal(t, "card_declined", repo.purchases[0].FailureReason)

	refunded := succeeded
	refunded.RequestID = "evt_pay_3"
	refunded.EventType = EventPaymentRefunded
	_, err = router.Dispatch(ctx, &refunded)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusRefunded, repo.purchases[0].Status)
	assert.False(t, repo.subscribers[0].IsPro)
}

func TestDispatchSubscriptionCanceled(t *testing.T) {
	repo := newFakeRepository()
	router := NewEventRouter(NewService(repo, testCatalog()))
	ctx := context.Background()

	_, err := router.Dispatch(ctx, checkoutEvent())
	require.NoError(t, err)

	cancel := *checkoutEvent()
	cancel.RequestID = "evt_cancel_1"
	cancel.EventType = EventSubscriptionCanceled
	out, err := router.Dispatch(ctx, &cancel)
	require.NoError(t, err)
	assert.True(t, out.Handled)
	assert.False(t, repo.subscribers[0].IsPro)
}
