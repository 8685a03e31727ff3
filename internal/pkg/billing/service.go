package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/tipmasterapp/tipmaster/app/models"
	"gorm.io/gorm"
)

// Service reconciles payment provider events against the subscriber and
// purchase ledger state. It is constructed with an injected repository;
// nothing in here holds process-global state.
type Service struct {
	repo    Repository
	catalog ProductCatalog
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository, catalog ProductCatalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewProductCatalogFromEnv())
}

// Catalog exposes the product-to-plan mapping used by this service.
func (s *Service) Catalog() ProductCatalog {
	return s.catalog
}

// RecordWebhookEvent persists webhook payloads idempotently. The returned
// bool is false when the same provider event id was already stored, i.e.
// this delivery is a duplicate.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// EnsureSubscriberForUser guarantees a subscriber row exists for a local
// user, creating one with free defaults on first authentication. The
// customer id stays null until the first purchase event links it.
func (s *Service) EnsureSubscriberForUser(ctx context.Context, userID uint, email string) (*models.Subscriber, error) {
	_ = ctx
	email = strings.ToLower(strings.TrimSpace(email))
	if userID == 0 || email == "" {
		return nil, errors.New("user_id and email are required")
	}

	sub, err := s.repo.GetSubscriberByUserID(userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// A purchase may have arrived before this user ever signed in.
	sub, err = s.repo.GetSubscriberByEmail(email)
	if err == nil {
		if sub.UserID == nil {
			uid := userID
			sub.UserID = &uid
			if err := s.repo.SaveSubscriber(sub); err != nil {
				return nil, err
			}
		}
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	uid := userID
	sub = &models.Subscriber{
		UserID:   &uid,
		Email:    email,
		IsPro:    false,
		PlanType: models.PlanNone,
	}
	if err := s.repo.CreateSubscriberIfNotExists(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// resolveSubscriber finds the subscriber for an event. The provider
// customer id is authoritative; email only matches rows that have no
// customer id yet (a pre-purchase signup), which then get linked.
func (s *Service) resolveSubscriber(ev *WebhookEvent) (*models.Subscriber, error) {
	sub, err := s.repo.GetSubscriberByCustomerID(models.BillingProviderCreem, ev.CustomerID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if ev.CustomerEmail == "" {
		return nil, gorm.ErrRecordNotFound
	}
	sub, err = s.repo.GetSubscriberByEmail(strings.ToLower(ev.CustomerEmail))
	if err != nil {
		return nil, err
	}
	if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID != ev.CustomerID {
		// Same email, different provider customer: not ours to touch.
		return nil, gorm.ErrRecordNotFound
	}
	return sub, nil
}

// RecordPurchase appends one ledger row for an accepted checkout event.
// Re-delivery of the same provider event id is a no-op insert; the caller
// learns whether a new row was written.
func (s *Service) RecordPurchase(ctx context.Context, ev *WebhookEvent, plan string) (bool, *models.PurchaseRecord, error) {
	_ = ctx
	if ev.RequestID == "" || ev.CustomerID == "" {
		return false, nil, errors.New("request id and customer id are required")
	}
	if !models.ValidPlanType(plan) || plan == models.PlanNone {
		plan = models.PlanMonthly
	}

	rec := &models.PurchaseRecord{
		Provider:           models.BillingProviderCreem,
		RequestID:          ev.RequestID,
		ProviderCustomerID: ev.CustomerID,
		OrderID:            ev.OrderID,
		CheckoutID:         ev.ObjectID,
		ProductID:          ev.ProductID,
		Status:             models.PurchaseStatusActive,
		PlanType:           plan,
	}
	if ev.SubscriptionID != "" {
		sid := ev.SubscriptionID
		rec.SubscriptionID = &sid
	}
	if sub, err := s.resolveSubscriber(ev); err == nil {
		id := sub.ID
		rec.SubscriberID = &id
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, err
	}

	return s.repo.InsertPurchaseIfNotExists(rec)
}

// UpsertProSubscriber applies a checkout.completed effect: the subscriber
// (created if absent) holds the customer id, goes pro on the given plan and
// keeps its original pro_since across re-deliveries and renewals.
func (s *Service) UpsertProSubscriber(ctx context.Context, ev *WebhookEvent, plan string) (*ApplyResult, error) {
	_ = ctx
	if ev.CustomerID == "" {
		return nil, ErrMissingCustomerID
	}
	if !models.ValidPlanType(plan) || plan == models.PlanNone {
		plan = models.PlanMonthly
	}

	sub, err := s.resolveSubscriber(ev)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cid := ev.CustomerID
		sub = &models.Subscriber{
			Email:              strings.ToLower(ev.CustomerEmail),
			ProviderCustomerID: &cid,
			PlanType:           models.PlanNone,
		}
		if err := s.repo.CreateSubscriberIfNotExists(sub); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	becamePro := !sub.IsPro
	cid := ev.CustomerID
	sub.ProviderCustomerID = &cid
	sub.IsPro = true
	sub.PlanType = plan
	if sub.Email == "" && ev.CustomerEmail != "" {
		sub.Email = strings.ToLower(ev.CustomerEmail)
	}
	if ev.SubscriptionID != "" {
		sid := ev.SubscriptionID
		sub.SubscriptionID = &sid
	}
	if sub.ProSince == nil {
		now := time.Now()
		sub.ProSince = &now
	}
	if err := s.repo.SaveSubscriber(sub); err != nil {
		return nil, err
	}
	return &ApplyResult{SubscriberID: sub.ID, UserID: sub.UserID, Email: sub.Email, BecamePro: becamePro}, nil
}

// MarkPaymentStatus moves the matching ledger row to the given status. A
// payment event with no matching purchase is logged and ignored: answering
// 5xx would only make the provider retry an event we can never match.
func (s *Service) MarkPaymentStatus(ctx context.Context, ev *WebhookEvent, status string) error {
	_ = ctx
	rec, err := s.repo.FindPurchaseForPayment(models.BillingProviderCreem, ev.OrderID, ev.SubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] %s for customer %s matches no purchase (order=%q subscription=%q)",
			ev.EventType, ev.CustomerID, ev.OrderID, ev.SubscriptionID)
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.UpdatePurchaseStatus(rec.ID, status, ev.FailureReason)
}

// ApplyRefund marks the matching purchase refunded and drops the pro flag.
func (s *Service) ApplyRefund(ctx context.Context, ev *WebhookEvent) (*ApplyResult, error) {
	if err := s.MarkPaymentStatus(ctx, ev, models.PurchaseStatusRefunded); err != nil {
		return nil, err
	}
	return s.dropPro(ev)
}

// ApplySubscriptionPeriod upserts the subscription period bounds for a
// created/renewed event and keeps the subscriber pro. pro_since is never
// touched by renewals.
func (s *Service) ApplySubscriptionPeriod(ctx context.Context, ev *WebhookEvent, plan string) (*ApplyResult, error) {
	_ = ctx
	if !isEntitlingStatus(ev.Status) {
		log.Warnf("[Billing] %s with non-entitling status %q ignored", ev.EventType, ev.Status)
		return nil, nil
	}

	res, err := s.UpsertProSubscriber(ctx, ev, plan)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetSubscriberByCustomerID(models.BillingProviderCreem, ev.CustomerID)
	if err != nil {
		return nil, err
	}
	sub.CurrentPeriodStart = ev.CurrentPeriodStart
	sub.CurrentPeriodEnd = ev.CurrentPeriodEnd
	if err := s.repo.SaveSubscriber(sub); err != nil {
		return nil, err
	}
	return res, nil
}

// CancelSubscription drops the pro flag. A cancellation for an unknown
// customer completes without creating a subscriber.
func (s *Service) CancelSubscription(ctx context.Context, ev *WebhookEvent) (*ApplyResult, error) {
	_ = ctx
	return s.dropPro(ev)
}

func (s *Service) dropPro(ev *WebhookEvent) (*ApplyResult, error) {
	sub, err := s.resolveSubscriber(ev)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] %s for unknown customer %s ignored", ev.EventType, ev.CustomerID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !sub.IsPro {
		return &ApplyResult{SubscriberID: sub.ID, UserID: sub.UserID, Email: sub.Email}, nil
	}
	sub.IsPro = false
	if err := s.repo.SaveSubscriber(sub); err != nil {
		return nil, err
	}
	return &ApplyResult{SubscriberID: sub.ID, UserID: sub.UserID, Email: sub.Email}, nil
}

// ProStatusForUser answers the status endpoint. Users with no subscriber
// row get the free default, never an error.
func (s *Service) ProStatusForUser(ctx context.Context, userID uint, email string) (ProStatus, error) {
	_ = ctx
	sub, err := s.repo.GetSubscriberByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) && email != "" {
		sub, err = s.repo.GetSubscriberByEmail(strings.ToLower(strings.TrimSpace(email)))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProStatus{}, nil
	}
	if err != nil {
		return ProStatus{}, err
	}

	status := ProStatus{IsPro: sub.IsPro, ProSince: sub.ProSince}
	if sub.PlanType != "" && sub.PlanType != models.PlanNone {
		plan := sub.PlanType
		status.PlanType = &plan
	}
	return status, nil
}

// ReconcileOrphanPurchases attaches ledger rows that were written before
// their subscriber existed. Returns how many rows were linked.
func (s *Service) ReconcileOrphanPurchases(ctx context.Context, limit int) (int, error) {
	_ = ctx
	if limit <= 0 {
		limit = 100
	}
	orphans, err := s.repo.ListOrphanPurchases(limit)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, rec := range orphans {
		sub, err := s.repo.GetSubscriberByCustomerID(models.BillingProviderCreem, rec.ProviderCustomerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return linked, err
		}
		if err := s.repo.AttachPurchaseSubscriber(rec.ID, sub.ID); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

// RecentWebhookEvents lists the newest stored webhook events for the admin
// surface.
func (s *Service) RecentWebhookEvents(ctx context.Context, limit int) ([]models.BillingWebhookEvent, error) {
	_ = ctx
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListRecentWebhookEvents(limit)
}
