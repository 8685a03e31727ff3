package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sujit-baniya/flash"

	"github.com/tipmasterapp/tipmaster/app/models"
	"github.com/tipmasterapp/tipmaster/internal/pkg/billing"
	"github.com/tipmasterapp/tipmaster/internal/pkg/cache"
	"github.com/tipmasterapp/tipmaster/internal/pkg/database"
	"github.com/tipmasterapp/tipmaster/internal/pkg/entitlements"
	"github.com/tipmasterapp/tipmaster/internal/pkg/env"
	"github.com/tipmasterapp/tipmaster/internal/pkg/jobqueue"
	"github.com/tipmasterapp/tipmaster/internal/pkg/session"
	"github.com/tipmasterapp/tipmaster/internal/pkg/usercontext"
)

// newBillingWebhookService builds the service backing webhook ingestion.
// Package variable so tests can run the handler against an in-memory
// repository.
var newBillingWebhookService = func() *billing.Service {
	return billing.NewServiceFromDB(database.GetDB())
}

// HandleCreemWebhook ingests provider webhooks. Every delivery is persisted
// before any validation so even rejected payloads are auditable. The response
// is written only after reconciliation finished; a 5xx makes the provider
// redeliver, which the event log and ledger uniqueness absorb.
func HandleCreemWebhook(c *fiber.Ctx) error {
	// Raw bytes must be captured before any body parsing; the signature
	// covers the exact payload as sent.
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("creem-signature"))
	secret := env.GetEnv("CREEM_WEBHOOK_SECRET", "")

	svc := newBillingWebhookService()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := billing.VerifyWebhookSignature(rawBody, signature, secret)

	// Pull the event id out ahead of full parsing so malformed payloads
	// still deduplicate on their body hash.
	var envelope struct {
		ID        string `json:"id"`
		EventType string `json:"eventType"`
	}
	_ = json.Unmarshal(rawBody, &envelope)

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderCreem,
		ProviderEventID: envelope.ID,
		EventType:       envelope.EventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		log.Errorf("[Billing] Failed to persist webhook event: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		// Acknowledge re-deliveries only when the first delivery went
		// through. A stored event whose processing failed (or never ran)
		// is the provider's retry after our 5xx; run it again, the
		// reconciler absorbs the repeat.
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
		}
	}
	if !signatureValid {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := billing.ParseWebhookEvent(rawBody)
	if err != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	router := billing.NewEventRouter(svc)
	outcome, err := router.Dispatch(ctx, event)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
	if err != nil {
		log.Errorf("[Billing] Event %s (%s) failed: %v", event.RequestID, event.EventType, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_processing_failed"})
	}

	if outcome.Apply != nil {
		applyBillingSideEffects(outcome.Apply, event)
	}
	if !outcome.Handled {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// applyBillingSideEffects runs the post-reconciliation effects that only
// fire when subscriber state actually changed.
func applyBillingSideEffects(apply *billing.ApplyResult, event *billing.WebhookEvent) {
	if apply.UserID != nil {
		cache.InvalidateProStatus(*apply.UserID)
	}
	if apply.BecamePro && apply.Email != "" {
		plan := models.PlanMonthly
		if event != nil {
			svc := billing.NewServiceFromDB(database.GetDB())
			plan = svc.Catalog().PlanForEvent(event)
		}
		jobqueue.GetManager().EnqueueProWelcomeMail(apply.Email, plan)
	}
}

// HandlePaymentCallback handles the signed success redirect the provider
// sends the customer back to after checkout. The signature only proves the
// redirect is authentic; entitlement flips stay webhook-driven.
func HandlePaymentCallback(c *fiber.Ctx) error {
	params := map[string]string{}
	for key, value := range c.Queries() {
		params[key] = value
	}
	signature := c.Query("signature")
	secret := env.GetEnv("CREEM_WEBHOOK_SECRET", "")

	if !billing.VerifyRedirectSignature(params, signature, secret) {
		log.Warnf("[Billing] Payment callback with invalid signature (checkout=%s)", c.Query("checkout_id"))
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Payment confirmation could not be verified"}).Redirect("/")
	}

	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		// Drop the cached plan so the next request reflects the purchase
		// as soon as the webhook lands.
		cache.InvalidateProStatus(userCtx.UserID)
		_ = session.SetSessionValue(c, "user_plan", "")
	}

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Payment received! Your Pro features unlock momentarily."}).Redirect("/")
}

type checkoutRequest struct {
	Plan      string `json:"plan" validate:"omitempty,oneof=monthly yearly"`
	ProductID string `json:"product_id" validate:"omitempty,max=128"`
}

// HandleCreateCheckout opens a hosted checkout session for the session user.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if !models.GetAppSettings().IsCheckoutEnabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "checkout_disabled"})
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_plan"})
	}

	// Callers may name the product directly or pick a plan tier that maps
	// to a configured product id. A direct id must still be in the catalog.
	catalog := billing.NewProductCatalogFromEnv()
	productID := req.ProductID
	if productID == "" {
		productID = catalog.MonthlyProductID
		if req.Plan == models.PlanYearly {
			productID = catalog.YearlyProductID
		}
	} else if !catalog.Contains(productID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_product"})
	}
	if productID == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "plan_not_configured"})
	}

	var user models.User
	if err := database.GetDB().First(&user, userCtx.UserID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "user_lookup_failed"})
	}

	client := billing.NewCreemClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sess, err := client.CreateCheckout(ctx, productID, uuid.New().String(), user.Email)
	if err != nil {
		log.Errorf("[Billing] Checkout creation failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "checkout_failed"})
	}

	return c.JSON(fiber.Map{"checkout_url": sess.CheckoutURL, "checkout_id": sess.ID})
}

// HandleProStatus answers the pro-status poll. Responses are cached in Redis
// for a few minutes; webhook side effects invalidate the entry.
func HandleProStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	if cached, err := cache.GetProStatus(userCtx.UserID); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	var user models.User
	if err := database.GetDB().First(&user, userCtx.UserID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "user_lookup_failed"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	status, err := svc.ProStatusForUser(c.Context(), userCtx.UserID, user.Email)
	if err != nil {
		log.Errorf("[Billing] Pro status lookup failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_lookup_failed"})
	}

	if payload, err := json.Marshal(status); err == nil {
		_ = cache.SetProStatus(userCtx.UserID, string(payload))
	}
	return c.JSON(status)
}

// HandleBillingResync re-derives the session plan from the subscriber store.
// The escape hatch for users whose webhook landed while they were signed out.
func HandleBillingResync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	var user models.User
	if err := database.GetDB().First(&user, userCtx.UserID).Error; err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Account lookup failed"}).Redirect("/account")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := svc.EnsureSubscriberForUser(ctx, user.ID, user.Email); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Plan re-sync failed"}).Redirect("/account")
	}
	status, err := svc.ProStatusForUser(ctx, user.ID, user.Email)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Plan re-sync failed"}).Redirect("/account")
	}

	plan := entitlements.PlanFree
	if status.IsPro {
		plan = entitlements.PlanPro
	}
	cache.InvalidateProStatus(user.ID)
	_ = session.SetSessionValue(c, "user_plan", string(plan))

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Plan refreshed: " + string(plan)}).Redirect("/account")
}
