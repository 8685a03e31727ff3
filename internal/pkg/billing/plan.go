package billing

import (
	"strings"

	"github.com/tipmasterapp/tipmaster/app/models"
	"github.com/tipmasterapp/tipmaster/internal/pkg/env"
)

// ProductCatalog maps provider product ids to plan tiers.
type ProductCatalog struct {
	MonthlyProductID string
	YearlyProductID  string
}

// NewProductCatalogFromEnv reads the configured provider product ids.
func NewProductCatalogFromEnv() ProductCatalog {
	return ProductCatalog{
		MonthlyProductID: strings.TrimSpace(env.GetEnv("CREEM_PRODUCT_MONTHLY", "")),
		YearlyProductID:  strings.TrimSpace(env.GetEnv("CREEM_PRODUCT_YEARLY", "")),
	}
}

// Contains reports whether the product id is one of the configured tiers.
func (c ProductCatalog) Contains(productID string) bool {
	return productID != "" &&
		(productID == c.MonthlyProductID || productID == c.YearlyProductID)
}

// PlanForEvent resolves the plan tier for a checkout/subscription event.
// The configured product id mapping wins; the product name is a fallback
// for sandbox products that are not in the catalog. Unresolvable events
// default to monthly, matching the provider's cheapest tier.
func (c ProductCatalog) PlanForEvent(ev *WebhookEvent) string {
	switch {
	case ev.ProductID != "" && ev.ProductID == c.YearlyProductID:
		return models.PlanYearly
	case ev.ProductID != "" && ev.ProductID == c.MonthlyProductID:
		return models.PlanMonthly
	}

	switch strings.ToLower(ev.ProductName) {
	case models.PlanYearly:
		return models.PlanYearly
	case models.PlanMonthly:
		return models.PlanMonthly
	}
	return models.PlanMonthly
}

// isEntitlingStatus reports whether a provider subscription status keeps the
// pro flag on.
func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "paid", "trialing", "past_due", "":
		return true
	default:
		return false
	}
}
