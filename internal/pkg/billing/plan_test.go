package billing

import (
	"testing"

	"github.com/tipmasterapp/tipmaster/app/models"
)

func TestPlanForEvent(t *testing.T) {
	catalog := ProductCatalog{
		MonthlyProductID: "prod_monthly",
		YearlyProductID:  "prod_yearly",
	}

	cases := []struct {
		name string
		ev   WebhookEvent
		want string
	}{
		{"yearly by product id", WebhookEvent{ProductID: "prod_yearly"}, models.PlanYearly},
		{"monthly by product id", WebhookEvent{ProductID: "prod_monthly"}, models.PlanMonthly},
		{"id wins over name", WebhookEvent{ProductID: "prod_yearly", ProductName: "monthly"}, models.PlanYearly},
		{"yearly by name fallback", WebhookEvent{ProductID: "prod_sandbox", ProductName: "Yearly"}, models.PlanYearly},
		{"monthly default", WebhookEvent{ProductID: "prod_sandbox", ProductName: "Pro"}, models.PlanMonthly},
		{"empty event defaults monthly", WebhookEvent{}, models.PlanMonthly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := catalog.PlanForEvent(&tc.ev); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCatalogContains(t *testing.T) {
	catalog := ProductCatalog{
		MonthlyProductID: "prod_monthly",
		YearlyProductID:  "prod_yearly",
	}
	if !catalog.Contains("prod_monthly") || !catalog.Contains("prod_yearly") {
		t.Fatal("expected configured product ids to be in the catalog")
	}
	if catalog.Contains("prod_other") || catalog.Contains("") {
		t.Fatal("did not expect unknown or empty product ids in the catalog")
	}
	if (ProductCatalog{}).Contains("") {
		t.Fatal("empty catalog must not match empty id")
	}
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, s := range []string{"active", "paid", "trialing", "past_due", "", "  Active "} {
		if !isEntitlingStatus(s) {
			t.Fatalf("expected %q to entitle", s)
		}
	}
	for _, s := range []string{"canceled", "expired", "unpaid", "incomplete"} {
		if isEntitlingStatus(s) {
			t.Fatalf("did not expect %q to entitle", s)
		}
	}
}
