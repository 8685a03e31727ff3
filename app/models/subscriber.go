package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderCreem = "creem"
)

// Plan tiers a subscriber can be on. PlanNone is the unpaid default.
const (
	PlanNone    = "none"
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// Subscriber is the durable pro-subscription record for one end user.
// The provider customer id is the authoritative reconciliation key and is
// unique at the schema level so concurrent webhook deliveries cannot create
// two rows for the same customer. Email is a secondary lookup index only.
// Rows are never deleted; a lapsed subscription just flips IsPro to false.
type Subscriber struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             *uint      `gorm:"index;default:null" json:"user_id,omitempty"`
	Email              string     `gorm:"type:varchar(200);index" json:"email"`
	ProviderCustomerID *string    `gorm:"type:varchar(191);uniqueIndex:ux_subscribers_customer;default:null" json:"provider_customer_id,omitempty"`
	IsPro              bool       `gorm:"default:false;index" json:"is_pro"`
	PlanType           string     `gorm:"type:varchar(20);not null;default:'none'" json:"plan_type"`
	ProSince           *time.Time `gorm:"type:timestamp;default:null" json:"pro_since,omitempty"`
	SubscriptionID     *string    `gorm:"type:varchar(191);default:null" json:"subscription_id,omitempty"`
	CurrentPeriodStart *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidPlanType reports whether the given tier is one we store.
func ValidPlanType(plan string) bool {
	switch plan {
	case PlanNone, PlanMonthly, PlanYearly:
		return true
	default:
		return false
	}
}
