package models

import "time"

// Purchase status values driven by provider payment events.
const (
	PurchaseStatusActive   = "active"
	PurchaseStatusPaid     = "paid"
	PurchaseStatusFailed   = "failed"
	PurchaseStatusRefunded = "refunded"
	PurchaseStatusCanceled = "canceled"
)

// PurchaseRecord is one row of the payment audit ledger. One row is written
// per accepted checkout event; the (provider, request_id) unique index makes
// re-deliveries a no-op insert. SubscriberID stays null when the event
// arrives before the subscriber is known and is reconciled later by the
// background catch-up job. Only Status and FailureReason ever change after
// insert, driven by payment.succeeded/failed/refunded events.
type PurchaseRecord struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	SubscriberID       *uint     `gorm:"index;default:null" json:"subscriber_id,omitempty"`
	Provider           string    `gorm:"type:varchar(20);not null;index:ux_purchases_request,unique,priority:1" json:"provider"`
	RequestID          string    `gorm:"type:varchar(191);not null;index:ux_purchases_request,unique,priority:2" json:"request_id"`
	ProviderCustomerID string    `gorm:"type:varchar(191);not null;index" json:"provider_customer_id"`
	OrderID            string    `gorm:"type:varchar(191);default:''" json:"order_id"`
	CheckoutID         string    `gorm:"type:varchar(191);default:'';index" json:"checkout_id"`
	ProductID          string    `gorm:"type:varchar(191);not null" json:"product_id"`
	SubscriptionID     *string   `gorm:"type:varchar(191);default:null;index" json:"subscription_id,omitempty"`
	Status             string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	PlanType           string    `gorm:"type:varchar(20);not null;default:'monthly'" json:"plan_type"`
	FailureReason      string    `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
