package billing

import (
	"time"

	"github.com/tipmasterapp/tipmaster/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the billing service.
type Repository interface {
	GetSubscriberByCustomerID(provider, customerID string) (*models.Subscriber, error)
	GetSubscriberByEmail(email string) (*models.Subscriber, error)
	GetSubscriberByUserID(userID uint) (*models.Subscriber, error)
	CreateSubscriberIfNotExists(sub *models.Subscriber) error
	SaveSubscriber(sub *models.Subscriber) error

	InsertPurchaseIfNotExists(rec *models.PurchaseRecord) (bool, *models.PurchaseRecord, error)
	FindPurchaseForPayment(provider, orderID, subscriptionID string) (*models.PurchaseRecord, error)
	UpdatePurchaseStatus(id uint, status, failureReason string) error
	ListOrphanPurchases(limit int) ([]models.PurchaseRecord, error)
	AttachPurchaseSubscriber(purchaseID, subscriberID uint) error
	ListPurchasesCreatedBefore(cutoff time.Time, limit int) ([]models.PurchaseRecord, error)

	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	ListRecentWebhookEvents(limit int) ([]models.BillingWebhookEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetSubscriberByCustomerID(provider, customerID string) (*models.Subscriber, error) {
	_ = provider // single provider today; kept in the signature for the call sites
	var sub models.Subscriber
	if err := r.db.Where("provider_customer_id = ?", customerID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriberByEmail(email string) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := r.db.Where("email = ?", email).Order("id ASC").First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriberByUserID(userID uint) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscriberIfNotExists inserts the subscriber, relying on the unique
// customer-id index to collapse concurrent creates for the same customer
// into one row. The stored row is loaded back into sub either way.
func (r *gormRepository) CreateSubscriberIfNotExists(sub *models.Subscriber) error {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_customer_id"}},
		DoNothing: true,
	}).Create(sub)
	if tx.Error != nil {
		return tx.Error
	}
	if sub.ProviderCustomerID == nil {
		return nil
	}
	return r.db.Where("provider_customer_id = ?", *sub.ProviderCustomerID).First(sub).Error
}

func (r *gormRepository) SaveSubscriber(sub *models.Subscriber) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) InsertPurchaseIfNotExists(rec *models.PurchaseRecord) (bool, *models.PurchaseRecord, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "request_id"},
		},
		DoNothing: true,
	}).Create(rec)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PurchaseRecord
	if err := r.db.Where("provider = ? AND request_id = ?", rec.Provider, rec.RequestID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) FindPurchaseForPayment(provider, orderID, subscriptionID string) (*models.PurchaseRecord, error) {
	var rec models.PurchaseRecord
	if orderID != "" {
		err := r.db.Where("provider = ? AND order_id = ?", provider, orderID).
			Order("id DESC").First(&rec).Error
		if err == nil {
			return &rec, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	if subscriptionID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	err := r.db.Where("provider = ? AND subscription_id = ?", provider, subscriptionID).
		Order("id DESC").First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) UpdatePurchaseStatus(id uint, status, failureReason string) error {
	return r.db.Model(&models.PurchaseRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":         status,
		"failure_reason": failureReason,
	}).Error
}

func (r *gormRepository) ListOrphanPurchases(limit int) ([]models.PurchaseRecord, error) {
	var recs []models.PurchaseRecord
	err := r.db.Where("subscriber_id IS NULL").
		Order("id ASC").Limit(limit).Find(&recs).Error
	return recs, err
}

func (r *gormRepository) AttachPurchaseSubscriber(purchaseID, subscriberID uint) error {
	return r.db.Model(&models.PurchaseRecord{}).Where("id = ?", purchaseID).
		Update("subscriber_id", subscriberID).Error
}

func (r *gormRepository) ListPurchasesCreatedBefore(cutoff time.Time, limit int) ([]models.PurchaseRecord, error) {
	var recs []models.PurchaseRecord
	err := r.db.Where("created_at < ?", cutoff).
		Order("id ASC").Limit(limit).Find(&recs).Error
	return recs, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}).Error
}

func (r *gormRepository) ListRecentWebhookEvents(limit int) ([]models.BillingWebhookEvent, error) {
	var events []models.BillingWebhookEvent
	err := r.db.Order("id DESC").Limit(limit).Find(&events).Error
	return events, err
}
