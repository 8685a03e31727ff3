package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/tipmasterapp/tipmaster/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
	GetWithPlans(offset, limit int) ([]UserWithPlan, error)
	SearchWithPlans(query string) ([]UserWithPlan, error)
	GetDailyRegistrations(startDate, endDate time.Time) ([]DailyStats, error)
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// QueueRepository defines the interface for cache/queue operations
type QueueRepository interface {
	GetAllKeys() ([]string, error)
	GetValue(key string) (string, error)
	GetTTL(key string) (time.Duration, error)
	DeleteKey(key string) (int64, error)
	GetListLength(key string) (int64, error)
	FindKeysByPatterns(patterns []string) ([]string, error)
	DeleteKeys(keys []string) (int64, error)
}

// UserWithPlan is a user joined with their billing subscriber row, for
// the admin user listing.
type UserWithPlan struct {
	User     models.User
	PlanType string
	IsPro    bool
	ProSince *time.Time
}

// DailyStats is one day of aggregated counts
type DailyStats struct {
	Date  string
	Count int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Setting SettingRepository
	Queue   QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Setting: NewSettingRepository(db),
		Queue:   NewQueueRepository(),
	}
}
