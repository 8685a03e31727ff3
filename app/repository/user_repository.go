package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tipmasterapp/tipmaster/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByActivationToken retrieves a user by their activation token
func (r *userRepository) GetByActivationToken(token string) (*models.User, error) {
	var user models.User
	err := r.db.Where("activation_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete removes a user from the database
func (r *userRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// Search finds users by name or email
func (r *userRepository) Search(query string) ([]models.User, error) {
	var users []models.User
	like := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("name LIKE ? OR email LIKE ?", like, like).
		Order("created_at DESC").Limit(100).Find(&users).Error
	return users, err
}

// GetWithPlans retrieves a paginated user list joined with subscriber rows
func (r *userRepository) GetWithPlans(offset, limit int) ([]UserWithPlan, error) {
	users, err := r.List(offset, limit)
	if err != nil {
		return nil, err
	}
	return r.attachPlans(users)
}

// SearchWithPlans finds users by name or email and attaches plan info
func (r *userRepository) SearchWithPlans(query string) ([]UserWithPlan, error) {
	users, err := r.Search(query)
	if err != nil {
		return nil, err
	}
	return r.attachPlans(users)
}

func (r *userRepository) attachPlans(users []models.User) ([]UserWithPlan, error) {
	if len(users) == 0 {
		return []UserWithPlan{}, nil
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var subs []models.Subscriber
	if err := r.db.Where("user_id IN ?", ids).Find(&subs).Error; err != nil {
		return nil, err
	}

	byUser := make(map[uint]models.Subscriber, len(subs))
	for _, s := range subs {
		if s.UserID != nil {
			byUser[*s.UserID] = s
		}
	}

	result := make([]UserWithPlan, 0, len(users))
	for _, u := range users {
		entry := UserWithPlan{User: u, PlanType: models.PlanNone}
		if s, ok := byUser[u.ID]; ok {
			entry.PlanType = s.PlanType
			entry.IsPro = s.IsPro
			entry.ProSince = s.ProSince
		}
		result = append(result, entry)
	}
	return result, nil
}

// GetDailyRegistrations returns signup counts per day for the given range
func (r *userRepository) GetDailyRegistrations(startDate, endDate time.Time) ([]DailyStats, error) {
	var stats []DailyStats
	err := r.db.Model(&models.User{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&stats).Error
	return stats, err
}
