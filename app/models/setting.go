package models

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Setting represents one persisted system setting row.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean, integer
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings is the in-memory application settings structure.
type AppSettings struct {
	SiteTitle            string `json:"site_title" validate:"required,min=1,max=255"`
	SiteDescription      string `json:"site_description" validate:"max=500"`
	CheckoutEnabled      bool   `json:"checkout_enabled"`
	JobQueueWorkerCount  int    `json:"jobqueue_worker_count" validate:"min=0,max=50"`
	ReconcileIntervalMin int    `json:"reconcile_interval_minutes" validate:"min=0,max=1440"`
	mu                   sync.RWMutex
}

var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

// GetAppSettings returns the current application settings.
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	if appSettings == nil {
		return &AppSettings{SiteTitle: "TipMaster", CheckoutEnabled: true}
	}
	return appSettings
}

// LoadSettings loads settings from database into memory.
func LoadSettings(db *gorm.DB) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	appSettings = &AppSettings{
		SiteTitle:            "TipMaster",
		SiteDescription:      "Smart tip calculator for groups",
		CheckoutEnabled:      true,
		JobQueueWorkerCount:  5,
		ReconcileIntervalMin: 5,
	}

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, s := range settings {
		switch s.Key {
		case "site_title":
			if s.Value != "" {
				appSettings.SiteTitle = s.Value
			}
		case "site_description":
			appSettings.SiteDescription = s.Value
		case "checkout_enabled":
			if v, err := strconv.ParseBool(s.Value); err == nil {
				appSettings.CheckoutEnabled = v
			}
		case "jobqueue_worker_count":
			if v, err := strconv.Atoi(s.Value); err == nil && v > 0 {
				appSettings.JobQueueWorkerCount = v
			}
		case "reconcile_interval_minutes":
			if v, err := strconv.Atoi(s.Value); err == nil && v > 0 {
				appSettings.ReconcileIntervalMin = v
			}
		}
	}

	v := validator.New()
	if err := v.Struct(appSettings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// SaveSettings validates the given settings, persists them as rows and
// swaps them in as the active in-memory settings.
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	v := validator.New()
	if err := v.Struct(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	rows := map[string]Setting{
		"site_title":                 {Key: "site_title", Value: settings.SiteTitle, Type: "string"},
		"site_description":           {Key: "site_description", Value: settings.SiteDescription, Type: "string"},
		"checkout_enabled":           {Key: "checkout_enabled", Value: strconv.FormatBool(settings.CheckoutEnabled), Type: "boolean"},
		"jobqueue_worker_count":      {Key: "jobqueue_worker_count", Value: strconv.Itoa(settings.JobQueueWorkerCount), Type: "integer"},
		"reconcile_interval_minutes": {Key: "reconcile_interval_minutes", Value: strconv.Itoa(settings.ReconcileIntervalMin), Type: "integer"},
	}

	for key, row := range rows {
		var existing Setting
		err := db.Where("setting_key = ?", key).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create setting %s: %w", key, err)
			}
			continue
		} else if err != nil {
			return err
		}
		existing.Value = row.Value
		existing.Type = row.Type
		if err := db.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update setting %s: %w", key, err)
		}
	}

	settingsMu.Lock()
	appSettings = settings
	settingsMu.Unlock()
	return nil
}

// IsCheckoutEnabled reports whether new checkout sessions may be created.
func (s *AppSettings) IsCheckoutEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CheckoutEnabled
}

// SetCheckoutEnabled toggles checkout session creation at runtime.
func (s *AppSettings) SetCheckoutEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CheckoutEnabled = enabled
}

// GetJobQueueWorkerCount returns the configured background worker count.
func (s *AppSettings) GetJobQueueWorkerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.JobQueueWorkerCount <= 0 {
		return 5
	}
	return s.JobQueueWorkerCount
}

// GetReconcileIntervalMinutes returns how often the orphan-purchase
// reconcile job is scheduled.
func (s *AppSettings) GetReconcileIntervalMinutes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ReconcileIntervalMin <= 0 {
		return 5
	}
	return s.ReconcileIntervalMin
}
