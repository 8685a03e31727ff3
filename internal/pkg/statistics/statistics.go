package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/tipmasterapp/tipmaster/app/models"
	"github.com/tipmasterapp/tipmaster/internal/pkg/cache"
	"github.com/tipmasterapp/tipmaster/internal/pkg/database"
)

const (
	CacheKeyUsers          = "statistics:users:total"
	CacheKeyProSubscribers = "statistics:subscribers:pro"
	CacheKeyPurchases      = "statistics:purchases:total"
	CacheKeyPurchasesDaily = "statistics:purchases:daily:%s" // Format with date YYYY-MM-DD
	CacheExpiration        = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers for the admin dashboard
type StatisticsData struct {
	TotalUsers     int
	ProSubscribers int
	TotalPurchases int
	TodayPurchases int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached aggregates are stale
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached aggregates when they are stale
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next UpdateCacheIfNeeded to refresh
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	var proSubscribers int64
	if err := db.Model(&models.Subscriber{}).Where("is_pro = ?", true).Count(&proSubscribers).Error; err != nil {
		log.Printf("Error counting pro subscribers: %v", err)
		return err
	}

	var totalPurchases int64
	if err := db.Model(&models.PurchaseRecord{}).Count(&totalPurchases).Error; err != nil {
		log.Printf("Error counting purchases: %v", err)
		return err
	}

	var todayPurchases int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)
	if err := db.Model(&models.PurchaseRecord{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayPurchases).Error; err != nil {
		log.Printf("Error counting today's purchases: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyProSubscribers, strconv.FormatInt(proSubscribers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching pro subscribers: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyPurchases, strconv.FormatInt(totalPurchases, 10), CacheExpiration); err != nil {
		log.Printf("Error caching purchases: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyPurchasesDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayPurchases, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's purchases: %v", err)
		return err
	}

	return nil
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	// Try to get from cache first
	val, err := cache.Get(CacheKeyUsers)
	if err != nil {
		// If not in cache, get from database and update cache
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetProSubscribers returns the number of active pro subscribers
func GetProSubscribers() int {
	val, err := cache.Get(CacheKeyProSubscribers)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.Subscriber{}).Where("is_pro = ?", true).Count(&count).Error; err != nil {
			log.Printf("Error counting pro subscribers: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyProSubscribers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching pro subscribers: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalPurchases returns the total number of recorded purchases
func GetTotalPurchases() int {
	val, err := cache.Get(CacheKeyPurchases)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.PurchaseRecord{}).Count(&count).Error; err != nil {
			log.Printf("Error counting purchases: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyPurchases, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching purchases: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTodayPurchases returns the number of purchases recorded today
func GetTodayPurchases() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyPurchasesDaily, today)

	val, err := cache.Get(dailyKey)
	if err != nil {
		var count int64
		db := database.GetDB()
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		if err := db.Model(&models.PurchaseRecord{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error; err != nil {
			log.Printf("Error counting today's purchases: %v", err)
			return 0
		}

		if err := cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching today's purchases: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TotalUsers:     GetTotalUsers(),
		ProSubscribers: GetProSubscribers(),
		TotalPurchases: GetTotalPurchases(),
		TodayPurchases: GetTodayPurchases(),
	}
}
