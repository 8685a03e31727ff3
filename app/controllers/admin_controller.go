package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/tipmasterapp/tipmaster/app/models"
	"github.com/tipmasterapp/tipmaster/app/repository"
	"github.com/tipmasterapp/tipmaster/internal/pkg/billing"
	"github.com/tipmasterapp/tipmaster/internal/pkg/cache"
	"github.com/tipmasterapp/tipmaster/internal/pkg/database"
	"github.com/tipmasterapp/tipmaster/internal/pkg/jobqueue"
	"github.com/tipmasterapp/tipmaster/internal/pkg/statistics"
)

const adminUsersPerPage = 25

// AdminController bundles the handlers behind the admin API
type AdminController struct {
	repos *repository.Repositories
}

// NewAdminController creates a new admin controller with the given repositories
func NewAdminController(repos *repository.Repositories) *AdminController {
	return &AdminController{repos: repos}
}

func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Errorf("[Admin] %s: %v", message, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "internal_server_error",
		"message": message,
	})
}

// HandleDashboard returns the aggregate numbers plus a week of signups
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	stats := statistics.GetStatisticsData()

	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -6)
	signups, err := ac.repos.User.GetDailyRegistrations(startDate, endDate)
	if err != nil {
		log.Warnf("[Admin] daily registrations failed: %v", err)
		signups = []repository.DailyStats{}
	}

	return c.JSON(fiber.Map{
		"totals": fiber.Map{
			"users":           stats.TotalUsers,
			"pro_subscribers": stats.ProSubscribers,
			"purchases":       stats.TotalPurchases,
			"purchases_today": stats.TodayPurchases,
		},
		"daily_signups": signups,
	})
}

// HandleUsers returns a paginated user list with billing plan info
func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	offset := (page - 1) * adminUsersPerPage

	users, err := ac.repos.User.GetWithPlans(offset, adminUsersPerPage)
	if err != nil {
		return ac.handleError(c, "Failed to load users", err)
	}

	total, err := ac.repos.User.Count()
	if err != nil {
		return ac.handleError(c, "Failed to count users", err)
	}

	return c.JSON(fiber.Map{
		"users":    adminUserList(users),
		"page":     page,
		"per_page": adminUsersPerPage,
		"total":    total,
	})
}

// HandleSearch finds users by name or email
func (ac *AdminController) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Missing query parameter q"})
	}

	users, err := ac.repos.User.SearchWithPlans(query)
	if err != nil {
		return ac.handleError(c, "Search failed", err)
	}

	return c.JSON(fiber.Map{"users": adminUserList(users)})
}

type adminUserUpdateRequest struct {
	Role   string `json:"role" validate:"omitempty,oneof=user admin"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive disabled"`
}

// HandleUserUpdate changes role or status of one user
func (ac *AdminController) HandleUserUpdate(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid user id"})
	}

	var req adminUserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	user, err := ac.repos.User.GetByID(uint(userID))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
	}

	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Status != "" {
		user.Status = req.Status
	}
	if err := ac.repos.User.Update(user); err != nil {
		return ac.handleError(c, "Failed to update user", err)
	}

	return c.JSON(fiber.Map{"id": user.ID, "role": user.Role, "status": user.Status})
}

// HandleUserDelete removes a user account
func (ac *AdminController) HandleUserDelete(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid user id"})
	}

	if err := ac.repos.User.Delete(uint(userID)); err != nil {
		return ac.handleError(c, "Failed to delete user", err)
	}

	cache.InvalidateProStatus(uint(userID))

	return c.JSON(fiber.Map{"deleted": true})
}

// HandleWebhookEvents lists the most recent provider webhook deliveries
func (ac *AdminController) HandleWebhookEvents(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	events, err := billing.NewServiceFromDB(database.GetDB()).RecentWebhookEvents(c.Context(), limit)
	if err != nil {
		return ac.handleError(c, "Failed to load webhook events", err)
	}

	return c.JSON(fiber.Map{"events": events})
}

// HandleReconcileNow schedules an immediate orphan-purchase reconcile run
func (ac *AdminController) HandleReconcileNow(c *fiber.Ctx) error {
	payload := jobqueue.PurchaseReconcileJobPayload{Limit: 500}
	job, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypePurchaseReconcile, payload.ToMap())
	if err != nil {
		return ac.handleError(c, "Failed to enqueue reconcile job", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
}

// HandleQueueStats reports job queue depth and per-status counters
func (ac *AdminController) HandleQueueStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()

	stats, err := queue.GetJobStats(c.Context())
	if err != nil {
		return ac.handleError(c, "Failed to load job stats", err)
	}

	pending, err := queue.GetQueueSize(c.Context())
	if err != nil {
		return ac.handleError(c, "Failed to load queue size", err)
	}

	processing, err := queue.GetProcessingSize(c.Context())
	if err != nil {
		return ac.handleError(c, "Failed to load processing size", err)
	}

	return c.JSON(fiber.Map{
		"pending":    pending,
		"processing": processing,
		"by_status":  stats,
	})
}

// HandleSettings returns the current application settings
func (ac *AdminController) HandleSettings(c *fiber.Ctx) error {
	settings, err := ac.repos.Setting.Get()
	if err != nil {
		return ac.handleError(c, "Failed to load settings", err)
	}
	return c.JSON(settings)
}

type adminSettingsRequest struct {
	SiteTitle            string `json:"site_title" validate:"required,min=1,max=255"`
	SiteDescription      string `json:"site_description" validate:"max=500"`
	CheckoutEnabled      bool   `json:"checkout_enabled"`
	JobQueueWorkerCount  int    `json:"jobqueue_worker_count" validate:"min=0,max=50"`
	ReconcileIntervalMin int    `json:"reconcile_interval_minutes" validate:"min=0,max=1440"`
}

// HandleSettingsUpdate persists changed application settings
func (ac *AdminController) HandleSettingsUpdate(c *fiber.Ctx) error {
	var req adminSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	settings := &models.AppSettings{
		SiteTitle:            req.SiteTitle,
		SiteDescription:      req.SiteDescription,
		CheckoutEnabled:      req.CheckoutEnabled,
		JobQueueWorkerCount:  req.JobQueueWorkerCount,
		ReconcileIntervalMin: req.ReconcileIntervalMin,
	}
	if err := ac.repos.Setting.Save(settings); err != nil {
		return ac.handleError(c, "Failed to save settings", err)
	}

	return c.JSON(settings)
}

func adminUserList(users []repository.UserWithPlan) []fiber.Map {
	out := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		out = append(out, fiber.Map{
			"id":            u.User.ID,
			"username":      u.User.Name,
			"email":         u.User.Email,
			"role":          u.User.Role,
			"status":        u.User.Status,
			"calc_count":    u.User.CalcCount,
			"plan_type":     u.PlanType,
			"is_pro":        u.IsPro,
			"pro_since":     formatTimePtr(u.ProSince),
			"created_at":    u.User.CreatedAt.UTC().Format(time.RFC3339),
			"last_login_at": formatTimePtr(u.User.LastLoginAt),
		})
	}
	return out
}
