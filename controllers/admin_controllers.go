package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type AdminController struct {
	DB       *gorm.DB
	Settings *services.SettingsService
	Payments *services.PaymentService
	Audit    *services.AuditService
	Cashier  *services.CashierService
	now      func() time.Time
}

func NewAdminController(db *gorm.DB, svc *services.Services) *AdminController {
	return &AdminController{
		DB:       db,
		Settings: svc.Settings,
		Payments: svc.Payments,
		Audit:    svc.Audit,
		Cashier:  svc.Cashier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type statusCount struct {
	Status string
	Count  int64
}

type dashboardStats struct {
	TotalOrders  int64            `json:"total_orders"`
	TodayOrders  int64            `json:"today_orders"`
	OrderStats   map[string]int64 `json:"order_stats"`
	TableStats   map[string]int64 `json:"table_stats"`
	TodayRevenue decimal.Decimal  `json:"today_revenue"`
	TodayLabel   string           `json:"today_revenue_label"`
	PendingPays  int64            `json:"pending_payments"`
}

// GetDashboardStats -> counters for the manager's dashboard
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()
	db := ac.DB.WithContext(ctx)
	now := ac.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := dashboardStats{
		OrderStats: map[string]int64{},
		TableStats: map[string]int64{},
	}

	var orderStatus, tableStatus []statusCount
	queries := []*gorm.DB{
		db.Model(&models.Order{}).Count(&stats.TotalOrders),
		db.Model(&models.Order{}).Where("created_at >= ?", startOfDay).Count(&stats.TodayOrders),
		db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&orderStatus),
		db.Model(&models.Table{}).Select("status, COUNT(*) AS count").Group("status").Scan(&tableStatus),
		db.Model(&models.Payment{}).Where("status = ?", models.PaymentPendente).Count(&stats.PendingPays),
	}
	for _, q := range queries {
		if q.Error != nil {
			utils.ErrorLogger.WithError(q.Error).Error("dashboard query failed")
			utils.RespondError(c, http.StatusInternalServerError, q.Error)
			return
		}
	}
	for _, sc := range orderStatus {
		stats.OrderStats[sc.Status] = sc.Count
	}
	for _, sc := range tableStatus {
		stats.TableStats[sc.Status] = sc.Count
	}

	day, err := ac.Cashier.DailySummary(ctx, now)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	stats.TodayRevenue = day.Total
	stats.TodayLabel = utils.FormatCurrency(day.Total)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

func (ac *AdminController) GetSettings(c *gin.Context) {
	settings, err := ac.Settings.Load(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Settings", settings)
}

func (ac *AdminController) UpdateSettings(c *gin.Context) {
	var patch services.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}
	settings, err := ac.Settings.Update(c.Request.Context(), patch, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Settings updated", settings)
}

func (ac *AdminController) GetPolicies(c *gin.Context) {
	policies, err := ac.Payments.ListPolicies(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of service charge policies", policies)
}

func (ac *AdminController) CreatePolicy(c *gin.Context) {
	var in services.PolicyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	policy, err := ac.Payments.CreatePolicy(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Service charge policy created", policy)
}

// GetAuditLogs -> ?entity_type=order&entity_id=7, or the latest ?limit=N entries
func (ac *AdminController) GetAuditLogs(c *gin.Context) {
	ctx := c.Request.Context()
	if entityType := c.Query("entity_type"); entityType != "" {
		id, err := strconv.ParseUint(c.Query("entity_id"), 10, 64)
		if err != nil {
			respondBindError(c, &CustomError{"entity_id is required with entity_type"})
			return
		}
		logs, err := ac.Audit.ForEntity(ctx, entityType, uint(id))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Audit log", logs)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := ac.Audit.Recent(ctx, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Audit log", logs)
}
