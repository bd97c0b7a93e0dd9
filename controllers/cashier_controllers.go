package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type CashierController struct {
	Cashier *services.CashierService
}

func NewCashierController(svc *services.Services) *CashierController {
	return &CashierController{Cashier: svc.Cashier}
}

// dayParam reads ?date=YYYY-MM-DD, defaulting to today.
func (cc *CashierController) dayParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return cc.Cashier.Today(), true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, "invalid_request", &CustomError{Message: "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}

// GetDailySummary -> paid totals per payment method plus drawer movements
func (cc *CashierController) GetDailySummary(c *gin.Context) {
	day, ok := cc.dayParam(c)
	if !ok {
		return
	}
	summary, err := cc.Cashier.DailySummary(c.Request.Context(), day)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cashier summary", summary)
}

func (cc *CashierController) GetCashOperations(c *gin.Context) {
	day, ok := cc.dayParam(c)
	if !ok {
		return
	}
	ops, err := cc.Cashier.ListCashOperations(c.Request.Context(), day)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cash operations", ops)
}

// CreateCashOperation -> sangria or suprimento
func (cc *CashierController) CreateCashOperation(c *gin.Context) {
	var in services.CashOperationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	op, err := cc.Cashier.RecordCashOperation(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Cash operation recorded", op)
}
