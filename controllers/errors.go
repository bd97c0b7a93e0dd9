package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

var (
	ErrNoPermission       = &CustomError{"You do not have permission"}
	ErrInvalidCredentials = &CustomError{"invalid credentials"}
)

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:            http.StatusNotFound,
	services.KindInvalidQuantity:     http.StatusBadRequest,
	services.KindInvalidSplitCount:   http.StatusBadRequest,
	services.KindInvalidAmount:       http.StatusBadRequest,
	services.KindInvalidRequest:      http.StatusBadRequest,
	services.KindItemNotInOrder:      http.StatusNotFound,
	services.KindInvalidTransition:   http.StatusConflict,
	services.KindAlreadyOccupied:     http.StatusConflict,
	services.KindPaymentNotConfirmed: http.StatusConflict,
	services.KindSplitsLocked:        http.StatusConflict,
	services.KindStorageFailure:      http.StatusInternalServerError,
}

// respondServiceError maps a service error to its HTTP status and error code.
func respondServiceError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		utils.ErrorLogger.WithError(err).Error("unclassified error")
		utils.RespondErrorCode(c, http.StatusInternalServerError, string(services.KindStorageFailure), err)
		return
	}
	code, ok := kindStatus[svcErr.Kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	if code >= 500 {
		utils.ErrorLogger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	utils.RespondErrorCode(c, code, string(svcErr.Kind), err)
}

func respondBindError(c *gin.Context, err error) {
	utils.RespondErrorCode(c, http.StatusBadRequest, string(services.KindInvalidRequest), err)
}

// paramID reads a positive numeric path parameter. It writes the 400 itself.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondBindError(c, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// actorFrom builds the audit actor from what the auth middleware left on the context.
func actorFrom(c *gin.Context) services.Actor {
	actor := services.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			actor.UserID = &id
		}
	}
	return actor
}
