package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dailyattend/internal/apperr"
	"dailyattend/internal/attendance"
	"dailyattend/internal/auth"
	"dailyattend/internal/model"
	"dailyattend/internal/tally"
)

type handlers struct {
	auth       *auth.Service
	attendance *attendance.Service
	tally      tally.Counter
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type markRequest struct {
	Status string `json:"status"`
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apperr.Body("invalid request body"))
		return false
	}
	return true
}

func (h *handlers) register(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *handlers) login(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *handlers) markAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	var req markRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.attendance.Mark(c.Request.Context(), claims.UserID, req.Status); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked"})
}

func (h *handlers) ownAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	recs, err := h.attendance.Own(c.Request.Context(), claims.UserID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *handlers) userAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	if claims.Role != model.RoleAdmin {
		apperr.Respond(c, apperr.ErrAccessDenied)
		return
	}
	target, err := attendance.ParseUserID(c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	recs, err := h.attendance.ForUser(c.Request.Context(), claims.Role, target)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *handlers) dailyTally(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	if claims.Role != model.RoleAdmin {
		apperr.Respond(c, apperr.ErrAccessDenied)
		return
	}
	day := c.Param("date")
	if day == "today" {
		day = h.attendance.Today()
	}
	if _, err := time.Parse(attendance.DayLayout, day); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apperr.Body("date must be YYYY-MM-DD"))
		return
	}
	counts, err := h.tally.Counts(c.Request.Context(), day)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "counts": counts})
}
