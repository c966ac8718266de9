package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List Notifications
// @Tags         notifications
// @Produce      json
// @Param        user_id  query  string  true  "User ID"
// @Success      200  {object}  []notificationdomain.InvoiceNotification
// @Router       /notifications [get]
func (s *Server) ListNotifications(c *gin.Context) {
	userID, err := parseID(c.Query("user_id"))
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_id", "invalid user_id"))
		return
	}

	resp, err := s.emitter.List(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Mark Notification Read
// @Tags         notifications
// @Produce      json
// @Param        id  path  string  true  "Notification ID"
// @Success      200  {object}  map[string]string
// @Router       /notifications/{id}/read [post]
func (s *Server) MarkNotificationRead(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid notification id"))
		return
	}

	if err := s.emitter.MarkRead(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type markAllReadRequest struct {
	UserID string `json:"user_id"`
}

// @Summary      Mark All Notifications Read
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request  body  markAllReadRequest  true  "User"
// @Success      200  {object}  map[string]string
// @Router       /notifications/read-all [post]
func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	var req markAllReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := parseID(req.UserID)
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_id", "invalid user_id"))
		return
	}

	if err := s.emitter.MarkAllRead(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
