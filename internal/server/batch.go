package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type runBatchRequest struct {
	Date string `json:"date"`
}

// @Summary      Run Batch
// @Description  Run the daily batch for a reference date (defaults handled by the worker; this endpoint is for schedulers and manual re-runs)
// @Tags         batch
// @Accept       json
// @Produce      json
// @Param        request  body  runBatchRequest  true  "Reference date (YYYY-MM-DD)"
// @Success      200  {object}  batch.Result
// @Router       /batch/run [post]
func (s *Server) RunBatch(c *gin.Context) {
	var req runBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Date) == "" {
		AbortWithError(c, newValidationError("date", "required", "date is required"))
		return
	}

	today, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	result, err := s.processor.Run(c.Request.Context(), today)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
