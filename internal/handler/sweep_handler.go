package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtside/academy-api/internal/models"
	"github.com/courtside/academy-api/internal/service"
	"github.com/courtside/academy-api/pkg/response"
)

// SweepHandler exposes the daily absence sweep for manual runs.
type SweepHandler struct {
	sweep   *service.SweepService
	metrics *service.MetricsService
}

// NewSweepHandler constructs SweepHandler. metrics may be nil.
func NewSweepHandler(sweep *service.SweepService, metrics *service.MetricsService) *SweepHandler {
	return &SweepHandler{sweep: sweep, metrics: metrics}
}

// Run godoc
// @Summary Run the absence sweep for one date
// @Tags Sweep
// @Produce json
// @Param date query string false "Date to sweep (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /sweep [post]
func (h *SweepHandler) Run(c *gin.Context) {
	var result *models.SweepResult
	var err error
	if date := c.Query("date"); date != "" {
		result, err = h.sweep.RunForDate(c.Request.Context(), date)
	} else {
		result, err = h.sweep.Run(c.Request.Context(), time.Now())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSweep(result.AttendanceUpdated, result.TeachingScheduleUpdated)
	response.JSON(c, http.StatusOK, result)
}
