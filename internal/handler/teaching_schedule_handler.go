package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtside/academy-api/internal/middleware"
	"github.com/courtside/academy-api/internal/models"
	"github.com/courtside/academy-api/internal/service"
	appErrors "github.com/courtside/academy-api/pkg/errors"
	"github.com/courtside/academy-api/pkg/export"
	"github.com/courtside/academy-api/pkg/response"
)

// TeachingScheduleHandler exposes teaching-schedule endpoints.
type TeachingScheduleHandler struct {
	teaching *service.TeachingScheduleService
	metrics  *service.MetricsService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
}

// NewTeachingScheduleHandler constructs TeachingScheduleHandler. metrics may
// be nil.
func NewTeachingScheduleHandler(teaching *service.TeachingScheduleService, metrics *service.MetricsService) *TeachingScheduleHandler {
	return &TeachingScheduleHandler{
		teaching: teaching,
		metrics:  metrics,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
	}
}

// List godoc
// @Summary List teaching slots
// @Tags TeachingSchedule
// @Produce json
// @Param courseId query int false "Filter by course"
// @Param userId query int false "Filter by staff member"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /teaching-schedules [get]
func (h *TeachingScheduleHandler) List(c *gin.Context) {
	var filter models.TeachingScheduleFilter
	if raw := c.Query("courseId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CourseID = &id
		}
	}
	if raw := c.Query("userId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.UserID = &id
		}
	}
	filter.Date = c.Query("date")
	filter.Time = c.Query("time")
	if raw := c.Query("status"); raw != "" {
		status := models.TeachingStatus(strings.ToUpper(raw))
		filter.Status = &status
	}

	rows, err := h.teaching.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Get godoc
// @Summary Get one teaching slot
// @Tags TeachingSchedule
// @Produce json
// @Param id path int true "Teaching slot ID"
// @Success 200 {object} response.Envelope
// @Router /teaching-schedules/{id} [get]
func (h *TeachingScheduleHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	slot, err := h.teaching.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Reconcile godoc
// @Summary Rebuild teaching slots for the upcoming week
// @Tags TeachingSchedule
// @Produce json
// @Param courseId query int false "Limit to one course"
// @Success 200 {object} response.Envelope
// @Router /teaching-schedules/reconcile [post]
func (h *TeachingScheduleHandler) Reconcile(c *gin.Context) {
	var courseID *int64
	if raw := c.Query("courseId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
			return
		}
		courseID = &id
	}

	result, err := h.teaching.ReconcileWeek(c.Request.Context(), time.Now(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordReconcile(result.Created, result.Deleted)
	response.JSON(c, http.StatusOK, result)
}

// CheckIn godoc
// @Summary Check in to a teaching slot
// @Tags TeachingSchedule
// @Accept json
// @Produce json
// @Param id path int true "Teaching slot ID"
// @Param payload body service.CheckInRequest true "Location payload"
// @Success 200 {object} response.Envelope
// @Router /teaching-schedules/{id}/checkin [post]
func (h *TeachingScheduleHandler) CheckIn(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := middleware.CurrentUser(c); claims != nil {
		req.UserID = claims.UserID
	}

	slot, err := h.teaching.CheckIn(c.Request.Context(), id, req)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrGeofence.Code {
			h.metrics.RecordGeofenceRejection()
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordCheckin()
	response.JSON(c, http.StatusOK, slot)
}

// CheckOut godoc
// @Summary Check out of a teaching slot
// @Tags TeachingSchedule
// @Accept json
// @Produce json
// @Param id path int true "Teaching slot ID"
// @Param payload body service.CheckOutRequest true "Location payload"
// @Success 200 {object} response.Envelope
// @Router /teaching-schedules/{id}/checkout [post]
func (h *TeachingScheduleHandler) CheckOut(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := middleware.CurrentUser(c); claims != nil {
		req.UserID = claims.UserID
	}

	slot, err := h.teaching.CheckOut(c.Request.Context(), id, req)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrGeofence.Code {
			h.metrics.RecordGeofenceRejection()
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordCheckout()
	response.JSON(c, http.StatusOK, slot)
}

// UpdateStatus godoc
// @Summary Correct the status of a teaching slot
// @Tags TeachingSchedule
// @Accept json
// @Produce json
// @Param id path int true "Teaching slot ID"
// @Param payload body service.UpdateTeachingStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /teaching-schedules/{id}/status [put]
func (h *TeachingScheduleHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateTeachingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.teaching.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// ExportWeek godoc
// @Summary Export one staff member's weekly schedule
// @Tags TeachingSchedule
// @Produce text/csv
// @Param userId path int true "Staff user ID"
// @Param week query string true "Any date inside the target week (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /teaching-schedules/export/{userId} [get]
func (h *TeachingScheduleHandler) ExportWeek(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	week := c.Query("week")
	if week == "" {
		week = models.FormatDate(time.Now())
	}

	dataset, err := h.teaching.ExportWeek(c.Request.Context(), userID, week)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("teaching-schedule-%d-%s", userID, week)
	switch strings.ToLower(c.DefaultQuery("format", "csv")) {
	case "pdf":
		payload, renderErr := h.pdf.Render(dataset, "Weekly Teaching Schedule")
		if renderErr != nil {
			response.Error(c, appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+filename+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		payload, renderErr := h.csv.Render(dataset)
		if renderErr != nil {
			response.Error(c, appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+filename+`.csv"`)
		c.Data(http.StatusOK, "text/csv", payload)
	}
}
