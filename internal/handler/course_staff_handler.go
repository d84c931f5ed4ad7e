package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/courtside/academy-api/internal/models"
	"github.com/courtside/academy-api/internal/service"
	appErrors "github.com/courtside/academy-api/pkg/errors"
	"github.com/courtside/academy-api/pkg/response"
)

// CourseStaffHandler exposes staff assignment endpoints.
type CourseStaffHandler struct {
	staff *service.CourseStaffService
}

// NewCourseStaffHandler constructs CourseStaffHandler.
func NewCourseStaffHandler(staff *service.CourseStaffService) *CourseStaffHandler {
	return &CourseStaffHandler{staff: staff}
}

// List godoc
// @Summary List staff assignments
// @Tags CourseStaff
// @Produce json
// @Param courseId query int false "Filter by course"
// @Param userId query int false "Filter by staff member"
// @Success 200 {object} response.Envelope
// @Router /course-staff [get]
func (h *CourseStaffHandler) List(c *gin.Context) {
	var filter models.CourseStaffFilter
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

	rows, err := h.staff.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Get godoc
// @Summary Get one staff assignment
// @Tags CourseStaff
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /course-staff/{id} [get]
func (h *CourseStaffHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	staff, err := h.staff.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff)
}

// CheckConflict godoc
// @Summary Check whether an assignment would collide with existing schedules
// @Tags CourseStaff
// @Produce json
// @Param userId query int true "Staff user ID"
// @Param courseId query int true "Candidate course ID"
// @Param excludeId query int false "Assignment to ignore (reassignment)"
// @Success 200 {object} response.Envelope
// @Router /course-staff/check-conflict [get]
func (h *CourseStaffHandler) CheckConflict(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	courseID, err := strconv.ParseInt(c.Query("courseId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}
	var excludeID *int64
	if raw := c.Query("excludeId"); raw != "" {
		if id, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			excludeID = &id
		}
	}

	conflict, err := h.staff.CheckConflict(c.Request.Context(), userID, courseID, excludeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if conflict == nil {
		response.JSON(c, http.StatusOK, gin.H{"conflict": false})
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"conflict": true,
		"course_id": conflict.CourseID,
		"course_name": conflict.CourseName,
		"message": conflict.Error(),
	})
}

// Assign godoc
// @Summary Assign a staff member to a course
// @Tags CourseStaff
// @Accept json
// @Produce json
// @Param payload body service.AssignStaffRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /course-staff [post]
func (h *CourseStaffHandler) Assign(c *gin.Context) {
	var req service.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	staff, err := h.staff.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, staff)
}

// Reassign godoc
// @Summary Move an assignment to another course or role
// @Tags CourseStaff
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param payload body service.AssignStaffRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /course-staff/{id} [put]
func (h *CourseStaffHandler) Reassign(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	staff, err := h.staff.Reassign(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff)
}

// Remove godoc
// @Summary Remove a staff assignment
// @Tags CourseStaff
// @Param id path int true "Assignment ID"
// @Success 204
// @Router /course-staff/{id} [delete]
func (h *CourseStaffHandler) Remove(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.staff.Remove(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
