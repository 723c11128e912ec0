package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-engine/internal/models"
	"github.com/noah-isme/academic-engine/internal/service"
	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
	"github.com/noah-isme/academic-engine/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, studentID, sectionID string) error
	Approve(ctx context.Context, enrollmentID string) (*models.Enrollment, error)
	Reject(ctx context.Context, enrollmentID string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string, statuses ...models.EnrollmentStatus) ([]models.StudentEnrollment, error)
}

// EnrollRequest is the body of an enrollment call; the section comes from the path.
type EnrollRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll a student in a section
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sections/{id}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), service.EnrollRequest{StudentID: req.StudentID, SectionID: c.Param("id")})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop a student from a section
// @Tags Enrollments
// @Param id path string true "Section ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /sections/{id}/enrollments/{studentId} [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	if err := h.enrollments.Drop(c.Request.Context(), c.Param("studentId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve a pending enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollments/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	enrollment, err := h.enrollments.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Reject godoc
// @Summary Reject a pending enrollment and release its seat
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollments/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	enrollment, err := h.enrollments.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// ListByStudent godoc
// @Summary List a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), c.Param("id"), statuses...)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, map[string]interface{}{"total": len(enrollments)})
}

func parseStatuses(raw string) ([]models.EnrollmentStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var statuses []models.EnrollmentStatus
	for _, part := range strings.Split(raw, ",") {
		status := models.EnrollmentStatus(strings.ToLower(strings.TrimSpace(part)))
		switch status {
		case models.EnrollmentStatusPending, models.EnrollmentStatusActive, models.EnrollmentStatusRejected,
			models.EnrollmentStatusCompleted, models.EnrollmentStatusDropped:
			statuses = append(statuses, status)
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status "+part)
		}
	}
	return statuses, nil
}

// respondEngineError adds the unmet prerequisite or the colliding slots to the error envelope.
func respondEngineError(c *gin.Context, err error) {
	var (
		unmet    *models.PrerequisiteError
		conflict *models.ScheduleConflictError
	)
	switch {
	case errors.As(err, &unmet):
		response.Error(c, err, map[string]interface{}{"prerequisite": unmet})
	case errors.As(err, &conflict):
		response.Error(c, err, map[string]interface{}{"conflicts": conflict.Conflicts})
	default:
		response.Error(c, err)
	}
}
