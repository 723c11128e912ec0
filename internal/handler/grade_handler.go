package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-engine/internal/models"
	"github.com/noah-isme/academic-engine/internal/service"
	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
	"github.com/noah-isme/academic-engine/pkg/response"
)

type gradeService interface {
	EnterGrade(ctx context.Context, req service.EnterGradeRequest) (*models.Enrollment, error)
	SectionGrades(ctx context.Context, sectionID string) ([]models.SectionGrade, error)
	RecalculateGPA(ctx context.Context, studentID string) (*models.StudentGPA, error)
}

type gradeExporter interface {
	ExportSectionGrades(ctx context.Context, sectionID string, format models.ExportFormat) (*service.ExportResult, error)
}

// EnterGradeRequest is the body of a grade entry; the section comes from the path.
// Scores are pointers so a legitimate 0 is distinguishable from a missing field.
type EnterGradeRequest struct {
	StudentID    string   `json:"student_id" binding:"required"`
	MidtermGrade *float64 `json:"midterm_grade" binding:"required"`
	FinalGrade   *float64 `json:"final_grade" binding:"required"`
}

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades   gradeService
	exporter gradeExporter
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService, exporter gradeExporter) *GradeHandler {
	return &GradeHandler{grades: grades, exporter: exporter}
}

// EnterGrade godoc
// @Summary Record midterm and final grades
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body EnterGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id}/grades [put]
func (h *GradeHandler) EnterGrade(c *gin.Context) {
	var req EnterGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.grades.EnterGrade(c.Request.Context(), service.EnterGradeRequest{
		SectionID:    c.Param("id"),
		StudentID:    req.StudentID,
		MidtermGrade: *req.MidtermGrade,
		FinalGrade:   *req.FinalGrade,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// SectionGrades godoc
// @Summary List grades of a section
// @Tags Grades
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/grades [get]
func (h *GradeHandler) SectionGrades(c *gin.Context) {
	grades, err := h.grades.SectionGrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, map[string]interface{}{"total": len(grades)})
}

// Export godoc
// @Summary Download the grade sheet of a section
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Section ID"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Router /sections/{id}/grades/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	format, ok := models.ParseExportFormat(c.Query("format"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx"))
		return
	}
	result, err := h.exporter.ExportSectionGrades(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Data)
}

// RecalculateGPA godoc
// @Summary Recompute a student's GPA from completed enrollments
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gpa/recalculate [post]
func (h *GradeHandler) RecalculateGPA(c *gin.Context) {
	result, err := h.grades.RecalculateGPA(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
