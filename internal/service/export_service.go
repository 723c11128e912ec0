package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-engine/internal/models"
	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
	"github.com/noah-isme/academic-engine/pkg/export"
)

type gradeSheetSource interface {
	SectionGrades(ctx context.Context, sectionID string) ([]models.SectionGrade, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ExportResult is a rendered grade sheet ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Format      models.ExportFormat
	Data        []byte
}

// ExportService renders section grade sheets.
type ExportService struct {
	grades   gradeSheetSource
	sections sectionReader
	csv      csvRenderer
	pdf      pdfRenderer
	xlsx     xlsxRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(grades gradeSheetSource, sections sectionReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		grades:   grades,
		sections: sections,
		csv:      csv,
		pdf:      pdf,
		xlsx:     xlsx,
		logger:   logger,
		now:      time.Now,
	}
}

var gradeSheetHeaders = []string{"Student Number", "Student Name", "Midterm", "Final", "Letter", "Grade Point", "Status"}

// ExportSectionGrades renders the section roster in the requested format.
func (s *ExportService) ExportSectionGrades(ctx context.Context, sectionID string, format models.ExportFormat) (*ExportResult, error) {
	if _, ok := models.ParseExportFormat(string(format)); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if format == "" {
		format = models.ExportFormatCSV
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, sectionLookupError(err, sectionID)
	}
	grades, err := s.grades.SectionGrades(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	dataset := buildGradeDataset(grades)
	title := fmt.Sprintf("Grade Sheet %s", section.Label())

	var payload []byte
	switch format {
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, section.Label())
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render grade sheet")
	}

	s.logger.Debug("grade sheet rendered", zap.String("section_id", sectionID), zap.String("format", string(format)), zap.Int("rows", len(grades)))
	return &ExportResult{
		Filename:    s.buildFilename(section, format),
		ContentType: format.ContentType(),
		Format:      format,
		Data:        payload,
	}, nil
}

func (s *ExportService) buildFilename(section *models.CourseSection, format models.ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("grades_%s_%s.%s", sanitizeFilename(section.Label()), timestamp, format)
}

func buildGradeDataset(grades []models.SectionGrade) export.Dataset {
	rows := make([]map[string]string, 0, len(grades))
	for _, g := range grades {
		rows = append(rows, map[string]string{
			"Student Number": g.StudentNumber,
			"Student Name":   g.StudentName,
			"Midterm":        formatScore(g.MidtermGrade),
			"Final":          formatScore(g.FinalGrade),
			"Letter":         formatLetter(g.LetterGrade),
			"Grade Point":    formatScore(g.GradePoint),
			"Status":         string(g.Status),
		})
	}
	return export.Dataset{Headers: gradeSheetHeaders, Rows: rows}
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatLetter(l *models.LetterGrade) string {
	if l == nil {
		return "-"
	}
	return string(*l)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
