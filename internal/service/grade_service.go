package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-engine/internal/models"
	"github.com/noah-isme/academic-engine/internal/repository"
	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
	"github.com/noah-isme/academic-engine/pkg/events"
)

// Weights applied to the midterm and final exam when computing the course total.
const (
	MidtermWeight = 0.4
	FinalWeight   = 0.6
)

type gradeEnrollmentStore interface {
	FindActive(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	RecordGrade(ctx context.Context, exec sqlx.ExtContext, record repository.GradeRecord) (*models.Enrollment, error)
	ListGradedCredits(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.GradedCredit, error)
	ListSectionGrades(ctx context.Context, sectionID string) ([]models.SectionGrade, error)
}

type gpaStore interface {
	UpdateGPA(ctx context.Context, exec sqlx.ExtContext, studentID string, gpa, cgpa float64) error
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseSection, error)
}

// EnterGradeRequest carries the two exam scores of one student in one section.
type EnterGradeRequest struct {
	SectionID    string  `json:"section_id" validate:"required"`
	StudentID    string  `json:"student_id" validate:"required"`
	MidtermGrade float64 `json:"midterm_grade"`
	FinalGrade   float64 `json:"final_grade"`
}

// GradeRecordedEvent is the payload of grade.recorded.
type GradeRecordedEvent struct {
	EnrollmentID  string             `json:"enrollment_id"`
	StudentID     string             `json:"student_id"`
	SectionID     string             `json:"section_id"`
	WeightedTotal float64            `json:"weighted_total"`
	LetterGrade   models.LetterGrade `json:"letter_grade"`
	GradePoint    float64            `json:"grade_point"`
	GPA           float64            `json:"gpa"`
}

// GradeService records grades, keeps student GPA in step and serves section rosters.
type GradeService struct {
	enrollments gradeEnrollmentStore
	students    gpaStore
	sections    sectionReader
	tx          txRunner
	cache       *CacheService
	cacheTTL    time.Duration
	events      eventPublisher
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(
	enrollments gradeEnrollmentStore,
	students gpaStore,
	sections sectionReader,
	tx txRunner,
	cache *CacheService,
	cacheTTL time.Duration,
	publisher eventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		enrollments: enrollments,
		students:    students,
		sections:    sections,
		tx:          tx,
		cache:       cache,
		cacheTTL:    cacheTTL,
		events:      publisher,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// bandEpsilon absorbs float error in the weighted sum. Two-decimal scores produce totals on a
// 0.001 grid, so it must stay far below that.
const bandEpsilon = 1e-9

// WeightedTotal combines the exam scores. The result is not rounded; banding uses it as is.
func WeightedTotal(midterm, final float64) float64 {
	return midterm*MidtermWeight + final*FinalWeight
}

// GradeFor returns the band a weighted total falls into. A total just under a threshold stays in
// the lower band.
func GradeFor(total float64) models.GradeBand {
	for _, band := range models.GradeScale {
		if total+bandEpsilon >= band.MinTotal {
			return band
		}
	}
	return models.GradeScale[len(models.GradeScale)-1]
}

// ComputeGPA returns the credit weighted mean grade point, or 0 without credits.
func ComputeGPA(credits []models.GradedCredit) float64 {
	var points, total float64
	for _, c := range credits {
		points += c.GradePoint * c.Credits
		total += c.Credits
	}
	if total == 0 {
		return 0
	}
	return round2(points / total)
}

func validGrade(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round3 is for display only.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// EnterGrade records both exam scores, completes the enrollment and recomputes the student's GPA
// in one transaction.
func (s *GradeService) EnterGrade(ctx context.Context, req EnterGradeRequest) (*models.Enrollment, error) {
	if !validGrade(req.MidtermGrade) || !validGrade(req.FinalGrade) {
		return nil, appErrors.Clone(appErrors.ErrInvalidGradeRange,
			fmt.Sprintf("grades must be between 0 and 100, got midterm %.2f final %.2f", req.MidtermGrade, req.FinalGrade))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	total := WeightedTotal(req.MidtermGrade, req.FinalGrade)
	band := GradeFor(total)

	enrollment, err := s.enrollments.FindActive(ctx, req.StudentID, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrEnrollmentNotFound, "no active enrollment for student in section")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}

	var (
		graded *models.Enrollment
		gpa    *models.StudentGPA
	)
	start := time.Now()
	err = s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		updated, err := s.enrollments.RecordGrade(ctx, tx, repository.GradeRecord{
			EnrollmentID: enrollment.ID,
			MidtermGrade: req.MidtermGrade,
			FinalGrade:   req.FinalGrade,
			LetterGrade:  band.Letter,
			GradePoint:   band.Points,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrEnrollmentNotFound, "enrollment is no longer active")
			}
			return err
		}
		graded = updated
		gpa, err = s.recomputeGPA(ctx, tx, req.StudentID)
		return err
	})
	s.metrics.ObserveTransaction("enter_grade", err, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrEnrollmentNotFound) || errors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Internal(err, "failed to record grade")
	}

	s.metrics.ObserveGrade(string(band.Letter))
	s.cache.Bump(ctx, sectionGradesGenerationKey(req.SectionID))
	s.logger.Info("grade recorded",
		zap.String("enrollment_id", graded.ID),
		zap.Float64("total", round3(total)),
		zap.String("letter", string(band.Letter)),
		zap.Float64("gpa", gpa.GPA))
	s.publish(ctx, events.GradeRecorded, GradeRecordedEvent{
		EnrollmentID:  graded.ID,
		StudentID:     graded.StudentID,
		SectionID:     graded.SectionID,
		WeightedTotal: round3(total),
		LetterGrade:   band.Letter,
		GradePoint:    band.Points,
		GPA:           gpa.GPA,
	})
	return graded, nil
}

// RecalculateGPA recomputes and stores the student's GPA from completed enrollments.
func (s *GradeService) RecalculateGPA(ctx context.Context, studentID string) (*models.StudentGPA, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	var result *models.StudentGPA
	start := time.Now()
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		var err error
		result, err = s.recomputeGPA(ctx, tx, studentID)
		return err
	})
	s.metrics.ObserveTransaction("recalculate_gpa", err, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Internal(err, "failed to recalculate gpa")
	}
	s.logger.Info("gpa recalculated", zap.String("student_id", studentID), zap.Float64("gpa", result.GPA))
	return result, nil
}

// recomputeGPA stores the same figure as gpa and cgpa; per-term GPA is not tracked.
func (s *GradeService) recomputeGPA(ctx context.Context, tx sqlx.ExtContext, studentID string) (*models.StudentGPA, error) {
	credits, err := s.enrollments.ListGradedCredits(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}
	result := &models.StudentGPA{StudentID: studentID, GPA: ComputeGPA(credits)}
	result.CGPA = result.GPA
	for _, c := range credits {
		result.Credits += c.Credits
	}
	if err := s.students.UpdateGPA(ctx, tx, studentID, result.GPA, result.CGPA); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, err
	}
	return result, nil
}

// SectionGrades returns the section roster with grades ordered by student number.
func (s *GradeService) SectionGrades(ctx context.Context, sectionID string) ([]models.SectionGrade, error) {
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section id is required")
	}
	gen, cacheable := s.cache.Generation(ctx, sectionGradesGenerationKey(sectionID))
	key := sectionGradesCacheKey(sectionID, gen)
	if cacheable {
		var cached []models.SectionGrade
		if s.cache.Get(ctx, key, &cached) {
			return cached, nil
		}
	}

	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		return nil, sectionLookupError(err, sectionID)
	}
	grades, err := s.enrollments.ListSectionGrades(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list section grades")
	}
	if cacheable {
		s.cache.Set(ctx, key, grades, s.cacheTTL)
	}
	return grades, nil
}

func sectionLookupError(err error, sectionID string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrSectionNotFound, fmt.Sprintf("section %s not found", sectionID))
	}
	return appErrors.Internal(err, "failed to load section")
}

func (s *GradeService) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}
