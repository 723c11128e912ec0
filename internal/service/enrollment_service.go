package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-engine/internal/models"
	"github.com/noah-isme/academic-engine/internal/repository"
	"github.com/noah-isme/academic-engine/pkg/database"
	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
	"github.com/noah-isme/academic-engine/pkg/events"
)

type sectionStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseSection, error)
	ReserveSeat(ctx context.Context, exec sqlx.ExtContext, sectionID string) (bool, error)
	ReleaseSeat(ctx context.Context, exec sqlx.ExtContext, sectionID string) (bool, error)
}

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	HoldsSeat(ctx context.Context, studentID, sectionID string) (bool, error)
	ListSeatSlots(ctx context.Context, studentID string) ([]models.TimeSlot, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	MarkDropped(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) (*models.Enrollment, error)
	TransitionStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to models.EnrollmentStatus) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string, statuses []models.EnrollmentStatus) ([]models.StudentEnrollment, error)
}

type prerequisiteChecker interface {
	Check(ctx context.Context, courseID, studentID string) error
}

type conflictDetector interface {
	Conflicts(existing, candidate []models.TimeSlot) []models.SlotConflict
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// EnrollRequest asks for a seat in a section.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// EnrollmentConfig tunes the coordinator.
type EnrollmentConfig struct {
	// RequireApproval creates enrollments as pending instead of active. Pending still holds a seat.
	RequireApproval bool
}

// EnrollmentEvent is the payload of enrollment.* events.
type EnrollmentEvent struct {
	EnrollmentID string                  `json:"enrollment_id"`
	StudentID    string                  `json:"student_id"`
	SectionID    string                  `json:"section_id"`
	Status       models.EnrollmentStatus `json:"status"`
}

// EnrollmentService coordinates seat reservation, drops and approval. Every mutation runs in a
// single transaction; the section capacity is only ever checked by the conditional seat update.
type EnrollmentService struct {
	sections      sectionStore
	enrollments   enrollmentStore
	prerequisites prerequisiteChecker
	detector      conflictDetector
	tx            txRunner
	cache         *CacheService
	events        eventPublisher
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           EnrollmentConfig
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	sections sectionStore,
	enrollments enrollmentStore,
	prerequisites prerequisiteChecker,
	detector conflictDetector,
	tx txRunner,
	cache *CacheService,
	publisher eventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg EnrollmentConfig,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = NewScheduleConflictDetector()
	}
	return &EnrollmentService{
		sections:      sections,
		enrollments:   enrollments,
		prerequisites: prerequisites,
		detector:      detector,
		tx:            tx,
		cache:         cache,
		events:        publisher,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
	}
}

// Enroll checks eligibility and reserves a seat for the student.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		return nil, sectionLookupError(err, req.SectionID)
	}

	held, err := s.enrollments.HoldsSeat(ctx, req.StudentID, section.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing enrollment")
	}
	if held {
		s.metrics.ObserveEnrollment(OutcomeAlreadyEnrolled)
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("student already holds a seat in %s", section.Label()))
	}

	if err := s.prerequisites.Check(ctx, section.CourseID, req.StudentID); err != nil {
		if errors.Is(err, appErrors.ErrPrerequisiteNotMet) {
			s.metrics.ObserveEnrollment(OutcomePrerequisite)
		}
		return nil, err
	}

	existing, err := s.enrollments.ListSeatSlots(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load student schedule")
	}
	if conflicts := s.detector.Conflicts(existing, section.Schedule); len(conflicts) > 0 {
		s.metrics.ObserveEnrollment(OutcomeConflict)
		conflictErr := &models.ScheduleConflictError{SectionID: section.ID, Conflicts: conflicts}
		wrapped := appErrors.Clone(appErrors.ErrScheduleConflict, "")
		wrapped.Err = conflictErr
		return nil, wrapped
	}

	status := models.EnrollmentStatusActive
	if s.cfg.RequireApproval {
		status = models.EnrollmentStatusPending
	}
	enrollment := &models.Enrollment{StudentID: req.StudentID, SectionID: section.ID, Status: status, EnrolledAt: time.Now().UTC()}

	start := time.Now()
	err = s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		reserved, err := s.sections.ReserveSeat(ctx, tx, section.ID)
		if err != nil {
			return err
		}
		if !reserved {
			return appErrors.Clone(appErrors.ErrSectionFull, fmt.Sprintf("section %s is full", section.Label()))
		}
		return s.enrollments.Create(ctx, tx, enrollment)
	})
	s.metrics.ObserveTransaction("enroll", err, time.Since(start))
	if err != nil {
		switch {
		case errors.Is(err, appErrors.ErrSectionFull):
			s.metrics.ObserveEnrollment(OutcomeSectionFull)
			return nil, err
		case database.IsUniqueViolation(err, repository.OneSeatPerSectionConstraint):
			s.metrics.ObserveEnrollment(OutcomeAlreadyEnrolled)
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("student already holds a seat in %s", section.Label()))
		default:
			s.metrics.ObserveEnrollment(OutcomeError)
			return nil, appErrors.Internal(err, "failed to enroll student")
		}
	}

	if status == models.EnrollmentStatusPending {
		s.metrics.ObserveEnrollment(OutcomePending)
	} else {
		s.metrics.ObserveEnrollment(OutcomeEnrolled)
	}
	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("section_id", enrollment.SectionID),
		zap.String("status", string(enrollment.Status)))
	s.afterCommit(ctx, events.EnrollmentCreated, enrollment)
	return enrollment, nil
}

// Drop releases the student's seat in the section.
func (s *EnrollmentService) Drop(ctx context.Context, studentID, sectionID string) error {
	if studentID == "" || sectionID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student id and section id are required")
	}

	var dropped *models.Enrollment
	start := time.Now()
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		enrollment, err := s.enrollments.MarkDropped(ctx, tx, studentID, sectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrEnrollmentNotFound, "no active enrollment for student in section")
			}
			return err
		}
		released, err := s.sections.ReleaseSeat(ctx, tx, sectionID)
		if err != nil {
			return err
		}
		if !released {
			s.warnSeatNotReleased(enrollment)
		}
		dropped = enrollment
		return nil
	})
	s.metrics.ObserveTransaction("drop", err, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrEnrollmentNotFound) {
			return err
		}
		return appErrors.Internal(err, "failed to drop enrollment")
	}

	s.metrics.ObserveEnrollment(OutcomeDropped)
	s.logger.Info("enrollment dropped", zap.String("enrollment_id", dropped.ID), zap.String("section_id", sectionID))
	s.afterCommit(ctx, events.EnrollmentDropped, dropped)
	return nil
}

// Approve activates a pending enrollment. The seat was already reserved at enrollment time.
func (s *EnrollmentService) Approve(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	var approved *models.Enrollment
	start := time.Now()
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		enrollment, err := s.enrollments.TransitionStatus(ctx, tx, enrollmentID, models.EnrollmentStatusPending, models.EnrollmentStatusActive)
		approved = enrollment
		return err
	})
	s.metrics.ObserveTransaction("approve", err, time.Since(start))
	if err != nil {
		return nil, s.transitionError(ctx, err, enrollmentID, models.EnrollmentStatusPending, "failed to approve enrollment")
	}

	s.metrics.ObserveEnrollment(OutcomeApproved)
	s.afterCommit(ctx, events.EnrollmentApproved, approved)
	return approved, nil
}

// Reject refuses a pending enrollment and gives its seat back.
func (s *EnrollmentService) Reject(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	var rejected *models.Enrollment
	start := time.Now()
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		enrollment, err := s.enrollments.TransitionStatus(ctx, tx, enrollmentID, models.EnrollmentStatusPending, models.EnrollmentStatusRejected)
		if err != nil {
			return err
		}
		released, err := s.sections.ReleaseSeat(ctx, tx, enrollment.SectionID)
		if err != nil {
			return err
		}
		if !released {
			s.warnSeatNotReleased(enrollment)
		}
		rejected = enrollment
		return nil
	})
	s.metrics.ObserveTransaction("reject", err, time.Since(start))
	if err != nil {
		return nil, s.transitionError(ctx, err, enrollmentID, models.EnrollmentStatusPending, "failed to reject enrollment")
	}

	s.metrics.ObserveEnrollment(OutcomeRejected)
	s.afterCommit(ctx, events.EnrollmentRejected, rejected)
	return rejected, nil
}

// warnSeatNotReleased flags a seat counter that was already at zero when an
// enrollment gave its seat back.
func (s *EnrollmentService) warnSeatNotReleased(enrollment *models.Enrollment) {
	s.logger.Warn("seat counter already at zero",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("section_id", enrollment.SectionID),
	)
}

// ListByStudent returns the student's enrollments, optionally filtered by status.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string, statuses ...models.EnrollmentStatus) ([]models.StudentEnrollment, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID, statuses)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return enrollments, nil
}

// transitionError explains a status transition that matched no row: either the enrollment is
// missing or it has already left the expected status.
func (s *EnrollmentService) transitionError(ctx context.Context, err error, id string, from models.EnrollmentStatus, message string) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, message)
	}
	current, findErr := s.enrollments.FindByID(ctx, id)
	switch {
	case errors.Is(findErr, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrEnrollmentNotFound, fmt.Sprintf("enrollment %s not found", id))
	case findErr != nil:
		return appErrors.Internal(findErr, message)
	default:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("enrollment is %s, expected %s", current.Status, from))
	}
}

// afterCommit retires the cached section roster and publishes the event. Neither step can
// undo the committed change, so failures are only logged.
func (s *EnrollmentService) afterCommit(ctx context.Context, eventType string, enrollment *models.Enrollment) {
	s.cache.Bump(ctx, sectionGradesGenerationKey(enrollment.SectionID))
	if s.events == nil {
		return
	}
	payload := EnrollmentEvent{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		SectionID:    enrollment.SectionID,
		Status:       enrollment.Status,
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", eventType), zap.String("enrollment_id", enrollment.ID), zap.Error(err))
	}
}
