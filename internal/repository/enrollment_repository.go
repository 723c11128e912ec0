package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academic-engine/internal/models"
)

// OneSeatPerSectionConstraint is the partial unique index guarding one pending/active
// enrollment per student and section.
const OneSeatPerSectionConstraint = "enrollments_one_seat_per_section"

const enrollmentColumns = `id, student_id, section_id, status, midterm_grade, final_grade, letter_grade, grade_point,
        enrolled_at, dropped_at, completed_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindActive returns the student's enrollment in the section with status active.
func (r *EnrollmentRepository) FindActive(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, sectionID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// HoldsSeat checks whether the student already has a pending or active enrollment in the section.
func (r *EnrollmentRepository) HoldsSeat(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status IN ($3, $4))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID, models.EnrollmentStatusActive, models.EnrollmentStatusPending); err != nil {
		return false, fmt.Errorf("check seat holder: %w", err)
	}
	return exists, nil
}

// ListSeatSlots returns every weekly slot of sections in which the student holds a seat.
func (r *EnrollmentRepository) ListSeatSlots(ctx context.Context, studentID string) ([]models.TimeSlot, error) {
	const query = `SELECT ss.section_id, ss.day_of_week, ss.start_time, ss.end_time
        FROM enrollments e
        JOIN section_schedules ss ON ss.section_id = e.section_id
        WHERE e.student_id = $1 AND e.status IN ($2, $3)`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, studentID, models.EnrollmentStatusActive, models.EnrollmentStatusPending); err != nil {
		return nil, fmt.Errorf("list student schedule: %w", err)
	}
	return slots, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, student_id, section_id, status, enrolled_at, updated_at)
        VALUES (:id, :student_id, :section_id, :status, :enrolled_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// MarkDropped moves the student's seat-holding enrollment in the section to dropped.
// Returns sql.ErrNoRows when there is nothing to drop.
func (r *EnrollmentRepository) MarkDropped(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET status = $3, dropped_at = NOW(), updated_at = NOW()
        WHERE student_id = $1 AND section_id = $2 AND status IN ($4, $5)
        RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, studentID, sectionID,
		models.EnrollmentStatusDropped, models.EnrollmentStatusActive, models.EnrollmentStatusPending); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// TransitionStatus changes status only when the enrollment is currently in from.
// Returns sql.ErrNoRows when the enrollment is missing or in another status.
func (r *EnrollmentRepository) TransitionStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to models.EnrollmentStatus) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET status = $3, updated_at = NOW()
        WHERE id = $1 AND status = $2
        RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, id, from, to); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// GradeRecord carries the computed grade fields written on completion.
type GradeRecord struct {
	EnrollmentID string
	MidtermGrade float64
	FinalGrade   float64
	LetterGrade  models.LetterGrade
	GradePoint   float64
}

// RecordGrade writes the grade fields and completes an active enrollment.
// Returns sql.ErrNoRows when the enrollment is no longer active.
func (r *EnrollmentRepository) RecordGrade(ctx context.Context, exec sqlx.ExtContext, record GradeRecord) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET midterm_grade = $2, final_grade = $3, letter_grade = $4, grade_point = $5,
        status = $6, completed_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND status = $7
        RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, record.EnrollmentID, record.MidtermGrade, record.FinalGrade,
		record.LetterGrade, record.GradePoint, models.EnrollmentStatusCompleted, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListGradedCredits returns grade point and course credits of each completed, graded enrollment.
func (r *EnrollmentRepository) ListGradedCredits(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.GradedCredit, error) {
	const query = `SELECT e.id AS enrollment_id, e.grade_point, c.credits
        FROM enrollments e
        JOIN course_sections cs ON cs.id = e.section_id
        JOIN courses c ON c.id = cs.course_id
        WHERE e.student_id = $1 AND e.status = $2 AND e.letter_grade IS NOT NULL AND e.grade_point IS NOT NULL`
	var credits []models.GradedCredit
	if err := sqlx.SelectContext(ctx, r.exec(exec), &credits, query, studentID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list graded credits: %w", err)
	}
	return credits, nil
}

// ListSectionGrades projects every enrollment of a section with student identity and grades.
func (r *EnrollmentRepository) ListSectionGrades(ctx context.Context, sectionID string) ([]models.SectionGrade, error) {
	const query = `SELECT e.id AS enrollment_id, e.student_id, s.student_number, s.full_name AS student_name,
        e.midterm_grade, e.final_grade, e.letter_grade, e.grade_point, e.status
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.section_id = $1
        ORDER BY s.student_number, e.enrolled_at`
	grades := []models.SectionGrade{}
	if err := r.db.SelectContext(ctx, &grades, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section grades: %w", err)
	}
	return grades, nil
}

// ListByStudent returns the student's enrollments with course and schedule context.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string, statuses []models.EnrollmentStatus) ([]models.StudentEnrollment, error) {
	query := `SELECT e.id, e.student_id, e.section_id, e.status, e.midterm_grade, e.final_grade, e.letter_grade, e.grade_point,
        e.enrolled_at, e.dropped_at, e.completed_at, e.updated_at,
        c.id AS course_id, c.code AS course_code, cs.section_code, c.credits
        FROM enrollments e
        JOIN course_sections cs ON cs.id = e.section_id
        JOIN courses c ON c.id = cs.course_id
        WHERE e.student_id = $1`
	args := []interface{}{studentID}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}
		query += " AND e.status = ANY($2)"
		args = append(args, pq.Array(values))
	}
	query += " ORDER BY e.enrolled_at DESC"

	var enrollments []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return enrollments, nil
	}

	sectionIDs := make([]string, 0, len(enrollments))
	seen := make(map[string]bool, len(enrollments))
	for _, enrollment := range enrollments {
		if !seen[enrollment.SectionID] {
			seen[enrollment.SectionID] = true
			sectionIDs = append(sectionIDs, enrollment.SectionID)
		}
	}
	const slotQuery = `SELECT section_id, day_of_week, start_time, end_time FROM section_schedules WHERE section_id = ANY($1) ORDER BY day_of_week, start_time`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, slotQuery, pq.Array(sectionIDs)); err != nil {
		return nil, fmt.Errorf("list enrollment schedules: %w", err)
	}
	bySection := make(map[string][]models.TimeSlot, len(sectionIDs))
	for _, slot := range slots {
		bySection[slot.SectionID] = append(bySection[slot.SectionID], slot)
	}
	for i := range enrollments {
		enrollments[i].Schedule = bySection[enrollments[i].SectionID]
	}
	return enrollments, nil
}
