package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-engine/internal/models"
)

// CourseRepository reads the course catalogue and the prerequisite graph.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, credits FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListPrerequisites returns the direct prerequisites of a course.
func (r *CourseRepository) ListPrerequisites(ctx context.Context, courseID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.code, c.name, c.credits
        FROM course_prerequisites cp
        JOIN courses c ON c.id = cp.prerequisite_id
        WHERE cp.course_id = $1
        ORDER BY c.code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return courses, nil
}

// HasPassed reports whether the student completed any section of the course with a passing letter.
func (r *CourseRepository) HasPassed(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM enrollments e
        JOIN course_sections cs ON cs.id = e.section_id
        WHERE e.student_id = $1 AND cs.course_id = $2 AND e.status = $3
          AND e.letter_grade IS NOT NULL AND e.letter_grade <> $4)`
	var passed bool
	if err := r.db.GetContext(ctx, &passed, query, studentID, courseID, models.EnrollmentStatusCompleted, models.LetterFF); err != nil {
		return false, fmt.Errorf("check completed course: %w", err)
	}
	return passed, nil
}
