package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-engine/internal/models"
)

// SectionRepository persists course sections, their weekly schedule and seat counters.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

func (r *SectionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads a section together with its weekly schedule.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.CourseSection, error) {
	const query = `SELECT cs.id, cs.course_id, c.code AS course_code, cs.section_code, cs.instructor_id, cs.capacity, cs.enrolled_count
        FROM course_sections cs
        JOIN courses c ON c.id = cs.course_id
        WHERE cs.id = $1`
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	schedule, err := r.ListSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	section.Schedule = schedule
	return &section, nil
}

// ListSchedule returns the weekly slots of a section.
func (r *SectionRepository) ListSchedule(ctx context.Context, sectionID string) ([]models.TimeSlot, error) {
	const query = `SELECT section_id, day_of_week, start_time, end_time FROM section_schedules WHERE section_id = $1 ORDER BY day_of_week, start_time`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section schedule: %w", err)
	}
	return slots, nil
}

// ReserveSeat increments enrolled_count only while seats remain. The check and the
// increment are one statement, so concurrent callers cannot both take the last seat.
// It reports false when the section is full or no longer exists.
func (r *SectionRepository) ReserveSeat(ctx context.Context, exec sqlx.ExtContext, sectionID string) (bool, error) {
	const query = `UPDATE course_sections SET enrolled_count = enrolled_count + 1, updated_at = NOW()
        WHERE id = $1 AND enrolled_count < capacity`
	result, err := r.exec(exec).ExecContext(ctx, query, sectionID)
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat rows affected: %w", err)
	}
	return affected == 1, nil
}

// ReleaseSeat decrements enrolled_count, never below zero. It reports false when
// nothing was released.
func (r *SectionRepository) ReleaseSeat(ctx context.Context, exec sqlx.ExtContext, sectionID string) (bool, error) {
	const query = `UPDATE course_sections SET enrolled_count = enrolled_count - 1, updated_at = NOW()
        WHERE id = $1 AND enrolled_count > 0`
	result, err := r.exec(exec).ExecContext(ctx, query, sectionID)
	if err != nil {
		return false, fmt.Errorf("release seat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release seat rows affected: %w", err)
	}
	return affected == 1, nil
}
