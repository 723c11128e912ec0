package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-engine/internal/models"
)

// StudentRepository reads students and writes their derived GPA fields.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, user_id, department_id, student_number, full_name, gpa, cgpa, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdateGPA stores the recomputed GPA figures. Returns sql.ErrNoRows when the student is absent.
func (r *StudentRepository) UpdateGPA(ctx context.Context, exec sqlx.ExtContext, studentID string, gpa, cgpa float64) error {
	const query = `UPDATE students SET gpa = $2, cgpa = $3, updated_at = NOW() WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, studentID, gpa, cgpa)
	if err != nil {
		return fmt.Errorf("update student gpa: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("student gpa rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
