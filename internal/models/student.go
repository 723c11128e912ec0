package models

import "time"

// Student is the academic record holder. GPA and CGPA are derived from graded enrollments.
type Student struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	DepartmentID  *string   `db:"department_id" json:"department_id,omitempty"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	FullName      string    `db:"full_name" json:"full_name"`
	GPA           float64   `db:"gpa" json:"gpa"`
	CGPA          float64   `db:"cgpa" json:"cgpa"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentGPA is the result of a GPA recomputation.
type StudentGPA struct {
	StudentID string  `json:"student_id"`
	GPA       float64 `json:"gpa"`
	CGPA      float64 `json:"cgpa"`
	Credits   float64 `json:"credits"`
}
