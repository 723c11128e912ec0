package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusRejected  EnrollmentStatus = "rejected"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
)

// HoldsSeat reports whether the status consumes a seat in its section.
func (s EnrollmentStatus) HoldsSeat() bool {
	return s == EnrollmentStatusActive || s == EnrollmentStatusPending
}

// Enrollment captures a student's seat in a course section and its grading outcome.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	SectionID    string           `db:"section_id" json:"section_id"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	MidtermGrade *float64         `db:"midterm_grade" json:"midterm_grade,omitempty"`
	FinalGrade   *float64         `db:"final_grade" json:"final_grade,omitempty"`
	LetterGrade  *LetterGrade     `db:"letter_grade" json:"letter_grade,omitempty"`
	GradePoint   *float64         `db:"grade_point" json:"grade_point,omitempty"`
	EnrolledAt   time.Time        `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt    *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
	CompletedAt  *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentEnrollment enriches an enrollment with its section and course for schedule views.
type StudentEnrollment struct {
	Enrollment
	CourseID    string     `db:"course_id" json:"course_id"`
	CourseCode  string     `db:"course_code" json:"course_code"`
	SectionCode string     `db:"section_code" json:"section_code"`
	Credits     float64    `db:"credits" json:"credits"`
	Schedule    []TimeSlot `db:"-" json:"schedule,omitempty"`
}
