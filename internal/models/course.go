package models

import "fmt"

// Course is a catalogue entry. Prerequisites are stored as directed edges in course_prerequisites.
type Course struct {
	ID      string  `db:"id" json:"id"`
	Code    string  `db:"code" json:"code"`
	Name    string  `db:"name" json:"name"`
	Credits float64 `db:"credits" json:"credits"`
}

// CourseSection is a scheduled offering of a course with a finite number of seats.
type CourseSection struct {
	ID            string     `db:"id" json:"id"`
	CourseID      string     `db:"course_id" json:"course_id"`
	CourseCode    string     `db:"course_code" json:"course_code"`
	SectionCode   string     `db:"section_code" json:"section_code"`
	InstructorID  *string    `db:"instructor_id" json:"instructor_id,omitempty"`
	Capacity      int        `db:"capacity" json:"capacity"`
	EnrolledCount int        `db:"enrolled_count" json:"enrolled_count"`
	Schedule      []TimeSlot `db:"-" json:"schedule"`
}

// Label returns a human readable identifier such as "CS101-A".
func (s CourseSection) Label() string {
	switch {
	case s.CourseCode != "" && s.SectionCode != "":
		return s.CourseCode + "-" + s.SectionCode
	case s.SectionCode != "":
		return s.SectionCode
	default:
		return s.ID
	}
}

// PrerequisiteError names the first prerequisite course found unmet.
type PrerequisiteError struct {
	CourseID         string `json:"course_id"`
	PrerequisiteID   string `json:"prerequisite_id"`
	PrerequisiteCode string `json:"prerequisite_code"`
}

// Error implements the error interface.
func (e *PrerequisiteError) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.PrerequisiteCode
	if name == "" {
		name = e.PrerequisiteID
	}
	return fmt.Sprintf("prerequisite %s not completed", name)
}
