package models

// LetterGrade is a grade band symbol.
type LetterGrade string

// Grade bands from highest to lowest.
const (
	LetterAA LetterGrade = "AA"
	LetterBA LetterGrade = "BA"
	LetterBB LetterGrade = "BB"
	LetterCB LetterGrade = "CB"
	LetterCC LetterGrade = "CC"
	LetterDC LetterGrade = "DC"
	LetterDD LetterGrade = "DD"
	LetterFD LetterGrade = "FD"
	LetterFF LetterGrade = "FF"
)

// GradeBand maps a minimum weighted total to a letter and its grade point.
type GradeBand struct {
	MinTotal float64
	Letter   LetterGrade
	Points   float64
}

// GradeScale is ordered descending by MinTotal. The final band catches every total.
var GradeScale = []GradeBand{
	{MinTotal: 90, Letter: LetterAA, Points: 4.0},
	{MinTotal: 85, Letter: LetterBA, Points: 3.5},
	{MinTotal: 80, Letter: LetterBB, Points: 3.0},
	{MinTotal: 75, Letter: LetterCB, Points: 2.5},
	{MinTotal: 70, Letter: LetterCC, Points: 2.0},
	{MinTotal: 65, Letter: LetterDC, Points: 1.5},
	{MinTotal: 60, Letter: LetterDD, Points: 1.0},
	{MinTotal: 50, Letter: LetterFD, Points: 0.0},
	{MinTotal: 0, Letter: LetterFF, Points: 0.0},
}

// Points returns the grade point for the letter, or 0 for unknown letters.
func (l LetterGrade) Points() float64 {
	for _, band := range GradeScale {
		if band.Letter == l {
			return band.Points
		}
	}
	return 0
}

// Passing reports whether the letter satisfies a prerequisite. Only the lowest band fails.
func (l LetterGrade) Passing() bool {
	if l == LetterFF {
		return false
	}
	for _, band := range GradeScale {
		if band.Letter == l {
			return true
		}
	}
	return false
}

// GradedCredit is one completed enrollment's contribution to GPA.
type GradedCredit struct {
	EnrollmentID string  `db:"enrollment_id"`
	GradePoint   float64 `db:"grade_point"`
	Credits      float64 `db:"credits"`
}

// SectionGrade is the read projection of a section roster with grades.
type SectionGrade struct {
	EnrollmentID  string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	StudentNumber string           `db:"student_number" json:"student_number"`
	StudentName   string           `db:"student_name" json:"student_name"`
	MidtermGrade  *float64         `db:"midterm_grade" json:"midterm_grade"`
	FinalGrade    *float64         `db:"final_grade" json:"final_grade"`
	LetterGrade   *LetterGrade     `db:"letter_grade" json:"letter_grade"`
	GradePoint    *float64         `db:"grade_point" json:"grade_point"`
	Status        EnrollmentStatus `db:"status" json:"status"`
}
