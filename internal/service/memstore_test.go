package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academic-engine/internal/models"
	"github.com/noah-isme/academic-engine/internal/repository"
)

// memDB is an in-memory stand-in for Postgres. WithinTx serialises transactions on mu and
// restores a snapshot when fn fails. Methods taking an exec argument run inside WithinTx and
// therefore do not lock; plain reads take the read lock.
type memDB struct {
	mu          sync.RWMutex
	courses     map[string]models.Course
	prereqs     map[string][]string
	sections    map[string]models.CourseSection
	students    map[string]models.Student
	enrollments map[string]models.Enrollment
	order       []string
	seq         int

	// staleSeatCheck hides existing seats from the reads made before the transaction, as if a
	// concurrent enrollment committed in between.
	staleSeatCheck bool
	reserveErr     error
	txCount        int
}

type memSnapshot struct {
	sections    map[string]models.CourseSection
	students    map[string]models.Student
	enrollments map[string]models.Enrollment
	order       []string
	seq         int
}

func newMemDB() *memDB {
	return &memDB{
		courses:     map[string]models.Course{},
		prereqs:     map[string][]string{},
		sections:    map[string]models.CourseSection{},
		students:    map[string]models.Student{},
		enrollments: map[string]models.Enrollment{},
	}
}

func (d *memDB) WithinTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txCount++
	snap := d.snapshot()
	if err := fn(nil); err != nil {
		d.restore(snap)
		return err
	}
	return nil
}

func (d *memDB) snapshot() memSnapshot {
	snap := memSnapshot{
		sections:    make(map[string]models.CourseSection, len(d.sections)),
		students:    make(map[string]models.Student, len(d.students)),
		enrollments: make(map[string]models.Enrollment, len(d.enrollments)),
		order:       append([]string(nil), d.order...),
		seq:         d.seq,
	}
	for k, v := range d.sections {
		snap.sections[k] = v
	}
	for k, v := range d.students {
		snap.students[k] = v
	}
	for k, v := range d.enrollments {
		snap.enrollments[k] = v
	}
	return snap
}

func (d *memDB) restore(snap memSnapshot) {
	d.sections = snap.sections
	d.students = snap.students
	d.enrollments = snap.enrollments
	d.order = snap.order
	d.seq = snap.seq
}

func (d *memDB) addCourse(id, code string, credits float64, prereqs ...string) {
	d.courses[id] = models.Course{ID: id, Code: code, Name: code, Credits: credits}
	d.prereqs[id] = prereqs
}

func (d *memDB) addSection(id, courseID string, capacity int, slots ...models.TimeSlot) {
	for i := range slots {
		slots[i].SectionID = id
	}
	d.sections[id] = models.CourseSection{
		ID:          id,
		CourseID:    courseID,
		CourseCode:  d.courses[courseID].Code,
		SectionCode: "A",
		Capacity:    capacity,
		Schedule:    slots,
	}
}

func (d *memDB) addStudent(id, number, name string) {
	d.students[id] = models.Student{ID: id, StudentNumber: number, FullName: name}
}

// addEnrollment seeds an enrollment and keeps the section counter consistent.
func (d *memDB) addEnrollment(e models.Enrollment) models.Enrollment {
	d.seq++
	if e.ID == "" {
		e.ID = fmt.Sprintf("enr-%d", d.seq)
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	d.enrollments[e.ID] = e
	d.order = append(d.order, e.ID)
	if e.Status.HoldsSeat() {
		section := d.sections[e.SectionID]
		section.EnrolledCount++
		d.sections[e.SectionID] = section
	}
	return e
}

// completed seeds a graded, completed enrollment.
func (d *memDB) completed(studentID, sectionID string, letter models.LetterGrade) models.Enrollment {
	points := letter.Points()
	return d.addEnrollment(models.Enrollment{
		StudentID:   studentID,
		SectionID:   sectionID,
		Status:      models.EnrollmentStatusCompleted,
		LetterGrade: &letter,
		GradePoint:  &points,
	})
}

func (d *memDB) enrolledCount(sectionID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sections[sectionID].EnrolledCount
}

func (d *memDB) seatHolders(sectionID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	count := 0
	for _, e := range d.enrollments {
		if e.SectionID == sectionID && e.Status.HoldsSeat() {
			count++
		}
	}
	return count
}

func (d *memDB) enrollmentCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.enrollments)
}

func (d *memDB) student(id string) models.Student {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.students[id]
}

func (d *memDB) seatHolding(studentID, sectionID string) (models.Enrollment, bool) {
	for _, id := range d.order {
		e := d.enrollments[id]
		if e.StudentID == studentID && e.SectionID == sectionID && e.Status.HoldsSeat() {
			return e, true
		}
	}
	return models.Enrollment{}, false
}

func slot(day models.Weekday, start, end string) models.TimeSlot {
	return models.TimeSlot{Day: day, StartTime: models.MustClockTime(start), EndTime: models.MustClockTime(end)}
}

type memSections struct{ db *memDB }

func (s memSections) FindByID(ctx context.Context, id string) (*models.CourseSection, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	section, ok := s.db.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &section, nil
}

func (s memSections) ReserveSeat(ctx context.Context, exec sqlx.ExtContext, sectionID string) (bool, error) {
	if s.db.reserveErr != nil {
		return false, s.db.reserveErr
	}
	section, ok := s.db.sections[sectionID]
	if !ok || section.EnrolledCount >= section.Capacity {
		return false, nil
	}
	section.EnrolledCount++
	s.db.sections[sectionID] = section
	return true, nil
}

func (s memSections) ReleaseSeat(ctx context.Context, exec sqlx.ExtContext, sectionID string) (bool, error) {
	section, ok := s.db.sections[sectionID]
	if !ok || section.EnrolledCount == 0 {
		return false, nil
	}
	section.EnrolledCount--
	s.db.sections[sectionID] = section
	return true, nil
}

type memEnrollments struct{ db *memDB }

func (m memEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	e, ok := m.db.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m memEnrollments) FindActive(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	e, ok := m.db.seatHolding(studentID, sectionID)
	if !ok || e.Status != models.EnrollmentStatusActive {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m memEnrollments) HoldsSeat(ctx context.Context, studentID, sectionID string) (bool, error) {
	if m.db.staleSeatCheck {
		return false, nil
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	_, ok := m.db.seatHolding(studentID, sectionID)
	return ok, nil
}

func (m memEnrollments) ListSeatSlots(ctx context.Context, studentID string) ([]models.TimeSlot, error) {
	if m.db.staleSeatCheck {
		return nil, nil
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var slots []models.TimeSlot
	for _, id := range m.db.order {
		e := m.db.enrollments[id]
		if e.StudentID == studentID && e.Status.HoldsSeat() {
			slots = append(slots, m.db.sections[e.SectionID].Schedule...)
		}
	}
	return slots, nil
}

func (m memEnrollments) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if _, exists := m.db.seatHolding(enrollment.StudentID, enrollment.SectionID); exists {
		return fmt.Errorf("create enrollment: %w", &pq.Error{Code: "23505", Constraint: repository.OneSeatPerSectionConstraint})
	}
	m.db.seq++
	enrollment.ID = fmt.Sprintf("enr-%d", m.db.seq)
	enrollment.UpdatedAt = time.Now().UTC()
	m.db.enrollments[enrollment.ID] = *enrollment
	m.db.order = append(m.db.order, enrollment.ID)
	return nil
}

func (m memEnrollments) MarkDropped(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) (*models.Enrollment, error) {
	e, ok := m.db.seatHolding(studentID, sectionID)
	if !ok {
		return nil, sql.ErrNoRows
	}
	now := time.Now().UTC()
	e.Status = models.EnrollmentStatusDropped
	e.DroppedAt = &now
	m.db.enrollments[e.ID] = e
	return &e, nil
}

func (m memEnrollments) TransitionStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to models.EnrollmentStatus) (*models.Enrollment, error) {
	e, ok := m.db.enrollments[id]
	if !ok || e.Status != from {
		return nil, sql.ErrNoRows
	}
	e.Status = to
	m.db.enrollments[id] = e
	return &e, nil
}

func (m memEnrollments) ListByStudent(ctx context.Context, studentID string, statuses []models.EnrollmentStatus) ([]models.StudentEnrollment, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	allowed := map[models.EnrollmentStatus]bool{}
	for _, s := range statuses {
		allowed[s] = true
	}
	var result []models.StudentEnrollment
	for _, id := range m.db.order {
		e := m.db.enrollments[id]
		if e.StudentID != studentID || (len(allowed) > 0 && !allowed[e.Status]) {
			continue
		}
		section := m.db.sections[e.SectionID]
		course := m.db.courses[section.CourseID]
		result = append(result, models.StudentEnrollment{
			Enrollment:  e,
			CourseID:    course.ID,
			CourseCode:  course.Code,
			SectionCode: section.SectionCode,
			Credits:     course.Credits,
			Schedule:    section.Schedule,
		})
	}
	return result, nil
}

func (m memEnrollments) RecordGrade(ctx context.Context, exec sqlx.ExtContext, record repository.GradeRecord) (*models.Enrollment, error) {
	e, ok := m.db.enrollments[record.EnrollmentID]
	if !ok || e.Status != models.EnrollmentStatusActive {
		return nil, sql.ErrNoRows
	}
	mid, final, letter, points := record.MidtermGrade, record.FinalGrade, record.LetterGrade, record.GradePoint
	now := time.Now().UTC()
	e.MidtermGrade, e.FinalGrade, e.LetterGrade, e.GradePoint = &mid, &final, &letter, &points
	e.Status = models.EnrollmentStatusCompleted
	e.CompletedAt = &now
	m.db.enrollments[e.ID] = e
	return &e, nil
}

func (m memEnrollments) ListGradedCredits(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.GradedCredit, error) {
	var credits []models.GradedCredit
	for _, id := range m.db.order {
		e := m.db.enrollments[id]
		if e.StudentID != studentID || e.Status != models.EnrollmentStatusCompleted || e.LetterGrade == nil || e.GradePoint == nil {
			continue
		}
		course := m.db.courses[m.db.sections[e.SectionID].CourseID]
		credits = append(credits, models.GradedCredit{EnrollmentID: e.ID, GradePoint: *e.GradePoint, Credits: course.Credits})
	}
	return credits, nil
}

func (m memEnrollments) ListSectionGrades(ctx context.Context, sectionID string) ([]models.SectionGrade, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	grades := []models.SectionGrade{}
	for _, id := range m.db.order {
		e := m.db.enrollments[id]
		if e.SectionID != sectionID {
			continue
		}
		student := m.db.students[e.StudentID]
		grades = append(grades, models.SectionGrade{
			EnrollmentID:  e.ID,
			StudentID:     e.StudentID,
			StudentNumber: student.StudentNumber,
			StudentName:   student.FullName,
			MidtermGrade:  e.MidtermGrade,
			FinalGrade:    e.FinalGrade,
			LetterGrade:   e.LetterGrade,
			GradePoint:    e.GradePoint,
			Status:        e.Status,
		})
	}
	sort.SliceStable(grades, func(i, j int) bool { return grades[i].StudentNumber < grades[j].StudentNumber })
	return grades, nil
}

type memStudents struct{ db *memDB }

func (m memStudents) UpdateGPA(ctx context.Context, exec sqlx.ExtContext, studentID string, gpa, cgpa float64) error {
	student, ok := m.db.students[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	student.GPA, student.CGPA = gpa, cgpa
	m.db.students[studentID] = student
	return nil
}

type memCourses struct{ db *memDB }

func (m memCourses) ListPrerequisites(ctx context.Context, courseID string) ([]models.Course, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var courses []models.Course
	for _, id := range m.db.prereqs[courseID] {
		courses = append(courses, m.db.courses[id])
	}
	return courses, nil
}

func (m memCourses) HasPassed(ctx context.Context, studentID, courseID string) (bool, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	for _, e := range m.db.enrollments {
		if e.StudentID != studentID || e.Status != models.EnrollmentStatusCompleted || e.LetterGrade == nil {
			continue
		}
		if m.db.sections[e.SectionID].CourseID == courseID && e.LetterGrade.Passing() {
			return true, nil
		}
	}
	return false, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return p.err
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
