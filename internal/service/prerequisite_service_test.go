package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-engine/internal/models"
	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
)

type failingGraph struct{ memCourses }

func (failingGraph) HasPassed(ctx context.Context, studentID, courseID string) (bool, error) {
	return false, errors.New("db offline")
}

func TestPrerequisiteResolverNoPrerequisites(t *testing.T) {
	db := newMemDB()
	seedCatalogue(db)
	resolver := NewPrerequisiteResolver(memCourses{db}, nil)

	ok, err := resolver.IsSatisfied(context.Background(), "cs101", "stu-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrerequisiteResolverFailedGradeDoesNotCount(t *testing.T) {
	db := newMemDB()
	seedCatalogue(db)
	db.completed("stu-1", "sec-101", models.LetterFF)
	resolver := NewPrerequisiteResolver(memCourses{db}, nil)

	err := resolver.Check(context.Background(), "cs102", "stu-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPrerequisiteNotMet))
	var unmet *models.PrerequisiteError
	require.True(t, errors.As(err, &unmet))
	assert.Equal(t, "cs101", unmet.PrerequisiteID)
	assert.Equal(t, "cs102", unmet.CourseID)
	assert.Equal(t, "prerequisite not met: prerequisite CS101 not completed", err.Error())

	ok, err := resolver.IsSatisfied(context.Background(), "cs102", "stu-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrerequisiteResolverCycleTerminates(t *testing.T) {
	db := newMemDB()
	db.addCourse("a", "A", 3, "b")
	db.addCourse("b", "B", 3, "c")
	db.addCourse("c", "C", 3, "a")
	db.addSection("sec-b", "b", 10)
	db.addSection("sec-c", "c", 10)
	db.addSection("sec-a", "a", 10)
	db.addStudent("stu-1", "1", "Cyclic")
	db.completed("stu-1", "sec-b", models.LetterCC)
	db.completed("stu-1", "sec-c", models.LetterCC)
	resolver := NewPrerequisiteResolver(memCourses{db}, nil)

	ok, err := resolver.IsSatisfied(context.Background(), "a", "stu-1")
	require.NoError(t, err)
	assert.True(t, ok, "revisiting the requested course counts as satisfied")
}

func TestPrerequisiteResolverDiamondVisitsSharedCourseOnce(t *testing.T) {
	db := newMemDB()
	db.addCourse("base", "BASE", 3)
	db.addCourse("left", "LEFT", 3, "base")
	db.addCourse("right", "RIGHT", 3, "base")
	db.addCourse("top", "TOP", 3, "left", "right")
	for _, id := range []string{"base", "left", "right"} {
		db.addSection("sec-"+id, id, 10)
	}
	db.addStudent("stu-1", "1", "Diamond")
	db.completed("stu-1", "sec-base", models.LetterAA)
	db.completed("stu-1", "sec-left", models.LetterAA)
	resolver := NewPrerequisiteResolver(memCourses{db}, nil)

	err := resolver.Check(context.Background(), "top", "stu-1")
	var unmet *models.PrerequisiteError
	require.True(t, errors.As(err, &unmet))
	assert.Equal(t, "RIGHT", unmet.PrerequisiteCode)
}

func TestPrerequisiteResolverStoreError(t *testing.T) {
	db := newMemDB()
	seedCatalogue(db)
	resolver := NewPrerequisiteResolver(failingGraph{memCourses{db}}, nil)

	ok, err := resolver.IsSatisfied(context.Background(), "cs102", "stu-1")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
