package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-engine/internal/models"
)

func TestCourseRepositoryListPrerequisites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN courses c ON c.id = cp.prerequisite_id")).
		WithArgs("crs-3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "credits"}).
			AddRow("crs-2", "CS102", "Data Structures", 4.0))

	prereqs, err := repo.ListPrerequisites(context.Background(), "crs-3")
	require.NoError(t, err)
	require.Len(t, prereqs, 1)
	assert.Equal(t, "CS102", prereqs[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryHasPassed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (")).
		WithArgs("stu-1", "crs-1", models.EnrollmentStatusCompleted, models.LetterFF).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	passed, err := repo.HasPassed(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	assert.True(t, passed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, credits FROM courses WHERE id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
