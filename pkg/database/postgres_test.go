package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "enrollments_one_seat_per_section"}
	assert.True(t, IsUniqueViolation(dup, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create enrollment: %w", dup), "enrollments_one_seat_per_section"))
	assert.False(t, IsUniqueViolation(dup, "students_pkey"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23514"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
}
