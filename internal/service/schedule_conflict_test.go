package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-engine/internal/models"
)

func TestScheduleConflictDetector(t *testing.T) {
	detector := NewScheduleConflictDetector()
	existing := []models.TimeSlot{slot(models.Monday, "09:00", "11:00")}

	cases := []struct {
		name      string
		candidate models.TimeSlot
		conflict  bool
	}{
		{"overlapping", slot(models.Monday, "10:00", "12:00"), true},
		{"adjacent", slot(models.Monday, "11:00", "13:00"), false},
		{"other day", slot(models.Tuesday, "09:00", "11:00"), false},
		{"contained", slot(models.Monday, "09:30", "10:00"), true},
		{"identical", slot(models.Monday, "09:00", "11:00"), true},
		{"ends at start", slot(models.Monday, "08:00", "09:00"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			candidate := []models.TimeSlot{tc.candidate}
			assert.Equal(t, tc.conflict, detector.HasConflict(existing, candidate))
			assert.Equal(t, tc.conflict, detector.HasConflict(candidate, existing), "conflicts are symmetric")
		})
	}
}

func TestScheduleConflictDetectorListsEveryPair(t *testing.T) {
	detector := NewScheduleConflictDetector()
	existing := []models.TimeSlot{
		slot(models.Monday, "09:00", "11:00"),
		slot(models.Wednesday, "09:00", "11:00"),
	}
	candidate := []models.TimeSlot{
		slot(models.Monday, "10:00", "12:00"),
		slot(models.Wednesday, "10:30", "11:30"),
		slot(models.Friday, "10:00", "12:00"),
	}

	conflicts := detector.Conflicts(existing, candidate)
	require.Len(t, conflicts, 2)
	assert.Equal(t, models.Monday, conflicts[0].Existing.Day)
	assert.Equal(t, models.Wednesday, conflicts[1].Candidate.Day)
	assert.Empty(t, detector.Conflicts(nil, candidate))
	assert.False(t, detector.HasConflict(existing, nil))
}
