package service

import "github.com/noah-isme/academic-engine/internal/models"

// ScheduleConflictDetector compares weekly time slots. It holds no state.
type ScheduleConflictDetector struct{}

// NewScheduleConflictDetector constructs the detector.
func NewScheduleConflictDetector() *ScheduleConflictDetector {
	return &ScheduleConflictDetector{}
}

// HasConflict reports whether any candidate slot overlaps any existing slot.
func (d *ScheduleConflictDetector) HasConflict(existing, candidate []models.TimeSlot) bool {
	for _, c := range candidate {
		for _, e := range existing {
			if e.Overlaps(c) {
				return true
			}
		}
	}
	return false
}

// Conflicts lists every overlapping pair, in candidate order.
func (d *ScheduleConflictDetector) Conflicts(existing, candidate []models.TimeSlot) []models.SlotConflict {
	var conflicts []models.SlotConflict
	for _, c := range candidate {
		for _, e := range existing {
			if e.Overlaps(c) {
				conflicts = append(conflicts, models.SlotConflict{Existing: e, Candidate: c})
			}
		}
	}
	return conflicts
}
