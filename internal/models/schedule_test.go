package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("09:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(570), c)

	c, err = ParseClockTime("13:05:00")
	require.NoError(t, err)
	assert.Equal(t, "13:05", c.String())

	for _, bad := range []string{"", "9", "25:00", "10:60", "24:30", "aa:bb"} {
		_, err := ParseClockTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockTimeScan(t *testing.T) {
	var c ClockTime
	require.NoError(t, c.Scan([]byte("11:00:00")))
	assert.Equal(t, MustClockTime("11:00"), c)

	require.NoError(t, c.Scan(time.Date(0, 1, 1, 8, 15, 0, 0, time.UTC)))
	assert.Equal(t, "08:15", c.String())

	assert.Error(t, c.Scan(3.5))

	v, err := MustClockTime("07:45").Value()
	require.NoError(t, err)
	assert.Equal(t, "07:45:00", v)
}

func TestTimeSlotJSON(t *testing.T) {
	slot := TimeSlot{Day: Monday, StartTime: MustClockTime("09:00"), EndTime: MustClockTime("11:00")}
	raw, err := json.Marshal(slot)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"MONDAY","start_time":"09:00","end_time":"11:00"}`, string(raw))

	var decoded TimeSlot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, slot, decoded)
}

func TestTimeSlotOverlaps(t *testing.T) {
	base := TimeSlot{Day: Monday, StartTime: MustClockTime("09:00"), EndTime: MustClockTime("11:00")}
	cases := []struct {
		name  string
		other TimeSlot
		want  bool
	}{
		{"partial overlap", TimeSlot{Day: Monday, StartTime: MustClockTime("10:00"), EndTime: MustClockTime("12:00")}, true},
		{"adjacent", TimeSlot{Day: Monday, StartTime: MustClockTime("11:00"), EndTime: MustClockTime("13:00")}, false},
		{"other day", TimeSlot{Day: Tuesday, StartTime: MustClockTime("09:00"), EndTime: MustClockTime("11:00")}, false},
		{"contained", TimeSlot{Day: "monday", StartTime: MustClockTime("09:30"), EndTime: MustClockTime("10:00")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base))
		})
	}
}

func TestLetterGradePoints(t *testing.T) {
	assert.Equal(t, 4.0, LetterAA.Points())
	assert.Equal(t, 2.5, LetterCB.Points())
	assert.Equal(t, 0.0, LetterFD.Points())
	assert.True(t, LetterFD.Passing())
	assert.False(t, LetterFF.Passing())
	assert.False(t, LetterGrade("ZZ").Passing())
}

func TestScheduleConflictErrorMessage(t *testing.T) {
	existing := TimeSlot{Day: Monday, StartTime: MustClockTime("09:00"), EndTime: MustClockTime("11:00")}
	candidate := TimeSlot{Day: Monday, StartTime: MustClockTime("10:00"), EndTime: MustClockTime("12:00")}

	one := &ScheduleConflictError{Conflicts: []SlotConflict{{Existing: existing, Candidate: candidate}}}
	assert.Equal(t, "MONDAY 10:00-12:00 overlaps MONDAY 09:00-11:00", one.Error())

	two := &ScheduleConflictError{Conflicts: []SlotConflict{{Existing: existing, Candidate: candidate}, {Existing: existing, Candidate: candidate}}}
	assert.Equal(t, "MONDAY 10:00-12:00 overlaps MONDAY 09:00-11:00 (and 1 more)", two.Error())
}
