package clinic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduleAcceptsShapeOnly(t *testing.T) {
	tests := []struct {
		name string
		date string
		time string
		ok   bool
	}{
		{"valid", "2099-01-01", "09:00", true},
		{"valid afternoon", "2099-12-31", "19:30", true},
		// shape checks only: calendar nonsense passes and is left to the store
		{"month 13 passes shape", "2023-13-45", "09:00", true},
		{"hour 99 passes shape", "2099-01-01", "99:99", true},
		{"date too short", "2099-1-1", "09:00", false},
		{"date wrong separator", "2099/01/01", "09:00", false},
		{"date separator shifted", "20990-1-01", "09:00", false},
		{"date with letters", "2O99-01-01", "09:00", false},
		{"time too short", "2099-01-01", "9:00", false},
		{"time too long", "2099-01-01", "09:000", false},
		{"time wrong separator", "2099-01-01", "09-00", false},
		{"time with letters", "2099-01-01", "O9:00", false},
		{"empty date", "", "09:00", false},
		{"empty time", "2099-01-01", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := ParseSchedule(tt.date, tt.time)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.date, sched.Date)
			assert.Equal(t, tt.time, sched.Time)
		})
	}
}
