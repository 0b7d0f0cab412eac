package recurrence

import (
	"testing"
	"time"

	"domus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNext_MonthEndClamping(t *testing.T) {
	tests := []struct {
		name string
		base time.Time
		freq models.Frequency
		want time.Time
	}{
		{
			name: "jan 31 lands on feb 28",
			base: date(2026, time.January, 31),
			freq: models.Frequency{Type: models.FreqMonthly, Interval: 1},
			want: date(2026, time.February, 28),
		},
		{
			name: "mar 31 lands on apr 30",
			base: date(2026, time.March, 31),
			freq: models.Frequency{Type: models.FreqMonthly, Interval: 1},
			want: date(2026, time.April, 30),
		},
		{
			name: "day-of-month override is clamped too",
			base: date(2026, time.January, 5),
			freq: models.Frequency{Type: models.FreqMonthly, Interval: 1, DaysOfMonth: models.IntList{31}},
			want: date(2026, time.February, 28),
		},
		{
			name: "quarterly steps three months",
			base: date(2026, time.January, 15),
			freq: models.Frequency{Type: models.FreqQuarterly, Interval: 1},
			want: date(2026, time.April, 15),
		},
		{
			name: "yearly from leap day lands on feb 28",
			base: date(2024, time.February, 29),
			freq: models.Frequency{Type: models.FreqYearly, Interval: 1},
			want: date(2025, time.February, 28),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(tt.base, tt.freq)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_WeeklySnapsToWeekdaySet(t *testing.T) {
	// Monday Jan 5 2026. One week later is Monday Jan 12; the set only
	// contains Wednesday, so the due date snaps forward to Jan 14.
	base := date(2026, time.January, 5)
	got, ok := Next(base, models.Frequency{
		Type:       models.FreqWeekly,
		Interval:   1,
		DaysOfWeek: models.IntList{int(time.Wednesday)},
	})
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 14), got)
	assert.Equal(t, time.Wednesday, got.Weekday())
}

func TestNext_WeeklyWithoutSetKeepsWeekday(t *testing.T) {
	base := date(2026, time.January, 5)
	got, ok := Next(base, models.Frequency{Type: models.FreqWeekly, Interval: 2})
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 19), got)
}

func TestNext_DailyAndCustomDays(t *testing.T) {
	base := date(2026, time.June, 1)

	got, ok := Next(base, models.Frequency{Type: models.FreqDaily, Interval: 3})
	require.True(t, ok)
	assert.Equal(t, date(2026, time.June, 4), got)

	got, ok = Next(base, models.Frequency{Type: models.FreqCustomDays, Interval: 1, CustomDays: models.IntList{45}})
	require.True(t, ok)
	assert.Equal(t, date(2026, time.July, 16), got)

	_, ok = Next(base, models.Frequency{Type: models.FreqCustomDays, Interval: 1})
	assert.False(t, ok, "custom_days without a cadence cannot advance")
}

func TestNext_TerminatesAtEndDate(t *testing.T) {
	base := date(2026, time.January, 1)
	end := date(2026, time.January, 10)

	got, ok := Next(base, models.Frequency{Type: models.FreqDaily, Interval: 7, EndDate: &end})
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 8), got)

	_, ok = Next(got, models.Frequency{Type: models.FreqDaily, Interval: 7, EndDate: &end})
	assert.False(t, ok, "candidate past the end date must terminate the recurrence")
}

func TestNext_ZeroIntervalDefaultsToOne(t *testing.T) {
	base := date(2026, time.January, 1)
	got, ok := Next(base, models.Frequency{Type: models.FreqDaily})
	require.True(t, ok)
	assert.Equal(t, date(2026, time.January, 2), got)
}

func TestNext_UnknownTypeTerminates(t *testing.T) {
	_, ok := Next(date(2026, time.January, 1), models.Frequency{Type: "fortnightly"})
	assert.False(t, ok)
}
