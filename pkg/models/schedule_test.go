package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ScheduleConfig
		wantErr bool
	}{
		{"interval ok", ScheduleConfig{Kind: ScheduleKindInterval, Every: 5, Unit: "minutes"}, false},
		{"interval zero every", ScheduleConfig{Kind: ScheduleKindInterval, Every: 0, Unit: "minutes"}, true},
		{"interval bad unit", ScheduleConfig{Kind: ScheduleKindInterval, Every: 5, Unit: "fortnights"}, true},
		{"daily ok", ScheduleConfig{Kind: ScheduleKindDaily, Time: "09:00"}, false},
		{"daily single digit hour", ScheduleConfig{Kind: ScheduleKindDaily, Time: "9:05"}, false},
		{"daily bad time", ScheduleConfig{Kind: ScheduleKindDaily, Time: "25:00"}, true},
		{"daily bad minute", ScheduleConfig{Kind: ScheduleKindDaily, Time: "09:99"}, true},
		{"daily trailing seconds", ScheduleConfig{Kind: ScheduleKindDaily, Time: "09:00:30"}, true},
		{"daily trailing garbage", ScheduleConfig{Kind: ScheduleKindDaily, Time: "9:5xyz"}, true},
		{"daily empty time", ScheduleConfig{Kind: ScheduleKindDaily, Time: ""}, true},
		{"weekly ok", ScheduleConfig{Kind: ScheduleKindWeekly, Time: "09:00", Weekday: "Monday"}, false},
		{"weekly bad day", ScheduleConfig{Kind: ScheduleKindWeekly, Time: "09:00", Weekday: "someday"}, true},
		{"monthly ok", ScheduleConfig{Kind: ScheduleKindMonthly, Time: "09:00", DayOfMonth: 31}, false},
		{"monthly day out of range", ScheduleConfig{Kind: ScheduleKindMonthly, Time: "09:00", DayOfMonth: 32}, true},
		{"cron ok", ScheduleConfig{Kind: ScheduleKindCron, Expression: "0 * * * *"}, false},
		{"cron bad expression", ScheduleConfig{Kind: ScheduleKindCron, Expression: "not cron"}, true},
		{"unknown kind", ScheduleConfig{Kind: "yearly"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSchedule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduleConfig_NextRun_Interval(t *testing.T) {
	config := ScheduleConfig{Kind: ScheduleKindInterval, Every: 15, Unit: "minutes"}
	from := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := config.NextRun(from)
	require.NoError(t, err)
	assert.Equal(t, from.Add(15*time.Minute), next)
}

func TestScheduleConfig_NextRun_Daily(t *testing.T) {
	config := ScheduleConfig{Kind: ScheduleKindDaily, Time: "09:00"}

	// Time already passed today: tomorrow 09:00.
	from := time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC)
	next, err := config.NextRun(from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), next)

	// Time not yet reached: today 09:00.
	from = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	next, err = config.NextRun(from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), next)
}

func TestScheduleConfig_NextRun_Weekly(t *testing.T) {
	config := ScheduleConfig{Kind: ScheduleKindWeekly, Time: "10:30", Weekday: "friday"}

	// 2025-03-10 is a Monday.
	from := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	next, err := config.NextRun(from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC), next)
	assert.Equal(t, time.Friday, next.Weekday())

	// Same weekday, time already passed: a full week ahead.
	from = time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC)
	next, err = config.NextRun(from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 21, 10, 30, 0, 0, time.UTC), next)
}

func TestScheduleConfig_NextRun_MonthlyClampsToFinalDay(t *testing.T) {
	config := ScheduleConfig{Kind: ScheduleKindMonthly, Time: "00:00", DayOfMonth: 31}

	from := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	next, err := config.NextRun(from)
	require.NoError(t, err)

	// February has no day 31; clamp to the 28th.
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), next)
}

func TestScheduleConfig_NextRun_Cron(t *testing.T) {
	config := ScheduleConfig{Kind: ScheduleKindCron, Expression: "0 * * * *"}
	from := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)

	next, err := config.NextRun(from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC), next)
}

func TestScheduleConfig_NextRun_AlwaysInFuture(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 45, 0, 0, time.UTC)

	configs := []ScheduleConfig{
		{Kind: ScheduleKindInterval, Every: 1, Unit: "seconds"},
		{Kind: ScheduleKindDaily, Time: "09:00"},
		{Kind: ScheduleKindWeekly, Time: "09:00", Weekday: "sunday"},
		{Kind: ScheduleKindMonthly, Time: "09:00", DayOfMonth: 1},
		{Kind: ScheduleKindCron, Expression: "*/5 * * * *"},
	}

	for _, config := range configs {
		next, err := config.NextRun(now)
		require.NoError(t, err, "kind %s", config.Kind)
		assert.True(t, next.After(now), "kind %s: %s not after %s", config.Kind, next, now)
	}
}

func TestScheduledJob_Due(t *testing.T) {
	now := time.Now().UTC()

	job := &ScheduledJob{Enabled: true, NextRun: now.Add(-time.Minute)}
	assert.True(t, job.Due(now))

	job.Enabled = false
	assert.False(t, job.Due(now))

	job.Enabled = true
	job.NextRun = now.Add(time.Minute)
	assert.False(t, job.Due(now))
}
