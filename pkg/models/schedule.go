package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleKind selects one of the supported recurrence shapes.
type ScheduleKind string

const (
	ScheduleKindInterval ScheduleKind = "interval"
	ScheduleKindDaily    ScheduleKind = "daily"
	ScheduleKindWeekly   ScheduleKind = "weekly"
	ScheduleKindMonthly  ScheduleKind = "monthly"
	ScheduleKindCron     ScheduleKind = "cron"
)

var (
	// ErrInvalidSchedule is returned when schedule validation fails.
	ErrInvalidSchedule = errors.New("invalid schedule configuration")
)

var intervalUnits = map[string]time.Duration{
	"seconds": time.Second,
	"minutes": time.Minute,
	"hours":   time.Hour,
	"days":    24 * time.Hour,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ScheduleConfig is a tagged configuration describing when a workflow should
// auto-trigger. Exactly the fields of the selected kind are consulted.
type ScheduleConfig struct {
	Kind ScheduleKind `json:"kind" validate:"required"`

	// Interval: run every Every * Unit.
	Every int    `json:"every,omitempty"`
	Unit  string `json:"unit,omitempty"` // seconds, minutes, hours, days

	// Daily, weekly, monthly: local wall-clock time "HH:MM".
	Time string `json:"time,omitempty"`

	// Weekly: weekday name ("monday" .. "sunday").
	Weekday string `json:"weekday,omitempty"`

	// Monthly: day of month 1-31, clamped to the month's final day.
	DayOfMonth int `json:"day_of_month,omitempty"`

	// Cron: standard 5-field expression (minute hour dom month dow).
	Expression string `json:"expression,omitempty"`
}

// Validate checks the config shape per variant.
func (c *ScheduleConfig) Validate() error {
	switch c.Kind {
	case ScheduleKindInterval:
		if c.Every <= 0 {
			return fmt.Errorf("%w: interval requires a positive 'every'", ErrInvalidSchedule)
		}

		if _, ok := intervalUnits[c.Unit]; !ok {
			return fmt.Errorf("%w: unknown interval unit %q", ErrInvalidSchedule, c.Unit)
		}
	case ScheduleKindDaily:
		if _, _, err := c.parseTime(); err != nil {
			return err
		}
	case ScheduleKindWeekly:
		if _, _, err := c.parseTime(); err != nil {
			return err
		}

		if _, ok := weekdays[strings.ToLower(c.Weekday)]; !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, c.Weekday)
		}
	case ScheduleKindMonthly:
		if _, _, err := c.parseTime(); err != nil {
			return err
		}

		if c.DayOfMonth < 1 || c.DayOfMonth > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidSchedule, c.DayOfMonth)
		}
	case ScheduleKindCron:
		if _, err := cronParser.Parse(c.Expression); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, c.Kind)
	}

	return nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun computes the next occurrence strictly after from. It is pure: the
// same config and reference time always yield the same result.
func (c *ScheduleConfig) NextRun(from time.Time) (time.Time, error) {
	switch c.Kind {
	case ScheduleKindInterval:
		unit, ok := intervalUnits[c.Unit]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: unknown interval unit %q", ErrInvalidSchedule, c.Unit)
		}

		return from.Add(time.Duration(c.Every) * unit), nil
	case ScheduleKindDaily:
		hour, minute, err := c.parseTime()
		if err != nil {
			return time.Time{}, err
		}

		next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}

		return next, nil
	case ScheduleKindWeekly:
		hour, minute, err := c.parseTime()
		if err != nil {
			return time.Time{}, err
		}

		target := weekdays[strings.ToLower(c.Weekday)]

		next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
		for next.Weekday() != target || !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}

		return next, nil
	case ScheduleKindMonthly:
		hour, minute, err := c.parseTime()
		if err != nil {
			return time.Time{}, err
		}

		next := monthlyOccurrence(from.Year(), from.Month(), c.DayOfMonth, hour, minute, from.Location())
		if !next.After(from) {
			year, month := from.Year(), from.Month()+1
			next = monthlyOccurrence(year, month, c.DayOfMonth, hour, minute, from.Location())
		}

		return next, nil
	case ScheduleKindCron:
		schedule, err := cronParser.Parse(c.Expression)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}

		return schedule.Next(from), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, c.Kind)
	}
}

func (c *ScheduleConfig) parseTime() (int, int, error) {
	// time.Parse matches the whole string, so trailing seconds or garbage
	// after the minutes are rejected.
	parsed, err := time.Parse("15:04", c.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time must be HH:MM, got %q", ErrInvalidSchedule, c.Time)
	}

	return parsed.Hour(), parsed.Minute(), nil
}

// monthlyOccurrence builds the occurrence for a year/month, clamping the
// configured day to the month's final day (e.g. 31 -> Feb 28).
func monthlyOccurrence(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	lastDay := firstOfNext.AddDate(0, 0, -1).Day()

	if day > lastDay {
		day = lastDay
	}

	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

// ScheduledJob is an in-memory scheduler entry backed by the store.
type ScheduledJob struct {
	WorkflowID string         `json:"workflow_id"`
	Owner      string         `json:"owner"`
	Config     ScheduleConfig `json:"config"`
	Enabled    bool           `json:"enabled"`
	LastRun    *time.Time     `json:"last_run,omitempty"`
	NextRun    time.Time      `json:"next_run"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Due reports whether the job should fire at the given instant.
func (j *ScheduledJob) Due(now time.Time) bool {
	return j.Enabled && !j.NextRun.After(now)
}
