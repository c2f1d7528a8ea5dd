// Package billing holds the pure billing-period math. Nothing here touches
// the database or the clock; callers pass `now` explicitly.
package billing

import (
	"fmt"
	"time"
)

// Interval is the cadence governing how a subscription period is computed.
type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
	IntervalTrial   Interval = "trial"
)

const (
	// DefaultTrialDays applies when no trial length is configured.
	DefaultTrialDays = 7
	// MaxTrialDays caps configured trial lengths.
	MaxTrialDays = 31
	MinTrialDays = 1
)

// ParseInterval validates a client-supplied interval string.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalMonthly, IntervalYearly, IntervalTrial:
		return Interval(s), nil
	default:
		return "", fmt.Errorf("unknown billing interval %q", s)
	}
}

// ComputePeriodEnd returns the end of the billing period starting at now.
//
// Calendar arithmetic clamps to the last day of the target month instead of
// rolling over: Jan 31 + 1 month is Feb 29 in a leap year, not Mar 2.
// trialDays only matters for IntervalTrial; values <= 0 fall back to
// DefaultTrialDays and anything outside [1, 31] is clamped.
func ComputePeriodEnd(interval Interval, now time.Time, trialDays int) time.Time {
	switch interval {
	case IntervalYearly:
		return addCalendarMonths(now, 12)
	case IntervalTrial:
		return now.AddDate(0, 0, clampTrialDays(trialDays))
	default:
		return addCalendarMonths(now, 1)
	}
}

func clampTrialDays(days int) int {
	if days <= 0 {
		return DefaultTrialDays
	}
	if days < MinTrialDays {
		return MinTrialDays
	}
	if days > MaxTrialDays {
		return MaxTrialDays
	}
	return days
}

// addCalendarMonths adds months with the day-of-month clamped to the target
// month's length. time.AddDate would normalize Jan 31 + 1 month to Mar 2.
func addCalendarMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	lastDay := daysIn(first.Year(), first.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
