package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scantablehq/billing-service/internal/domain/billing"
)

func TestParseInterval(t *testing.T) {
	for _, valid := range []string{"monthly", "yearly", "trial"} {
		interval, err := billing.ParseInterval(valid)
		assert.NoError(t, err)
		assert.Equal(t, billing.Interval(valid), interval)
	}

	_, err := billing.ParseInterval("weekly")
	assert.Error(t, err)

	_, err = billing.ParseInterval("")
	assert.Error(t, err)
}

func TestComputePeriodEnd_Monthly(t *testing.T) {
	t.Run("plain month", func(t *testing.T) {
		now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
		end := billing.ComputePeriodEnd(billing.IntervalMonthly, now, 0)
		assert.Equal(t, time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC), end)
	})

	t.Run("clamps Jan 31 to Feb 29 in a leap year", func(t *testing.T) {
		now := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		end := billing.ComputePeriodEnd(billing.IntervalMonthly, now, 0)
		assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("clamps Jan 31 to Feb 28 in a non-leap year", func(t *testing.T) {
		now := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
		end := billing.ComputePeriodEnd(billing.IntervalMonthly, now, 0)
		assert.Equal(t, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("December rolls into next year", func(t *testing.T) {
		now := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		end := billing.ComputePeriodEnd(billing.IntervalMonthly, now, 0)
		assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), end)
	})
}

func TestComputePeriodEnd_Yearly(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := billing.ComputePeriodEnd(billing.IntervalYearly, now, 0)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), end)

	// Feb 29 has no counterpart next year.
	leap := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	end = billing.ComputePeriodEnd(billing.IntervalYearly, leap, 0)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), end)
}

func TestComputePeriodEnd_Trial(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("defaults to 7 days when unset", func(t *testing.T) {
		end := billing.ComputePeriodEnd(billing.IntervalTrial, now, 0)
		assert.Equal(t, now.AddDate(0, 0, 7), end)
	})

	t.Run("negative values fall back to the default", func(t *testing.T) {
		end := billing.ComputePeriodEnd(billing.IntervalTrial, now, -3)
		assert.Equal(t, now.AddDate(0, 0, 7), end)
	})

	t.Run("clamps 45 days to 31", func(t *testing.T) {
		end := billing.ComputePeriodEnd(billing.IntervalTrial, now, 45)
		assert.Equal(t, now.AddDate(0, 0, 31), end)
	})

	t.Run("configured value inside the range is used as-is", func(t *testing.T) {
		end := billing.ComputePeriodEnd(billing.IntervalTrial, now, 14)
		assert.Equal(t, now.AddDate(0, 0, 14), end)
	})
}
