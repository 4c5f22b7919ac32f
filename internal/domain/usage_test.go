package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageIsStale(t *testing.T) {
	now := time.Date(2026, time.August, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lastReset time.Time
		want      bool
	}{
		{"same month", time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), false},
		{"same instant", now, false},
		{"previous month", time.Date(2026, time.July, 31, 23, 59, 59, 0, time.UTC), true},
		{"previous year same month", time.Date(2025, time.August, 15, 10, 30, 0, 0, time.UTC), true},
		{"many months ago", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), true},
		// A counter anchored in Athens local time late on July 31 is
		// already August in UTC.
		{"timezone normalized to UTC", time.Date(2026, time.August, 1, 1, 30, 0, 0, time.FixedZone("EEST", 3*3600)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UsageIsStale(tt.lastReset, now))
		})
	}
}

func TestUser_EffectiveUsage(t *testing.T) {
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

	t.Run("current period count passes through", func(t *testing.T) {
		u := &User{UsesThisMonth: 7, LastResetAt: now.AddDate(0, 0, -3)}
		assert.Equal(t, 7, u.EffectiveUsage(now))
	})

	t.Run("stale count reads as zero", func(t *testing.T) {
		u := &User{UsesThisMonth: 7, LastResetAt: now.AddDate(0, -1, 0)}
		assert.Equal(t, 0, u.EffectiveUsage(now))
	})

	t.Run("repeated reads in same period agree", func(t *testing.T) {
		u := &User{UsesThisMonth: 4, LastResetAt: now}
		first := u.EffectiveUsage(now)
		second := u.EffectiveUsage(now.Add(time.Hour))
		assert.Equal(t, first, second)
	})
}

func TestWarningThreshold(t *testing.T) {
	tests := []struct {
		quota int
		want  int
	}{
		{10, 8},
		{50, 40},
		{200, 160},
		{1, 0},
		{5, 4},
		{7, 5}, // floor(5.6)
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, WarningThreshold(tt.quota), "quota=%d", tt.quota)
	}
}

func TestCrossedThreshold(t *testing.T) {
	tests := []struct {
		name      string
		prev, new int
		threshold int
		want      bool
	}{
		{"single step onto threshold", 7, 8, 8, true},
		{"single step past threshold", 8, 9, 8, false},
		{"below threshold", 5, 6, 8, false},
		{"batch jump over threshold", 6, 11, 8, true},
		{"already past", 9, 12, 8, false},
		{"zero threshold never fires", 0, 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CrossedThreshold(tt.prev, tt.new, tt.threshold))
		})
	}
}

func TestThresholdsCrossed(t *testing.T) {
	tests := []struct {
		name      string
		prev, new int
		quota     int
		want      []UsageThreshold
	}{
		{"no crossing", 3, 4, 10, nil},
		{"warning at 8 of 10", 7, 8, 10, []UsageThreshold{UsageThresholdWarning}},
		{"full at 10 of 10", 9, 10, 10, []UsageThreshold{UsageThresholdFull}},
		{"batch crosses both", 6, 10, 10, []UsageThreshold{UsageThresholdWarning, UsageThresholdFull}},
		{"warning at 40 of 50", 39, 40, 50, []UsageThreshold{UsageThresholdWarning}},
		{"warning at 160 of 200", 159, 160, 200, []UsageThreshold{UsageThresholdWarning}},
		// quota=1: warning threshold floors to 0 and is suppressed, only
		// the full notification fires.
		{"tiny quota only fires full", 0, 1, 1, []UsageThreshold{UsageThresholdFull}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ThresholdsCrossed(tt.prev, tt.new, tt.quota))
		})
	}
}

func TestUsageSummary_Remaining(t *testing.T) {
	tests := []struct {
		name    string
		summary UsageSummary
		want    int
	}{
		{"unused", UsageSummary{MonthlyQuota: 10}, 10},
		{"partially used", UsageSummary{UsedThisMonth: 4, MonthlyQuota: 10}, 6},
		{"exhausted", UsageSummary{UsedThisMonth: 10, MonthlyQuota: 10}, 0},
		{"over quota after downgrade", UsageSummary{UsedThisMonth: 40, MonthlyQuota: 10}, 0},
		{"unlimited", UsageSummary{UsedThisMonth: 999, Unlimited: true}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.summary.Remaining())
		})
	}
}

func TestPeriodBounds(t *testing.T) {
	start, end := PeriodBounds(time.Date(2026, time.August, 15, 17, 45, 12, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), end)

	// December rolls into January of the next year.
	start, end = PeriodBounds(time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}
