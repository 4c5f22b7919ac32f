// Package domain contains core business types and interfaces.
//
// This file holds the pure pieces of the monthly usage meter: the staleness
// predicate that implements calendar-month periods, and the threshold
// arithmetic behind the 80%/100% warning notifications. Persistence and
// atomicity live in the service layer; everything here is side-effect free
// so tests can drive the clock directly.
package domain

import "time"

// UsageIsStale reports whether a usage counter anchored at lastReset
// belongs to an earlier calendar month than now. A stale counter reads as
// zero; the next persisted increment resets it. Both timestamps are
// compared in UTC so the period boundary does not drift with server
// timezone.
func UsageIsStale(lastReset, now time.Time) bool {
	lr := lastReset.UTC()
	n := now.UTC()
	return lr.Year() != n.Year() || lr.Month() != n.Month()
}

// UsageThreshold identifies a quota threshold crossing.
type UsageThreshold string

const (
	UsageThresholdWarning UsageThreshold = "80_percent"
	UsageThresholdFull    UsageThreshold = "100_percent"
)

// WarningThreshold returns the count at which the 80% warning fires for a
// finite quota: floor(quota * 0.8), computed in integer arithmetic.
// quota=10 -> 8, quota=50 -> 40, quota=200 -> 160.
func WarningThreshold(quota int) int {
	return quota * 4 / 5
}

// CrossedThreshold reports whether an increment from prev to newCount
// crossed the given threshold. The half-open check (prev < t <= new) fires
// once per period for single increments and still catches the crossing if
// counts ever advance by more than one.
func CrossedThreshold(prev, newCount, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return prev < threshold && threshold <= newCount
}

// ThresholdsCrossed returns the thresholds crossed by an increment from
// prev to newCount under a finite quota, in firing order.
func ThresholdsCrossed(prev, newCount, quota int) []UsageThreshold {
	var crossed []UsageThreshold
	if warn := WarningThreshold(quota); warn < quota && CrossedThreshold(prev, newCount, warn) {
		crossed = append(crossed, UsageThresholdWarning)
	}
	if CrossedThreshold(prev, newCount, quota) {
		crossed = append(crossed, UsageThresholdFull)
	}
	return crossed
}

// Decision is the outcome of an entitlement check. Denial is a normal
// domain result, not an error; infrastructure failures travel separately.
type Decision struct {
	Allowed  bool
	NewCount int    // Post-increment count when allowed
	Reason   string // Set when denied
}

// DeniedQuotaExhausted is the reason attached to every quota denial.
const DeniedQuotaExhausted = "monthly quota exhausted"

// UsageSummary is the quota/progress view rendered to clients. It applies
// the same staleness rule as the meter, so a cross-month count is never
// displayed.
type UsageSummary struct {
	Plan          PlanTier
	UsedThisMonth int
	MonthlyQuota  int
	Unlimited     bool
	PeriodStart   time.Time
	ResetsAt      time.Time
}

// Remaining returns the number of allowed uses left this period, or -1 for
// unlimited plans.
func (s UsageSummary) Remaining() int {
	if s.Unlimited {
		return -1
	}
	if s.UsedThisMonth >= s.MonthlyQuota {
		return 0
	}
	return s.MonthlyQuota - s.UsedThisMonth
}

// PeriodBounds returns the UTC start of the calendar month containing now
// and the start of the following month.
func PeriodBounds(now time.Time) (start, end time.Time) {
	n := now.UTC()
	start = time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}
