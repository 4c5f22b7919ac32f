// Package domain contains core business types and interfaces.
//
// This file defines the plan registry: the closed set of subscription tiers
// and the monthly tool-use quota attached to each. Quotas are configuration,
// not database state; the stored plan string is validated against this set
// on every lookup.
package domain

// PlanTier represents the pricing tier of a subscription.
type PlanTier string

const (
	PlanTierFree         PlanTier = "free"
	PlanTierStarter      PlanTier = "starter"
	PlanTierProfessional PlanTier = "professional"
	PlanTierUnlimited    PlanTier = "unlimited"
)

// PlanQuota is the monthly allowance of quota-consuming tool invocations
// for one tier. When Unlimited is set MonthlyUses is ignored.
type PlanQuota struct {
	MonthlyUses int
	Unlimited   bool
}

// planQuotas maps each known tier to its quota.
var planQuotas = map[PlanTier]PlanQuota{
	PlanTierFree:         {MonthlyUses: 10},
	PlanTierStarter:      {MonthlyUses: 50},
	PlanTierProfessional: {MonthlyUses: 200},
	PlanTierUnlimited:    {Unlimited: true},
}

// QuotaForPlan returns the quota for a tier. The second return reports
// whether the tier is known; an unknown tier gets a zero quota so a bad
// plan string denies rather than grants. Callers should log the mismatch.
func QuotaForPlan(tier PlanTier) (PlanQuota, bool) {
	q, ok := planQuotas[tier]
	if !ok {
		return PlanQuota{}, false
	}
	return q, true
}

// ValidPlanTier reports whether s names a known tier.
func ValidPlanTier(s string) bool {
	_, ok := planQuotas[PlanTier(s)]
	return ok
}

// PlanTiers returns the known tiers in ascending order of quota.
func PlanTiers() []PlanTier {
	return []PlanTier{PlanTierFree, PlanTierStarter, PlanTierProfessional, PlanTierUnlimited}
}
