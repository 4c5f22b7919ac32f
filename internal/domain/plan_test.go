package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaForPlan(t *testing.T) {
	tests := []struct {
		name      string
		tier      PlanTier
		wantQuota PlanQuota
		wantKnown bool
	}{
		{"free", PlanTierFree, PlanQuota{MonthlyUses: 10}, true},
		{"starter", PlanTierStarter, PlanQuota{MonthlyUses: 50}, true},
		{"professional", PlanTierProfessional, PlanQuota{MonthlyUses: 200}, true},
		{"unlimited", PlanTierUnlimited, PlanQuota{Unlimited: true}, true},
		// An unrecognized stored tier must deny, never grant.
		{"unknown tier gets zero quota", PlanTier("enterprise"), PlanQuota{}, false},
		{"empty tier gets zero quota", PlanTier(""), PlanQuota{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, known := QuotaForPlan(tt.tier)
			assert.Equal(t, tt.wantQuota, q)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestValidPlanTier(t *testing.T) {
	for _, tier := range PlanTiers() {
		assert.True(t, ValidPlanTier(string(tier)), "tier %q", tier)
	}
	assert.False(t, ValidPlanTier("premium"))
	assert.False(t, ValidPlanTier(""))
}
