package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCost(t *testing.T) {
	t.Run("single residential surface, standard zone", func(t *testing.T) {
		// 100.00 m² × 1,100.00 €/m² = 110,000.00 €.
		got, err := EstimateCost(CostParams{
			Zone: CostZoneStandard,
			Surfaces: []SurfaceEntry{
				{Category: UsageResidential, AreaCm2: 100_00},
			},
		})
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, int64(110_000_00), got.TotalCents)
	})

	t.Run("zone multiplier applies per line", func(t *testing.T) {
		// 80.00 m² parking × 350.00 €/m² = 28,000.00, ×1.15 = 32,200.00.
		got, err := EstimateCost(CostParams{
			Zone: CostZoneAttica,
			Surfaces: []SurfaceEntry{
				{Category: UsageParking, AreaCm2: 80_00},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(32_200_00), got.TotalCents)
	})

	t.Run("mixed surfaces sum", func(t *testing.T) {
		got, err := EstimateCost(CostParams{
			Zone: CostZoneStandard,
			Surfaces: []SurfaceEntry{
				{Category: UsageResidential, AreaCm2: 85_50}, // 94,050.00
				{Category: UsageStorage, AreaCm2: 40_00},     // 16,000.00
			},
		})
		require.NoError(t, err)
		require.Len(t, got.Lines, 2)
		assert.Equal(t, int64(94_050_00), got.Lines[0].Cents)
		assert.Equal(t, int64(16_000_00), got.Lines[1].Cents)
		assert.Equal(t, int64(110_050_00), got.TotalCents)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		p := CostParams{
			Zone: CostZoneIslands,
			Surfaces: []SurfaceEntry{
				{Category: UsageRetail, AreaCm2: 33_33},
			},
		}
		a, err := EstimateCost(p)
		require.NoError(t, err)
		b, err := EstimateCost(p)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		tests := []struct {
			name   string
			params CostParams
		}{
			{"unknown zone", CostParams{Zone: "alps", Surfaces: []SurfaceEntry{{Category: UsageOffice, AreaCm2: 1}}}},
			{"no surfaces", CostParams{Zone: CostZoneStandard}},
			{"unknown category", CostParams{Zone: CostZoneStandard, Surfaces: []SurfaceEntry{{Category: "pool", AreaCm2: 1}}}},
			{"zero area", CostParams{Zone: CostZoneStandard, Surfaces: []SurfaceEntry{{Category: UsageOffice, AreaCm2: 0}}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := EstimateCost(tt.params)
				require.Error(t, err)
				assert.Equal(t, EINVALID, ErrorCode(err))
			})
		}
	})
}
