package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateFees(t *testing.T) {
	t.Run("full permit itemizes all charges", func(t *testing.T) {
		// Budget 120,000.00 EUR: TEE levy 2.5‰ = 300.00, municipal 1% = 1,200.00.
		got, err := CalculateFees(FeeParams{
			PermitType:  PermitTypeFull,
			BudgetCents: 120_000_00,
		})
		require.NoError(t, err)
		require.Len(t, got.Lines, 3)
		assert.Equal(t, int64(250_00), got.Lines[0].Cents)
		assert.Equal(t, int64(300_00), got.Lines[1].Cents)
		assert.Equal(t, int64(1_200_00), got.Lines[2].Cents)
		assert.Equal(t, int64(1_750_00), got.TotalCents)
	})

	t.Run("TEE levy floor applies to small budgets", func(t *testing.T) {
		// 2.5‰ of 10,000.00 is 25.00, below the 100.00 floor.
		got, err := CalculateFees(FeeParams{
			PermitType:  PermitTypeFull,
			BudgetCents: 10_000_00,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(100_00), got.Lines[1].Cents)
	})

	t.Run("small scale works pay only the filing fee", func(t *testing.T) {
		got, err := CalculateFees(FeeParams{
			PermitType:  PermitTypeSmallScale,
			BudgetCents: 500_000_00,
		})
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, int64(80_00), got.TotalCents)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		p := FeeParams{PermitType: PermitTypeDemolition, BudgetCents: 77_777_77}
		a, err := CalculateFees(p)
		require.NoError(t, err)
		b, err := CalculateFees(p)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("rejects unknown permit type", func(t *testing.T) {
		_, err := CalculateFees(FeeParams{PermitType: "garage", BudgetCents: 100})
		require.Error(t, err)
		assert.Equal(t, EINVALID, ErrorCode(err))
	})

	t.Run("rejects negative budget", func(t *testing.T) {
		_, err := CalculateFees(FeeParams{PermitType: PermitTypeFull, BudgetCents: -1})
		require.Error(t, err)
		assert.Equal(t, EINVALID, ErrorCode(err))
	})
}

func TestFormatEuroCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0,00 €"},
		{250_00, "250,00 €"},
		{1_234_56, "1.234,56 €"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEuroCents(tt.cents))
	}
}
