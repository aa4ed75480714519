package accounting_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	"github.com/sulimanbank/bankcore/internal/utils/accounting"
)

var weekly = 7 * 24 * time.Hour

func zeroRatePolicy() domain.InterestPolicy {
	return domain.InterestPolicy{Kind: domain.PolicyFlat, Rate: decimal.Zero}
}

func TestBuildScheduleFlatNoInterest(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	principal := domain.NewMoney(120000, "NIS")

	installments, total, err := accounting.BuildSchedule("loan-1", principal, zeroRatePolicy(), 12, start, weekly)
	require.NoError(t, err)
	require.Len(t, installments, 12)
	assert.Equal(t, int64(120000), total.Amount)

	var sum int64
	for i, inst := range installments {
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, int64(10000), inst.DueAmount.Amount)
		assert.Equal(t, domain.InstallmentPending, inst.Status)
		assert.Equal(t, start.Add(time.Duration(i+1)*weekly), inst.DueDate)
		sum += inst.DueAmount.Amount
	}
	assert.Equal(t, total.Amount, sum)
}

func TestBuildScheduleRemainderAbsorbedIntoFinal(t *testing.T) {
	principal := domain.NewMoney(100000, "USD")

	installments, total, err := accounting.BuildSchedule("loan-2", principal, zeroRatePolicy(), 3, time.Now().UTC(), weekly)
	require.NoError(t, err)
	require.Len(t, installments, 3)

	assert.Equal(t, int64(33333), installments[0].DueAmount.Amount)
	assert.Equal(t, int64(33333), installments[1].DueAmount.Amount)
	assert.Equal(t, int64(33334), installments[2].DueAmount.Amount)

	var sum int64
	for _, inst := range installments {
		sum += inst.DueAmount.Amount
	}
	assert.Equal(t, total.Amount, sum, "schedule must sum to the total exactly")
}

func TestBuildScheduleFlatInterest(t *testing.T) {
	principal := domain.NewMoney(500000, "USD")
	policy := domain.InterestPolicy{Kind: domain.PolicyFlat, Rate: decimal.RequireFromString("0.10")}

	installments, total, err := accounting.BuildSchedule("loan-3", principal, policy, 50, time.Now().UTC(), weekly)
	require.NoError(t, err)
	require.Len(t, installments, 50)
	assert.Equal(t, int64(550000), total.Amount) // 500000 + 10%

	var sum int64
	for _, inst := range installments {
		sum += inst.DueAmount.Amount
	}
	assert.Equal(t, int64(550000), sum)
}

func TestTotalInterestSimple(t *testing.T) {
	principal := domain.NewMoney(100000, "USD")
	policy := domain.InterestPolicy{Kind: domain.PolicySimple, Rate: decimal.RequireFromString("0.01")}

	// 1% per period over 12 periods = 12%.
	interest, err := accounting.TotalInterest(principal, policy, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), interest.Amount)
}

func TestBuildScheduleRejectsBadInput(t *testing.T) {
	principal := domain.NewMoney(1000, "USD")

	_, _, err := accounting.BuildSchedule("l", principal, zeroRatePolicy(), 0, time.Now(), weekly)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, err = accounting.BuildSchedule("l", domain.NewMoney(0, "USD"), zeroRatePolicy(), 3, time.Now(), weekly)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, err = accounting.BuildSchedule("l", principal, domain.InterestPolicy{Kind: "COMPOUND"}, 3, time.Now(), weekly)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// Property sweep: no (principal, term) pair may drift by rounding.
func TestScheduleSumNeverDrifts(t *testing.T) {
	policy := domain.InterestPolicy{Kind: domain.PolicyFlat, Rate: decimal.RequireFromString("0.07")}
	for _, principal := range []int64{1, 99, 1000, 33333, 120000, 999999} {
		for _, term := range []int{1, 2, 3, 7, 12, 52} {
			installments, total, err := accounting.BuildSchedule("l", domain.NewMoney(principal, "USD"), policy, term, time.Now(), weekly)
			require.NoError(t, err)
			var sum int64
			for _, inst := range installments {
				sum += inst.DueAmount.Amount
			}
			assert.Equalf(t, total.Amount, sum, "principal=%d term=%d", principal, term)
		}
	}
}
