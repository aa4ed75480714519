package accounting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
)

// TotalInterest computes the interest charged on a principal under the given
// policy for a term of installment periods. Rounding is half-to-even on minor
// units, the single documented direction for all money scaling.
func TotalInterest(principal domain.Money, policy domain.InterestPolicy, term int) (domain.Money, error) {
	switch policy.Kind {
	case domain.PolicyFlat:
		return principal.Scale(policy.Rate), nil
	case domain.PolicySimple:
		// Rate is per installment period.
		return principal.Scale(policy.Rate.Mul(decimal.NewFromInt(int64(term)))), nil
	default:
		return domain.Money{}, fmt.Errorf("%w: unknown interest policy kind %q", apperrors.ErrValidation, policy.Kind)
	}
}

// BuildSchedule generates the installment schedule as a pure function of
// (principal, policy, term). Each installment is total/term by integer
// division; the remainder of that division is absorbed into the final
// installment so the schedule sums to principal + interest exactly, with no
// rounding drift.
func BuildSchedule(loanID string, principal domain.Money, policy domain.InterestPolicy, term int, start time.Time, interval time.Duration) ([]domain.Installment, domain.Money, error) {
	if term <= 0 {
		return nil, domain.Money{}, fmt.Errorf("%w: term must be positive, got %d", apperrors.ErrValidation, term)
	}
	if !principal.IsPositive() {
		return nil, domain.Money{}, fmt.Errorf("%w: principal must be positive, got %s", apperrors.ErrValidation, principal)
	}

	interest, err := TotalInterest(principal, policy, term)
	if err != nil {
		return nil, domain.Money{}, err
	}
	total, err := principal.Add(interest)
	if err != nil {
		return nil, domain.Money{}, err
	}

	base := total.Amount / int64(term)
	remainder := total.Amount % int64(term)

	installments := make([]domain.Installment, 0, term)
	for n := 1; n <= term; n++ {
		due := base
		if n == term {
			due += remainder
		}
		installments = append(installments, domain.Installment{
			LoanID:    loanID,
			Number:    n,
			DueAmount: domain.NewMoney(due, principal.CurrencyCode),
			DueDate:   start.Add(time.Duration(n) * interval),
			Status:    domain.InstallmentPending,
		})
	}
	return installments, total, nil
}
