package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	"github.com/sulimanbank/bankcore/internal/models"
)

type PgxLoanRepository struct {
	pool *pgxpool.Pool
}

// newPgxLoanRepository creates a new repository for loan and installment data.
func newPgxLoanRepository(pool *pgxpool.Pool) portsrepo.LoanRepositoryFacade {
	return &PgxLoanRepository{pool: pool}
}

var _ portsrepo.LoanRepositoryFacade = (*PgxLoanRepository)(nil)

func toModelLoan(d domain.Loan) models.Loan {
	return models.Loan{
		LoanID:                  d.LoanID,
		BorrowerAccountID:       d.BorrowerAccountID,
		Principal:               d.Principal.Amount,
		CurrencyCode:            d.Principal.CurrencyCode,
		PolicyKind:              string(d.Policy.Kind),
		Rate:                    d.Policy.Rate,
		RoundingTolerance:       d.Policy.RoundingTolerance,
		TotalDue:                d.TotalDue.Amount,
		TotalRepaid:             d.TotalRepaid.Amount,
		Outstanding:             d.Outstanding.Amount,
		Status:                  models.LoanStatus(d.Status),
		DisbursementOperationID: d.DisbursementOperationID,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

func toDomainLoan(m models.Loan, installments []models.Installment, repaymentIDs []string) domain.Loan {
	d := domain.Loan{
		LoanID:            m.LoanID,
		BorrowerAccountID: m.BorrowerAccountID,
		Principal:         domain.NewMoney(m.Principal, m.CurrencyCode),
		Policy: domain.InterestPolicy{
			Kind:              domain.PolicyKind(m.PolicyKind),
			Rate:              m.Rate,
			RoundingTolerance: m.RoundingTolerance,
		},
		TotalDue:                domain.NewMoney(m.TotalDue, m.CurrencyCode),
		TotalRepaid:             domain.NewMoney(m.TotalRepaid, m.CurrencyCode),
		Outstanding:             domain.NewMoney(m.Outstanding, m.CurrencyCode),
		Status:                  domain.LoanStatus(m.Status),
		DisbursementOperationID: m.DisbursementOperationID,
		RepaymentOperationIDs:   repaymentIDs,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
	for _, inst := range installments {
		d.Installments = append(d.Installments, domain.Installment{
			LoanID:    inst.LoanID,
			Number:    inst.Number,
			DueAmount: domain.NewMoney(inst.DueAmount, m.CurrencyCode),
			DueDate:   inst.DueDate,
			Status:    domain.InstallmentStatus(inst.Status),
			PaidAt:    inst.PaidAt,
		})
	}
	return d
}

const loanColumns = `loan_id, borrower_account_id, principal, currency_code, policy_kind, rate, rounding_tolerance, total_due, total_repaid, outstanding, status, disbursement_operation_id, created_at, created_by, last_updated_at, last_updated_by`

func scanLoan(row pgx.Row) (models.Loan, error) {
	var m models.Loan
	err := row.Scan(
		&m.LoanID,
		&m.BorrowerAccountID,
		&m.Principal,
		&m.CurrencyCode,
		&m.PolicyKind,
		&m.Rate,
		&m.RoundingTolerance,
		&m.TotalDue,
		&m.TotalRepaid,
		&m.Outstanding,
		&m.Status,
		&m.DisbursementOperationID,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveLoan persists a new loan together with its installment schedule.
func (r *PgxLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	return runInTx(ctx, r.pool, func(tx pgx.Tx) error {
		m := toModelLoan(loan)
		loanQuery := `
			INSERT INTO loans (` + loanColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
		`
		_, err := tx.Exec(ctx, loanQuery,
			m.LoanID,
			m.BorrowerAccountID,
			m.Principal,
			m.CurrencyCode,
			m.PolicyKind,
			m.Rate,
			m.RoundingTolerance,
			m.TotalDue,
			m.TotalRepaid,
			m.Outstanding,
			m.Status,
			m.DisbursementOperationID,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: loan %s or its disbursement operation already recorded", apperrors.ErrDuplicate, m.LoanID)
			}
			return fmt.Errorf("failed to insert loan %s: %w", m.LoanID, err)
		}

		batch := &pgx.Batch{}
		instQuery := `
			INSERT INTO loan_installments (loan_id, number, due_amount, due_date, status, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6);
		`
		for _, inst := range loan.Installments {
			batch.Queue(instQuery, inst.LoanID, inst.Number, inst.DueAmount.Amount, inst.DueDate, string(inst.Status), inst.PaidAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert installments of loan %s: %w", m.LoanID, err)
		}
		return nil
	})
}

// UpdateLoan persists repayment progress: the loan row, every installment row
// and the applied-repayment ledger, atomically.
func (r *PgxLoanRepository) UpdateLoan(ctx context.Context, loan domain.Loan) error {
	return runInTx(ctx, r.pool, func(tx pgx.Tx) error {
		loanQuery := `
			UPDATE loans
			SET total_repaid = $2, outstanding = $3, status = $4, last_updated_at = $5, last_updated_by = $6
			WHERE loan_id = $1;
		`
		tag, err := tx.Exec(ctx, loanQuery, loan.LoanID, loan.TotalRepaid.Amount, loan.Outstanding.Amount, string(loan.Status), loan.LastUpdatedAt, loan.LastUpdatedBy)
		if err != nil {
			return fmt.Errorf("failed to update loan %s: %w", loan.LoanID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: loan %s", apperrors.ErrNotFound, loan.LoanID)
		}

		batch := &pgx.Batch{}
		instQuery := `
			UPDATE loan_installments
			SET status = $3, paid_at = $4
			WHERE loan_id = $1 AND number = $2;
		`
		for _, inst := range loan.Installments {
			batch.Queue(instQuery, inst.LoanID, inst.Number, string(inst.Status), inst.PaidAt)
		}
		repayQuery := `
			INSERT INTO loan_repayments (loan_id, operation_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING;
		`
		for _, opID := range loan.RepaymentOperationIDs {
			batch.Queue(repayQuery, loan.LoanID, opID)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to update installments of loan %s: %w", loan.LoanID, err)
		}
		return nil
	})
}

func (r *PgxLoanRepository) loadRepaymentIDs(ctx context.Context, loanID string) ([]string, error) {
	query := `SELECT operation_id FROM loan_repayments WHERE loan_id = $1 ORDER BY operation_id;`
	rows, err := r.pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query repayments of loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan repayment row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate repayment rows: %w", err)
	}
	return ids, nil
}

func (r *PgxLoanRepository) loadInstallments(ctx context.Context, loanID string) ([]models.Installment, error) {
	query := `
		SELECT loan_id, number, due_amount, due_date, status, paid_at
		FROM loan_installments
		WHERE loan_id = $1
		ORDER BY number;
	`
	rows, err := r.pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments of loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var installments []models.Installment
	for rows.Next() {
		var m models.Installment
		if err := rows.Scan(&m.LoanID, &m.Number, &m.DueAmount, &m.DueDate, &m.Status, &m.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan installment row: %w", err)
		}
		installments = append(installments, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installment rows: %w", err)
	}
	return installments, nil
}

func (r *PgxLoanRepository) findLoan(ctx context.Context, where string, arg any) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE ` + where + ` = $1;`
	m, err := scanLoan(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: loan (%s=%v)", apperrors.ErrNotFound, where, arg)
		}
		return nil, fmt.Errorf("failed to find loan (%s=%v): %w", where, arg, err)
	}
	installments, err := r.loadInstallments(ctx, m.LoanID)
	if err != nil {
		return nil, err
	}
	repaymentIDs, err := r.loadRepaymentIDs(ctx, m.LoanID)
	if err != nil {
		return nil, err
	}
	loan := toDomainLoan(m, installments, repaymentIDs)
	return &loan, nil
}

// FindLoanByID retrieves a loan with its full installment schedule.
func (r *PgxLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	return r.findLoan(ctx, "loan_id", loanID)
}

// FindLoanByDisbursementOperationID retrieves the loan created by the given
// disbursement operation.
func (r *PgxLoanRepository) FindLoanByDisbursementOperationID(ctx context.Context, operationID string) (*domain.Loan, error) {
	return r.findLoan(ctx, "disbursement_operation_id", operationID)
}

// ListActiveLoans retrieves all loans in ACTIVE status, schedules included.
func (r *PgxLoanRepository) ListActiveLoans(ctx context.Context) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 ORDER BY created_at;`
	rows, err := r.pool.Query(ctx, query, string(domain.LoanActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active loans: %w", err)
	}
	defer rows.Close()

	var loanModels []models.Loan
	for rows.Next() {
		m, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loanModels = append(loanModels, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loan rows: %w", err)
	}

	loans := make([]domain.Loan, 0, len(loanModels))
	for _, m := range loanModels {
		installments, err := r.loadInstallments(ctx, m.LoanID)
		if err != nil {
			return nil, err
		}
		repaymentIDs, err := r.loadRepaymentIDs(ctx, m.LoanID)
		if err != nil {
			return nil, err
		}
		loans = append(loans, toDomainLoan(m, installments, repaymentIDs))
	}
	return loans, nil
}

// MarkInstallmentsOverdue flips pending installments whose due date passed to
// OVERDUE, returning how many rows changed.
func (r *PgxLoanRepository) MarkInstallmentsOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE loan_installments
		SET status = $1
		WHERE status = $2 AND due_date < $3;
	`
	tag, err := r.pool.Exec(ctx, query, string(domain.InstallmentOverdue), string(domain.InstallmentPending), asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue installments: %w", err)
	}
	return tag.RowsAffected(), nil
}
