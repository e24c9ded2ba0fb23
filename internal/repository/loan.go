package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msbfinance/loan-office/internal/apperr"
	"github.com/msbfinance/loan-office/internal/models"
)

// CreateLoan creates a new loan application in the database
func (r *Repository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	query := `
		INSERT INTO loanoffice.loans
			(user_id, amount, term_months, interest_rate, status,
			 bank_name, account_number, branch_code, account_holder,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		loan.UserID, loan.Amount, loan.TermMonths, loan.InterestRate, loan.Status,
		loan.BankDetails.BankName, loan.BankDetails.AccountNumber,
		loan.BankDetails.BranchCode, loan.BankDetails.AccountHolder).
		Scan(&loan.ID, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// FindLoanByID retrieves a loan by id
func (r *Repository) FindLoanByID(ctx context.Context, id int64) (*models.Loan, error) {
	loan := &models.Loan{}
	query := `
		SELECT id, user_id, amount, term_months, interest_rate, status,
		       bank_name, account_number, branch_code, account_holder,
		       created_at, updated_at
		FROM loanoffice.loans
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&loan.ID, &loan.UserID, &loan.Amount, &loan.TermMonths, &loan.InterestRate, &loan.Status,
		&loan.BankDetails.BankName, &loan.BankDetails.AccountNumber,
		&loan.BankDetails.BranchCode, &loan.BankDetails.AccountHolder,
		&loan.CreatedAt, &loan.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "loan not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}
	return loan, nil
}

// ListLoansByUser retrieves all loans owned by a user.
func (r *Repository) ListLoansByUser(ctx context.Context, userID int64) ([]models.Loan, error) {
	query := `
		SELECT id, user_id, amount, term_months, interest_rate, status,
		       bank_name, account_number, branch_code, account_holder,
		       created_at, updated_at
		FROM loanoffice.loans
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()
	return scanLoans(rows, false)
}

// ListLoans retrieves all loans with owner name and email populated for
// the admin view. A deleted owner yields fallback display values.
func (r *Repository) ListLoans(ctx context.Context) ([]models.Loan, error) {
	query := `
		SELECT l.id, l.user_id, l.amount, l.term_months, l.interest_rate, l.status,
		       l.bank_name, l.account_number, l.branch_code, l.account_holder,
		       l.created_at, l.updated_at,
		       COALESCE(u.name, 'unknown'), COALESCE(u.email, 'unknown')
		FROM loanoffice.loans l
		LEFT JOIN loanoffice.users u ON u.id = l.user_id
		ORDER BY l.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()
	return scanLoans(rows, true)
}

func scanLoans(rows *sql.Rows, withOwner bool) ([]models.Loan, error) {
	var loans []models.Loan
	for rows.Next() {
		var l models.Loan
		dest := []any{
			&l.ID, &l.UserID, &l.Amount, &l.TermMonths, &l.InterestRate, &l.Status,
			&l.BankDetails.BankName, &l.BankDetails.AccountNumber,
			&l.BankDetails.BranchCode, &l.BankDetails.AccountHolder,
			&l.CreatedAt, &l.UpdatedAt,
		}
		if withOwner {
			dest = append(dest, &l.OwnerName, &l.OwnerEmail)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read loans: %w", err)
	}
	return loans, nil
}

// UpdateLoanStatus writes the status field and returns the updated row.
func (r *Repository) UpdateLoanStatus(ctx context.Context, id int64, status string) (*models.Loan, error) {
	query := `
		UPDATE loanoffice.loans
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING id, user_id, amount, term_months, interest_rate, status,
		          bank_name, account_number, branch_code, account_holder,
		          created_at, updated_at`
	loan := &models.Loan{}
	err := r.db.QueryRowContext(ctx, query, status, id).Scan(
		&loan.ID, &loan.UserID, &loan.Amount, &loan.TermMonths, &loan.InterestRate, &loan.Status,
		&loan.BankDetails.BankName, &loan.BankDetails.AccountNumber,
		&loan.BankDetails.BranchCode, &loan.BankDetails.AccountHolder,
		&loan.CreatedAt, &loan.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "loan not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update loan status: %w", err)
	}
	return loan, nil
}

// CountLoansByStatus counts loans currently in the given status.
func (r *Repository) CountLoansByStatus(ctx context.Context, status string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM loanoffice.loans WHERE status = $1`
	if err := r.db.QueryRowContext(ctx, query, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count loans: %w", err)
	}
	return n, nil
}
