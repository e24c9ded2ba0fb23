package service

import (
	"context"

	"github.com/msbfinance/loan-office/internal/apperr"
	"github.com/msbfinance/loan-office/internal/models"
	"github.com/msbfinance/loan-office/internal/notify"
)

// Loan amount bounds in rand, inclusive.
const (
	MinLoanAmount = 300
	MaxLoanAmount = 4000
)

// ApplyInput is a loan application request. InterestRate is deliberately
// absent: the rate is server-side policy.
type ApplyInput struct {
	Amount      float64            `json:"amount"`
	TermMonths  int                `json:"term"`
	BankDetails models.BankDetails `json:"bankDetails"`
}

// ApplyResult pairs the persisted loan with the notification outcome.
// Notified=false never means the application failed.
type ApplyResult struct {
	Loan     *models.Loan
	Notified bool
}

// Apply validates and persists a loan application, then sends the operator
// and applicant notifications best-effort. First validation failure wins;
// nothing is persisted on validation failure.
func (s *Service) Apply(ctx context.Context, caller models.Identity, in ApplyInput) (*ApplyResult, error) {
	if in.Amount < MinLoanAmount || in.Amount > MaxLoanAmount {
		return nil, apperr.Newf(apperr.Validation, "loan amount must be R%d-R%d", MinLoanAmount, MaxLoanAmount)
	}
	if !in.BankDetails.Complete() {
		return nil, apperr.New(apperr.Validation, "all bank details are required")
	}
	term := in.TermMonths
	if term == 0 {
		term = s.config.DefaultTermMonths
	}
	if term < 0 {
		return nil, apperr.New(apperr.Validation, "term must be a positive number of months")
	}

	loan := &models.Loan{
		UserID:       caller.ID,
		Amount:       in.Amount,
		TermMonths:   term,
		InterestRate: s.interestRate,
		Status:       models.LoanPending,
		BankDetails:  in.BankDetails,
	}
	if err := s.store.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}
	s.log.Infof("Loan %d created for user %d: R%.2f over %d months", loan.ID, caller.ID, loan.Amount, loan.TermMonths)

	// Delivery failures are logged by the dispatcher and must not fail
	// the application.
	subject, body := notify.LoanOperatorMessage(caller, loan)
	notified := s.mailer.BestEffort(ctx, s.config.OperatorEmail, subject, body)
	subject, body = notify.LoanApplicantMessage(caller, loan)
	notified = s.mailer.BestEffort(ctx, caller.Email, subject, body) && notified

	return &ApplyResult{Loan: loan, Notified: notified}, nil
}

// ListLoans returns the caller's own loans.
func (s *Service) ListLoans(ctx context.Context, caller models.Identity) ([]models.Loan, error) {
	return s.store.ListLoansByUser(ctx, caller.ID)
}

// AdminListLoans returns every loan with owner display fields populated.
func (s *Service) AdminListLoans(ctx context.Context) ([]models.Loan, error) {
	return s.store.ListLoans(ctx)
}

// SetLoanStatus moves a loan to newStatus. The move must be a member of
// the enum and permitted by the configured transition table.
func (s *Service) SetLoanStatus(ctx context.Context, id int64, newStatus string) (*models.Loan, error) {
	if !models.ValidLoanStatus(newStatus) {
		return nil, apperr.New(apperr.Validation, "invalid status")
	}
	loan, err := s.store.FindLoanByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.transitions.Allowed(loan.Status, newStatus) {
		return nil, apperr.Newf(apperr.Validation, "cannot move loan from %s to %s", loan.Status, newStatus)
	}
	updated, err := s.store.UpdateLoanStatus(ctx, id, newStatus)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Loan %d status changed: %s -> %s", id, loan.Status, newStatus)
	return updated, nil
}

// SendPendingReviewReminder mails the operator a digest of applications
// still awaiting review. Used by the scheduled job; best-effort.
func (s *Service) SendPendingReviewReminder(ctx context.Context) {
	pending, err := s.store.CountLoansByStatus(ctx, models.LoanPending)
	if err != nil {
		s.log.Errorf("Failed to count pending loans: %v", err)
		return
	}
	if pending == 0 {
		return
	}
	subject, body := notify.PendingReviewMessage(pending)
	s.mailer.BestEffort(ctx, s.config.OperatorEmail, subject, body)
}
