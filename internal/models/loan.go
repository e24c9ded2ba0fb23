package models

import (
	"fmt"
	"strings"
	"time"
)

// Loan statuses. Transitions between them are governed by a TransitionTable.
const (
	LoanPending   = "Pending"
	LoanApproved  = "Approved"
	LoanRejected  = "Rejected"
	LoanDisbursed = "Disbursed"
	LoanClosed    = "Closed"
)

// LoanStatuses lists every valid loan status.
var LoanStatuses = []string{LoanPending, LoanApproved, LoanRejected, LoanDisbursed, LoanClosed}

// BankDetails is the payout destination captured with an application.
// All four fields are required together.
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	BranchCode    string `json:"branchCode"`
	AccountHolder string `json:"accountHolder"`
}

// Complete reports whether every field is set.
func (b BankDetails) Complete() bool {
	return b.BankName != "" && b.AccountNumber != "" && b.BranchCode != "" && b.AccountHolder != ""
}

// Loan represents a loan application
type Loan struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"user_id"`
	Amount       float64     `json:"amount"`
	TermMonths   int         `json:"term_months"`
	InterestRate float64     `json:"interest_rate"`
	Status       string      `json:"status"`
	BankDetails  BankDetails `json:"bank_details"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	// Populated on admin listings only.
	OwnerName  string `json:"owner_name,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
}

// ValidLoanStatus reports whether s is a member of the loan status enum.
func ValidLoanStatus(s string) bool {
	for _, v := range LoanStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// TransitionTable is the set of permitted status transitions, keyed by
// current status.
type TransitionTable map[string][]string

// DefaultLoanTransitions is the forward-only graph used unless overridden
// by configuration. Rejected and Closed are terminal.
func DefaultLoanTransitions() TransitionTable {
	return TransitionTable{
		LoanPending:   {LoanApproved, LoanRejected},
		LoanApproved:  {LoanDisbursed, LoanRejected},
		LoanDisbursed: {LoanClosed},
	}
}

// Allowed reports whether from -> to is in the table.
func (t TransitionTable) Allowed(from, to string) bool {
	for _, v := range t[from] {
		if v == to {
			return true
		}
	}
	return false
}

// ParseTransitionTable parses a comma-separated list of "From>To" pairs.
// An empty spec returns the default table.
func ParseTransitionTable(spec string) (TransitionTable, error) {
	if strings.TrimSpace(spec) == "" {
		return DefaultLoanTransitions(), nil
	}
	table := TransitionTable{}
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(pair), ">")
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad transition %q, want From>To", pair)
		}
		from, to := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if !ValidLoanStatus(from) || !ValidLoanStatus(to) {
			return nil, fmt.Errorf("unknown status in transition %q", pair)
		}
		table[from] = append(table[from], to)
	}
	return table, nil
}
