package notify

import (
	"fmt"

	"github.com/msbfinance/loan-office/internal/models"
)

// LoanOperatorMessage is the operator copy of a new application, including
// the full bank details needed for payout verification.
func LoanOperatorMessage(applicant models.Identity, loan *models.Loan) (subject, body string) {
	subject = "New Loan Application"
	body = fmt.Sprintf(
		"A new loan application has been submitted.\n\n"+
			"Applicant: %s (%s)\n"+
			"Loan Amount: R%.2f\n"+
			"Term: %d months\n\n"+
			"Bank Details:\n"+
			"- Bank Name: %s\n"+
			"- Account Number: %s\n"+
			"- Branch Code: %s\n"+
			"- Account Holder: %s\n",
		applicant.Name, applicant.Email, loan.Amount, loan.TermMonths,
		loan.BankDetails.BankName, loan.BankDetails.AccountNumber,
		loan.BankDetails.BranchCode, loan.BankDetails.AccountHolder,
	)
	return subject, body
}

// LoanApplicantMessage is the redacted confirmation sent to the applicant.
// No bank details are echoed back.
func LoanApplicantMessage(applicant models.Identity, loan *models.Loan) (subject, body string) {
	subject = "Loan Application Received"
	body = fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your loan application for R%.2f has been received and is pending verification.\n"+
			"Our team will review it and get back to you shortly.\n\n"+
			"Thank you,\nMSB Finance\n",
		applicant.Name, loan.Amount,
	)
	return subject, body
}

// PendingReviewMessage is the scheduled operator digest of applications
// still awaiting review.
func PendingReviewMessage(pending int) (subject, body string) {
	subject = "Loan Applications Awaiting Review"
	body = fmt.Sprintf(
		"There are %d loan applications in Pending status awaiting review.\n\n"+
			"MSB Finance back office\n",
		pending,
	)
	return subject, body
}
