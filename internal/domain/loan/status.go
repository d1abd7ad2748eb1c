package loan

import "fmt"

// Status is the lifecycle state of a loan application
type Status string

const (
	StatusInitiated                Status = "INITIATED"
	StatusLoanOfferAtFSP           Status = "LOAN_OFFER_AT_FSP"
	StatusFSPRejected              Status = "FSP_REJECTED"
	StatusLoanOfferAtEmployee      Status = "LOAN_OFFER_AT_EMPLOYEE"
	StatusEmployerRejected         Status = "EMPLOYER_REJECTED"
	StatusEmployeeCanceled         Status = "EMPLOYEE_CANCELED"
	StatusSubmittedForDisbursement Status = "SUBMITTED_FOR_DISBURSEMENT"
	StatusDisbursementFailure      Status = "DISBURSEMENT_FAILURE"
	StatusCompleted                Status = "COMPLETED"
)

// transitions is the directed lifecycle graph. Statuses without outgoing edges are terminal.
var transitions = map[Status][]Status{
	StatusInitiated:                {StatusLoanOfferAtFSP},
	StatusLoanOfferAtFSP:           {StatusFSPRejected, StatusLoanOfferAtEmployee},
	StatusLoanOfferAtEmployee:      {StatusEmployerRejected, StatusEmployeeCanceled, StatusSubmittedForDisbursement},
	StatusSubmittedForDisbursement: {StatusDisbursementFailure, StatusCompleted},
}

var descriptions = map[Status]string{
	StatusInitiated:                "Loan application received",
	StatusLoanOfferAtFSP:           "Loan offer is awaiting review by the financial service provider",
	StatusFSPRejected:              "Loan offer was rejected by the financial service provider",
	StatusLoanOfferAtEmployee:      "Loan offer is awaiting employee and employer approval",
	StatusEmployerRejected:         "Loan was rejected by the employer",
	StatusEmployeeCanceled:         "Loan was canceled by the employee",
	StatusSubmittedForDisbursement: "Loan is approved and submitted for disbursement",
	StatusDisbursementFailure:      "Loan disbursement failed",
	StatusCompleted:                "Loan has been disbursed",
}

// CanTransitionTo reports whether next is a direct successor of s
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Description is the human-readable text used in status responses
func (s Status) Description() string {
	if d, ok := descriptions[s]; ok {
		return d
	}
	return fmt.Sprintf("Unknown status %s", string(s))
}

// ErrInvalidTransition indicates an edge that is not in the lifecycle graph
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid loan status transition from %s to %s", e.From, e.To)
}
