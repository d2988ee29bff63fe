package entity

import "fmt"

// Role is the closed set of actor roles recognised by the approval chain.
type Role string

const (
	RoleRequester Role = "requestor"
	RoleHOD       Role = "head_of_department"
	RoleCFO       Role = "chief_finance_officer"
	RoleSuperUser Role = "super_user"
	RoleCEO       Role = "chief_executive_officer"
	RoleAnalyst   Role = "accounting_analyst"
)

// Roles lists every role in chain order.
var Roles = []Role{RoleRequester, RoleHOD, RoleCFO, RoleSuperUser, RoleCEO, RoleAnalyst}

// ParseRole rejects any role string outside the closed set.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Status is the lifecycle position of a purchase request.
type Status string

const (
	StatusSubmitted            Status = "submitted"
	StatusHODReview            Status = "hod_review"
	StatusCFOReview            Status = "cfo_review"
	StatusCEOReview            Status = "ceo_review"
	StatusAccountingProcessing Status = "accounting_processing"
	StatusBankLoaded           Status = "bank_loaded"
	StatusRejected             Status = "rejected"
)

var Statuses = []Status{
	StatusSubmitted,
	StatusHODReview,
	StatusCFOReview,
	StatusCEOReview,
	StatusAccountingProcessing,
	StatusBankLoaded,
	StatusRejected,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsReview reports whether s is one of the approve/reject stages.
func (s Status) IsReview() bool {
	return s == StatusHODReview || s == StatusCFOReview || s == StatusCEOReview
}

// IsAccounting reports whether s belongs to the analyst's queue.
func (s Status) IsAccounting() bool {
	return s == StatusAccountingProcessing || s == StatusBankLoaded
}

// Decision on a review stage.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApproved, DecisionRejected:
		return Decision(s), nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

type VendorType string

const (
	VendorExisting VendorType = "existing"
	VendorNew      VendorType = "new"
)

func ParseVendorType(s string) (VendorType, bool) {
	switch VendorType(s) {
	case VendorExisting, VendorNew:
		return VendorType(s), true
	}
	return "", false
}

type Currency string

const (
	CurrencyZMW Currency = "ZMW"
	CurrencyUSD Currency = "USD"
)

func ParseCurrency(s string) (Currency, bool) {
	switch Currency(s) {
	case CurrencyZMW, CurrencyUSD:
		return Currency(s), true
	}
	return "", false
}

type DocumentType string

const (
	DocumentInvoice  DocumentType = "invoice"
	DocumentQuote    DocumentType = "quote"
	DocumentContract DocumentType = "contract"
)

var DocumentTypes = []DocumentType{DocumentInvoice, DocumentQuote, DocumentContract}

func ParseDocumentType(s string) (DocumentType, bool) {
	for _, d := range DocumentTypes {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// AttachmentKind distinguishes the mandatory new-vendor documents from supporting files.
type AttachmentKind string

const (
	AttachmentSupporting      AttachmentKind = "supporting"
	AttachmentBankLetter      AttachmentKind = "bank_letter"
	AttachmentTPINCertificate AttachmentKind = "tpin_certificate"
)
