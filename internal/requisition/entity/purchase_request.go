package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest is a requisition moving through the approval chain.
type PurchaseRequest struct {
	ID            string `json:"id" gorm:"primaryKey;size:36"`
	RequestNumber string `json:"request_number" gorm:"size:32;uniqueIndex;not null"`

	// Classification
	Department        string       `json:"department" gorm:"size:100;not null;index"`
	ProjectName       string       `json:"project_name,omitempty" gorm:"size:200"`
	ProjectCode       string       `json:"project_code,omitempty" gorm:"size:64"`
	ProjectTechnology string       `json:"project_technology,omitempty" gorm:"size:64"`
	VendorType        VendorType   `json:"vendor_type" gorm:"size:16;not null"`
	Currency          Currency     `json:"currency" gorm:"size:8;not null"`
	DocumentType      DocumentType `json:"document_type" gorm:"size:16;not null"`

	ServiceDescription string          `json:"service_description" gorm:"type:text;not null"`
	Contract           ContractDetails `json:"contract_details" gorm:"embedded;embeddedPrefix:contract_"`

	// Provenance
	RequesterID   string    `json:"requester_id" gorm:"size:64;not null;index"`
	RequesterName string    `json:"requester_name,omitempty" gorm:"size:100"`
	RequesterRole Role      `json:"requester_role" gorm:"size:32;not null"`
	RequestedAt   time.Time `json:"requested_at"`

	Status Status `json:"status" gorm:"size:32;not null;index"`

	// Settlement attribution, populated only while Status is bank_loaded.
	LoadedByAnalystID   string `json:"loaded_by_analyst_id,omitempty" gorm:"size:64"`
	LoadedByAnalystName string `json:"loaded_by_analyst_name,omitempty" gorm:"size:100"`

	Version   int       `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	LineItems       []LineItem      `json:"line_items" gorm:"foreignKey:RequestID"`
	Attachments     []Attachment    `json:"attachments" gorm:"foreignKey:RequestID"`
	ApprovalHistory []ApprovalEntry `json:"approval_history" gorm:"foreignKey:RequestID"`
	AccountingSteps []ChecklistStep `json:"accounting_steps" gorm:"foreignKey:RequestID"`
}

func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

// TotalAmount sums unit price times quantity over every line item.
func (pr *PurchaseRequest) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range pr.LineItems {
		total = total.Add(item.Amount())
	}
	return total
}

// SettledBy returns the analyst credited with bank loading. It falls back to
// the most recent checklist completer when no attribution was stored.
func (pr *PurchaseRequest) SettledBy() string {
	if pr.Status != StatusBankLoaded {
		return ""
	}
	if pr.LoadedByAnalystID != "" {
		return pr.LoadedByAnalystID
	}
	var (
		who    string
		latest time.Time
	)
	for _, step := range pr.AccountingSteps {
		if step.Completed && step.CompletedAt != nil && !step.CompletedAt.Before(latest) {
			latest = *step.CompletedAt
			who = step.CompletedBy
		}
	}
	return who
}

// HasAttachment reports whether an attachment of the given kind is present.
func (pr *PurchaseRequest) HasAttachment(kind AttachmentKind) bool {
	for _, a := range pr.Attachments {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// ContractDetails are required when DocumentType is contract.
type ContractDetails struct {
	ValidFrom    string `json:"valid_from,omitempty" gorm:"size:32"`
	ValidTo      string `json:"valid_to,omitempty" gorm:"size:32"`
	PaymentTerms string `json:"payment_terms,omitempty" gorm:"size:500"`
}

func (c ContractDetails) Complete() bool {
	return c.ValidFrom != "" && c.ValidTo != "" && c.PaymentTerms != ""
}

// LineItem is one priced row of a request.
type LineItem struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	RequestID   string          `json:"-" gorm:"size:36;not null;index"`
	Position    int             `json:"-" gorm:"not null;default:0"`
	Description string          `json:"description" gorm:"size:500;not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(18,2);not null"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(18,4);not null"`
}

func (LineItem) TableName() string {
	return "purchase_request_line_items"
}

func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(li.Quantity)
}

// Attachment references a stored file; the bytes live with the storage driver.
type Attachment struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	RequestID    string         `json:"-" gorm:"size:36;not null;index"`
	Kind         AttachmentKind `json:"kind" gorm:"size:32;not null;default:supporting"`
	Filename     string         `json:"filename" gorm:"size:255;not null"`
	OriginalName string         `json:"original_name" gorm:"size:255"`
	MimeType     string         `json:"mime_type" gorm:"size:128"`
	Size         int64          `json:"size"`
	StoragePath  string         `json:"storage_path" gorm:"size:512"`
}

func (Attachment) TableName() string {
	return "purchase_request_attachments"
}

// ApprovalEntry is one append-only history record. Stage is the status the
// request was in when the actor acted.
type ApprovalEntry struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	RequestID string    `json:"-" gorm:"size:36;not null;index"`
	Sequence  int       `json:"sequence" gorm:"not null"`
	Stage     Status    `json:"stage" gorm:"size:32;not null"`
	ActorRole Role      `json:"actor_role" gorm:"size:32;not null"`
	ActorID   string    `json:"actor_id" gorm:"size:64;not null"`
	Decision  Decision  `json:"decision" gorm:"size:16;not null"`
	Comment   string    `json:"comment,omitempty" gorm:"type:text"`
	ActedAt   time.Time `json:"acted_at"`
}

func (ApprovalEntry) TableName() string {
	return "purchase_request_approvals"
}

// ChecklistStep is one accounting task generated from the document type template.
type ChecklistStep struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	RequestID   string     `json:"-" gorm:"size:36;not null;index"`
	Position    int        `json:"-" gorm:"not null;default:0"`
	Label       string     `json:"label" gorm:"size:200;not null"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CompletedBy string     `json:"completed_by,omitempty" gorm:"size:64"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (ChecklistStep) TableName() string {
	return "purchase_request_checklist_steps"
}

// Counter backs request numbering; Seq is incremented in the database.
type Counter struct {
	Name string `json:"name" gorm:"primaryKey;size:64"`
	Seq  int64  `json:"seq" gorm:"not null;default:0"`
}

func (Counter) TableName() string {
	return "counters"
}

// RequestCounterName is the counter used for purchase request numbers.
const RequestCounterName = "purchaseRequest"

// FormatRequestNumber renders seq as PR-NNNNNN.
func FormatRequestNumber(seq int64) string {
	return fmt.Sprintf("PR-%06d", seq)
}

var requestNumberPattern = regexp.MustCompile(`^PR-(\d+)$`)

// ParseRequestNumber is the inverse of FormatRequestNumber.
func ParseRequestNumber(s string) (int64, bool) {
	m := requestNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	seq, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// RequestFilter is the visibility-scoped query the engine hands to persistence.
// Empty fields do not constrain.
type RequestFilter struct {
	RequesterID string
	Department  string
	Statuses    []Status
}
