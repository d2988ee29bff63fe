package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/storage"
	"github.com/shopspring/decimal"
)

// CreateRequestInput is a submission as received from the client. LineItems
// and ContractDetails accept either a JSON value or a JSON-encoded string,
// since multipart forms carry them as text.
type CreateRequestInput struct {
	Department         string          `json:"department"`
	ProjectName        string          `json:"project_name"`
	ProjectCode        string          `json:"project_code"`
	ProjectTechnology  string          `json:"project_technology"`
	VendorType         string          `json:"vendor_type"`
	Currency           string          `json:"currency"`
	DocumentType       string          `json:"document_type"`
	ServiceDescription string          `json:"service_description"`
	LineItems          json.RawMessage `json:"line_items"`
	ContractDetails    json.RawMessage `json:"contract_details"`
	RequestDate        string          `json:"request_date"`

	Files []storage.File `json:"-"`
}

// DecisionInput approves or rejects a request under review.
type DecisionInput struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

// ChecklistInput lists the checklist steps an analyst has completed.
type ChecklistInput struct {
	CompletedSteps []string `json:"completed_steps"`
	Comment        string   `json:"comment"`
}

// StatusUpdateInput is the combined payload of PATCH /requests/:id/status;
// the gate decides which half applies.
type StatusUpdateInput struct {
	Decision       string   `json:"decision"`
	Comment        string   `json:"comment"`
	CompletedSteps []string `json:"completed_steps"`
}

type lineItemInput struct {
	Description string           `json:"description"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Quantity    *decimal.Decimal `json:"quantity"`
}

func isEmptyJSON(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}

// unwrapJSONString turns `"[...]"` into `[...]`; other values pass through.
func unwrapJSONString(raw json.RawMessage) (json.RawMessage, bool, error) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '"' {
		return t, false, nil
	}
	var s string
	if err := json.Unmarshal(t, &s); err != nil {
		return nil, true, err
	}
	return json.RawMessage(strings.TrimSpace(s)), true, nil
}

func parseLineItems(raw json.RawMessage) ([]entity.LineItem, error) {
	body, wasString, err := unwrapJSONString(raw)
	if err != nil {
		return nil, invalid("line_items", "Unable to read line items payload")
	}
	if len(body) == 0 || body[0] != '[' {
		if wasString {
			return nil, invalid("line_items", "Unable to read line items payload")
		}
		return nil, invalid("line_items", "Line items are required")
	}

	var items []lineItemInput
	if err := json.Unmarshal(body, &items); err != nil {
		if wasString {
			return nil, invalid("line_items", "Unable to read line items payload")
		}
		return nil, invalid("line_items", "Invalid line item values. Unit price and quantity cannot be negative.")
	}
	if len(items) == 0 {
		return nil, invalid("line_items", "At least one line item is required")
	}

	out := make([]entity.LineItem, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" ||
			item.UnitPrice == nil || item.Quantity == nil ||
			item.UnitPrice.IsNegative() || item.Quantity.IsNegative() {
			return nil, invalid("line_items", "Invalid line item values. Unit price and quantity cannot be negative.")
		}
		out = append(out, entity.LineItem{
			Position:    i,
			Description: strings.TrimSpace(item.Description),
			UnitPrice:   *item.UnitPrice,
			Quantity:    *item.Quantity,
		})
	}
	return out, nil
}

func parseContractDetails(raw json.RawMessage) (entity.ContractDetails, error) {
	var c entity.ContractDetails
	if isEmptyJSON(raw) {
		return c, nil
	}
	body, _, err := unwrapJSONString(raw)
	if err != nil || json.Unmarshal(body, &c) != nil {
		return c, invalid("contract_details", "Unable to read contract details")
	}
	c.ValidFrom = strings.TrimSpace(c.ValidFrom)
	c.ValidTo = strings.TrimSpace(c.ValidTo)
	c.PaymentTerms = strings.TrimSpace(c.PaymentTerms)
	return c, nil
}

var requestDateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseRequestDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	for _, layout := range requestDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("request_date", "Invalid request date")
}
