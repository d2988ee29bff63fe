package workflow

import (
	"fmt"
	"slices"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
)

var defaultChecklists = map[entity.DocumentType][]string{
	entity.DocumentInvoice: {
		"Invoice uploaded to SAP",
		"Payment submitted to bank",
	},
	entity.DocumentQuote: {
		"Quote verified against line items",
		"Purchase order raised in SAP",
	},
	entity.DocumentContract: {
		"Contract validity and payment terms confirmed",
		"Contract registered in SAP",
		"Payment loaded at bank",
	},
}

// ChecklistTemplates maps each document type to its ordered step labels.
// The zero value is unusable; build one with NewChecklistTemplates.
type ChecklistTemplates struct {
	labels map[entity.DocumentType][]string
}

// DefaultChecklistTemplates returns the compiled-in templates.
func DefaultChecklistTemplates() ChecklistTemplates {
	t, _ := NewChecklistTemplates(nil)
	return t
}

// NewChecklistTemplates overlays overrides on the defaults. Every document
// type must end up with at least one non-empty label.
func NewChecklistTemplates(overrides map[string][]string) (ChecklistTemplates, error) {
	labels := make(map[entity.DocumentType][]string, len(defaultChecklists))
	for dt, l := range defaultChecklists {
		labels[dt] = slices.Clone(l)
	}
	for key, l := range overrides {
		dt, ok := entity.ParseDocumentType(key)
		if !ok {
			return ChecklistTemplates{}, fmt.Errorf("checklist for unknown document type %q", key)
		}
		if len(l) == 0 {
			return ChecklistTemplates{}, fmt.Errorf("checklist for %s is empty", key)
		}
		for _, label := range l {
			if label == "" {
				return ChecklistTemplates{}, fmt.Errorf("checklist for %s has an empty label", key)
			}
		}
		labels[dt] = slices.Clone(l)
	}
	return ChecklistTemplates{labels: labels}, nil
}

// Labels returns a copy of the labels for dt.
func (t ChecklistTemplates) Labels(dt entity.DocumentType) []string {
	return slices.Clone(t.labels[dt])
}

// Build generates fresh, incomplete steps for dt.
func (t ChecklistTemplates) Build(dt entity.DocumentType, newID func() string) []entity.ChecklistStep {
	labels := t.labels[dt]
	steps := make([]entity.ChecklistStep, 0, len(labels))
	for i, label := range labels {
		steps = append(steps, entity.ChecklistStep{
			ID:       newID(),
			Position: i,
			Label:    label,
		})
	}
	return steps
}

// Policy holds the department rules and checklist templates, fixed at startup.
type Policy struct {
	RequesterDepartments []string
	ProjectDepartments   []string
	Checklists           ChecklistTemplates
}

func DefaultPolicy() Policy {
	return Policy{
		RequesterDepartments: []string{
			"Generation and Transmission",
			"Transmission and Distribution",
			"Environment",
		},
		ProjectDepartments: []string{
			"Generation and Transmission",
			"Transmission and Distribution",
		},
		Checklists: DefaultChecklistTemplates(),
	}
}

// NewPolicy builds a policy from configured lists. Empty department lists
// fall back to the defaults.
func NewPolicy(requesterDepartments, projectDepartments []string, checklists map[string][]string) (Policy, error) {
	templates, err := NewChecklistTemplates(checklists)
	if err != nil {
		return Policy{}, err
	}
	p := DefaultPolicy()
	p.Checklists = templates
	if len(requesterDepartments) > 0 {
		p.RequesterDepartments = slices.Clone(requesterDepartments)
	}
	if len(projectDepartments) > 0 {
		p.ProjectDepartments = slices.Clone(projectDepartments)
	}
	return p, nil
}

// RequiresProjectDetails reports whether department is project-tracking.
func (p Policy) RequiresProjectDetails(department string) bool {
	return slices.Contains(p.ProjectDepartments, department)
}

// RequesterMayFile reports whether requesters from department may submit.
func (p Policy) RequesterMayFile(department string) bool {
	return slices.Contains(p.RequesterDepartments, department)
}

// Reference assembles the data clients need to build a submission form.
func (p Policy) Reference() entity.ReferenceData {
	return entity.ReferenceData{
		Departments:          slices.Clone(entity.Departments),
		ProjectDepartments:   slices.Clone(p.ProjectDepartments),
		RequesterDepartments: slices.Clone(p.RequesterDepartments),
		Technologies:         slices.Clone(entity.ProjectTechnologies),
		VendorTypes:          []entity.VendorType{entity.VendorExisting, entity.VendorNew},
		Currencies:           []entity.Currency{entity.CurrencyZMW, entity.CurrencyUSD},
		DocumentTypes:        slices.Clone(entity.DocumentTypes),
	}
}
