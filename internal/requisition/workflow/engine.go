package workflow

import (
	"strings"
	"time"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
)

// SubmittedComment is recorded on the creation history entry.
const SubmittedComment = "Submitted"

// IDFunc generates identifiers for history entries and checklist steps.
type IDFunc func() string

// Engine mutates requests in memory. Persisting the result is the caller's job.
type Engine struct {
	newID IDFunc
	now   func() time.Time
}

func NewEngine(newID IDFunc, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{newID: newID, now: now}
}

// Submit sets the initial status and logs the creation event on a new request.
func (e *Engine) Submit(pr *entity.PurchaseRequest, actor entity.Actor) {
	pr.Status = InitialStatus(actor.Role)
	pr.RequesterID = actor.ID
	pr.RequesterName = actor.Name
	pr.RequesterRole = actor.Role
	pr.ApprovalHistory = nil
	e.appendHistory(pr, entity.ApprovalEntry{
		Stage:     entity.StatusSubmitted,
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		Decision:  entity.DecisionApproved,
		Comment:   SubmittedComment,
	})
}

// Guard runs the visibility filter and then the gate, returning the permitted action.
func Guard(actor entity.Actor, pr *entity.PurchaseRequest) (Action, error) {
	if !CanView(actor, pr) {
		return "", deny("Request is not in your queue")
	}
	return Authorize(actor.Role, pr.Status)
}

// Decide applies an approve or reject decision to a request under review.
func (e *Engine) Decide(pr *entity.PurchaseRequest, actor entity.Actor, decision entity.Decision, comment string) error {
	action, err := Guard(actor, pr)
	if err != nil {
		return err
	}
	if action != ActionDecide {
		return deny("Accounting stages are processed through the checklist")
	}
	if decision == "" {
		return invalid("decision", "Decision is required")
	}
	if _, err := entity.ParseDecision(string(decision)); err != nil {
		return invalid("decision", "Invalid decision")
	}
	comment = strings.TrimSpace(comment)
	if decision == entity.DecisionRejected && comment == "" {
		return invalid("comment", "Comment is required when rejecting a request")
	}

	next, ok := NextStatus(pr.Status, actor.Role, decision)
	if !ok {
		return deny("No transition from " + string(pr.Status) + " for " + string(actor.Role))
	}

	e.appendHistory(pr, entity.ApprovalEntry{
		Stage:     pr.Status,
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		Decision:  decision,
		Comment:   comment,
	})
	pr.Status = next
	return nil
}

// CompleteSteps marks the listed checklist steps complete and recomputes the
// accounting status. Already completed steps keep their original completer.
// Unknown step ids are ignored.
func (e *Engine) CompleteSteps(pr *entity.PurchaseRequest, actor entity.Actor, stepIDs []string, comment string) error {
	action, err := Guard(actor, pr)
	if err != nil {
		return err
	}
	if action != ActionChecklist {
		return deny("Only accounting analysts update the checklist")
	}

	now := e.now()
	want := make(map[string]struct{}, len(stepIDs))
	for _, id := range stepIDs {
		want[id] = struct{}{}
	}
	allDone := true
	for i := range pr.AccountingSteps {
		step := &pr.AccountingSteps[i]
		if _, ok := want[step.ID]; ok && !step.Completed {
			at := now
			step.Completed = true
			step.CompletedBy = actor.ID
			step.CompletedAt = &at
		}
		if !step.Completed {
			allDone = false
		}
	}

	if allDone {
		if pr.Status != entity.StatusBankLoaded || pr.LoadedByAnalystID == "" {
			pr.LoadedByAnalystID = actor.ID
			pr.LoadedByAnalystName = actor.Name
		}
		pr.Status = entity.StatusBankLoaded
	} else {
		pr.Status = entity.StatusAccountingProcessing
		pr.LoadedByAnalystID = ""
		pr.LoadedByAnalystName = ""
	}

	e.appendHistory(pr, entity.ApprovalEntry{
		Stage:     entity.StatusAccountingProcessing,
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		Decision:  entity.DecisionApproved,
		Comment:   strings.TrimSpace(comment),
	})
	return nil
}

func (e *Engine) appendHistory(pr *entity.PurchaseRequest, entry entity.ApprovalEntry) {
	entry.ID = e.newID()
	entry.RequestID = pr.ID
	entry.Sequence = len(pr.ApprovalHistory) + 1
	entry.ActedAt = e.now()
	pr.ApprovalHistory = append(pr.ApprovalHistory, entry)
}
