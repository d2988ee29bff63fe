package workflow

import "github.com/bitfantasy/requisition/internal/requisition/entity"

// Action is what the gate permits an actor to do at the current status.
type Action string

const (
	ActionDecide    Action = "decide"
	ActionChecklist Action = "checklist"
)

// Authorize decides whether role may act on a request sitting at status.
// It is pure: visibility is checked separately by CanView.
func Authorize(role entity.Role, status entity.Status) (Action, error) {
	switch role {
	case entity.RoleRequester:
		return "", deny("Requestors cannot act on submitted requests")
	case entity.RoleHOD:
		if status != entity.StatusHODReview {
			return "", deny("HOD can only review HOD queue")
		}
		return ActionDecide, nil
	case entity.RoleCFO, entity.RoleSuperUser:
		if status != entity.StatusCFOReview {
			return "", deny("CFOs review the CFO queue")
		}
		return ActionDecide, nil
	case entity.RoleCEO:
		if status != entity.StatusCEOReview {
			return "", deny("CEO can only review CEO queue")
		}
		return ActionDecide, nil
	case entity.RoleAnalyst:
		if !status.IsAccounting() {
			return "", deny("Analysts can only work on accounting stages")
		}
		return ActionChecklist, nil
	}
	return "", deny("Unknown role")
}
