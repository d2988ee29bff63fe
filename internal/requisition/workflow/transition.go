package workflow

import "github.com/bitfantasy/requisition/internal/requisition/entity"

type transitionKey struct {
	From     entity.Status
	Role     entity.Role
	Decision entity.Decision
}

// reviewers maps each review stage to the roles allowed to decide it and the
// status an approval leads to.
var reviewers = []struct {
	Stage   entity.Status
	Roles   []entity.Role
	Approve entity.Status
}{
	{entity.StatusHODReview, []entity.Role{entity.RoleHOD}, entity.StatusCFOReview},
	{entity.StatusCFOReview, []entity.Role{entity.RoleCFO, entity.RoleSuperUser}, entity.StatusCEOReview},
	{entity.StatusCEOReview, []entity.Role{entity.RoleCEO}, entity.StatusAccountingProcessing},
}

// decisionTransitions is the complete (from, role, decision) -> next table.
// Combinations absent from it are illegal.
var decisionTransitions = buildDecisionTransitions()

func buildDecisionTransitions() map[transitionKey]entity.Status {
	table := make(map[transitionKey]entity.Status)
	for _, r := range reviewers {
		for _, role := range r.Roles {
			table[transitionKey{r.Stage, role, entity.DecisionApproved}] = r.Approve
			table[transitionKey{r.Stage, role, entity.DecisionRejected}] = entity.StatusRejected
		}
	}
	return table
}

// NextStatus looks up the status a decision leads to.
func NextStatus(from entity.Status, role entity.Role, decision entity.Decision) (entity.Status, bool) {
	next, ok := decisionTransitions[transitionKey{from, role, decision}]
	return next, ok
}

// InitialStatus is where a new request starts, skipping the stages at or
// below the creator's own authority.
func InitialStatus(role entity.Role) entity.Status {
	switch role {
	case entity.RoleHOD:
		return entity.StatusCFOReview
	case entity.RoleCFO:
		return entity.StatusCEOReview
	case entity.RoleCEO:
		return entity.StatusAccountingProcessing
	case entity.RoleRequester, entity.RoleSuperUser, entity.RoleAnalyst:
		return entity.StatusHODReview
	}
	return entity.StatusHODReview
}

// CanCreate reports whether role may file new requests.
func CanCreate(role entity.Role) bool {
	switch role {
	case entity.RoleRequester, entity.RoleHOD, entity.RoleCFO, entity.RoleCEO:
		return true
	case entity.RoleSuperUser, entity.RoleAnalyst:
		return false
	}
	return false
}
