package workflow

import "github.com/bitfantasy/requisition/internal/requisition/entity"

// Scope builds the listing filter for actor.
func Scope(actor entity.Actor) entity.RequestFilter {
	switch actor.Role {
	case entity.RoleRequester:
		return entity.RequestFilter{RequesterID: actor.ID, Department: actor.DepartmentID}
	case entity.RoleHOD:
		return entity.RequestFilter{Department: actor.DepartmentID}
	case entity.RoleAnalyst:
		return entity.RequestFilter{Statuses: []entity.Status{
			entity.StatusAccountingProcessing,
			entity.StatusBankLoaded,
		}}
	case entity.RoleCFO, entity.RoleSuperUser, entity.RoleCEO:
		return entity.RequestFilter{}
	}
	// Unknown roles see nothing.
	return entity.RequestFilter{RequesterID: "\x00"}
}

// Matches reports whether pr satisfies f.
func Matches(f entity.RequestFilter, pr *entity.PurchaseRequest) bool {
	if f.RequesterID != "" && pr.RequesterID != f.RequesterID {
		return false
	}
	if f.Department != "" && pr.Department != f.Department {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if pr.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// CanView applies the listing scope to a single record.
func CanView(actor entity.Actor, pr *entity.PurchaseRequest) bool {
	return Matches(Scope(actor), pr)
}
