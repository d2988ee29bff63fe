package entity

// Actor is the authenticated identity acting on a request, taken verbatim
// from the identity provider.
type Actor struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"department_id,omitempty"`
}
