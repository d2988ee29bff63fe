package entity

// Departments is the fixed list a request's department is drawn from.
var Departments = []string{
	"Generation and Transmission",
	"Transmission and Distribution",
	"Environment",
	"Finance",
	"Engineering",
	"People & Culture",
}

// ProjectTechnologies lists the technologies a project-tracked request may name.
var ProjectTechnologies = []string{
	"Solar PV",
	"Wind",
	"Hydro",
	"Battery Storage",
}

// ReferenceData is served to clients building the submission form.
type ReferenceData struct {
	Departments          []string       `json:"departments"`
	ProjectDepartments   []string       `json:"project_departments"`
	RequesterDepartments []string       `json:"requester_departments"`
	Technologies         []string       `json:"technologies"`
	VendorTypes          []VendorType   `json:"vendor_types"`
	Currencies           []Currency     `json:"currencies"`
	DocumentTypes        []DocumentType `json:"document_types"`
}
