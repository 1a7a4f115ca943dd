package models

// Dashboard is the role-shaped view returned to the personal dashboard.
// Availability is only populated for admins.
type Dashboard struct {
	IsAdmin       bool                `json:"isAdmin"`
	Consultations []*Consultation     `json:"consultations"`
	Availability  []*AvailabilitySlot `json:"availability,omitempty"`
}

// StotraCatalog is the filtered content listing plus the facets used to build
// the filter controls.
type StotraCatalog struct {
	Stotras    []*Stotra `json:"stotras"`
	Symptoms   []string  `json:"symptoms"`
	Categories []string  `json:"categories"`
}
