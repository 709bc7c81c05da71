package model

import "strings"

// Presence is an on-premises agent a scan can be routed through when the
// target is not reachable from the internet.
type Presence struct {
	ID     string
	Name   string
	Status string
}

// IsInactive reports whether the service marks the presence as inactive.
func (p Presence) IsInactive() bool {
	return strings.EqualFold(p.Status, "Inactive")
}

// Application is a service-side application that scans are associated with.
type Application struct {
	ID   string
	Name string
}
