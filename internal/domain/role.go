// Package domain holds the entities mirrored from the request-analytics
// backend, the typed input records sent to it, and the small lookups the
// views need to render them.
package domain

import (
	"fmt"
	"strings"
)

// Role is the account role returned by the backend on sign-in.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBusiness Role = "business"
	RoleUser     Role = "user"
)

// Section is one navigation entry of a role's workspace.
type Section struct {
	Title string
	Path  string
}

var sectionsByRole = map[Role][]Section{
	RoleAdmin: {
		{Title: "request analytics", Path: "admin/request-analytics"},
		{Title: "data categories", Path: "analytics-categories"},
		{Title: "analytics types", Path: "analytics-types"},
		{Title: "companies", Path: "admin/companies"},
	},
	RoleBusiness: {
		{Title: "request analytics", Path: "business/request-analytics"},
		{Title: "users", Path: "business/user"},
	},
	RoleUser: {
		{Title: "request analytics", Path: "user/request-analytics"},
	},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := sectionsByRole[r]
	return ok
}

// Landing returns the section a freshly signed-in account lands on.
func (r Role) Landing() (string, error) {
	if r == "" {
		return "", fmt.Errorf("unable to determine user role")
	}
	sections, ok := sectionsByRole[r]
	if !ok {
		return "", fmt.Errorf("unknown role %q", string(r))
	}
	return sections[0].Path, nil
}

// Sections lists the navigation entries available to r. Unknown roles fall
// back to the plain user workspace.
func (r Role) Sections() []Section {
	sections, ok := sectionsByRole[r]
	if !ok {
		sections = sectionsByRole[RoleUser]
	}
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// SectionTitle returns the title of the section that owns path, or
// "Dashboard" when no section matches.
func (r Role) SectionTitle(path string) string {
	for _, s := range r.Sections() {
		if path == s.Path || strings.HasPrefix(path, s.Path+"/") {
			return s.Title
		}
	}
	return "Dashboard"
}
