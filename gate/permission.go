package gate

import "strings"

// Permission is an allowed action on a resource type, written
// "resource:action" (e.g. "patient:view", "analysis:annotate").
type Permission string

// NewPermission builds a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

const (
	// WildcardAll matches any action of a resource type.
	WildcardAll = "*"
	// PermissionAll matches everything; reserved for administrative subjects.
	PermissionAll Permission = "*:*"
)

// Matches reports whether this permission covers the requested one.
// "*:*" covers all, "patient:*" covers every patient action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionAll {
		return true
	}
	if p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res == reqRes && string(act) == WildcardAll
}
