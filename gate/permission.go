package gate

import "strings"

// Permission is a "resource:action" pair, e.g. "order:validate".
type Permission string

const (
	Wildcard             = "*"
	PermissionSuperAdmin = Permission("*:*")
)

func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits p into its resource type and action. A malformed permission yields empty strings.
func (p Permission) Parse() (string, Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok || res == "" || act == "" {
		return "", ""
	}
	return res, Action(act)
}

// Matches reports whether p grants requested. "*:*" grants everything and
// "order:*" grants every order action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	if res == "" {
		return false
	}
	reqRes, _ := requested.Parse()
	return res == reqRes && string(act) == Wildcard
}
