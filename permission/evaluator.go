package permission

import "strings"

// Wildcard is the super-admin grant: a permission list containing it
// matches every required permission.
const Wildcard = "*"

// adminRoles is the fixed set of roles that bypass permission checks when
// admin override is enabled.
var adminRoles = map[string]struct{}{
	"admin":        {},
	"super_admin":  {},
	"system_admin": {},
}

// HasPermission reports whether the granted permission list satisfies the
// required permission. The scan short-circuits on the first match.
func HasPermission(granted []string, required string) bool {
	if required == "" {
		return false
	}
	for _, g := range granted {
		if g == Wildcard || g == required {
			return true
		}
	}

	reqParts := strings.Split(required, ".")
	for _, g := range granted {
		if !strings.Contains(g, Wildcard) {
			continue
		}
		if matchSegments(strings.Split(g, "."), reqParts) {
			return true
		}
	}
	return false
}

// matchSegments requires equal segment counts; a wildcard segment never
// spans more than one position.
func matchSegments(pattern, required []string) bool {
	if len(pattern) != len(required) {
		return false
	}
	for i, seg := range pattern {
		if seg != Wildcard && seg != required[i] {
			return false
		}
	}
	return true
}

// IsAdmin reports whether any of the roles is in the fixed admin set.
func IsAdmin(roles []string) bool {
	for _, r := range roles {
		if _, ok := adminRoles[r]; ok {
			return true
		}
	}
	return false
}
