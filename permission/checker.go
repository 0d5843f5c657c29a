package permission

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDenied is the sentinel wrapped by every checker failure.
var ErrDenied = errors.New("permission denied")

// Subject is a resolved user as the guards see it: role names plus the
// granted permission list supplied by claims or a permission store.
type Subject struct {
	Roles       []string
	Permissions []string
}

// Checker composes permission requirements in front of handlers. The zero
// value denies admin override; NewChecker enables it, which is the
// default gate behavior.
type Checker struct {
	AllowAdminOverride bool
}

// NewChecker returns a Checker with admin override enabled.
func NewChecker() Checker {
	return Checker{AllowAdminOverride: true}
}

// Require passes when the subject holds the permission, or is an admin
// and override is enabled.
func (c Checker) Require(sub Subject, required string) error {
	if c.AllowAdminOverride && IsAdmin(sub.Roles) {
		return nil
	}
	if HasPermission(sub.Permissions, required) {
		return nil
	}
	return fmt.Errorf("%w: missing %s", ErrDenied, required)
}

// RequireAny passes when the subject holds at least one of the listed
// permissions.
func (c Checker) RequireAny(sub Subject, required ...string) error {
	if len(required) == 0 {
		return nil
	}
	if c.AllowAdminOverride && IsAdmin(sub.Roles) {
		return nil
	}
	for _, perm := range required {
		if HasPermission(sub.Permissions, perm) {
			return nil
		}
	}
	return fmt.Errorf("%w: missing any of %s", ErrDenied, strings.Join(required, ", "))
}

// RequireAll passes only when the subject holds every listed permission.
func (c Checker) RequireAll(sub Subject, required ...string) error {
	if c.AllowAdminOverride && IsAdmin(sub.Roles) {
		return nil
	}
	var missing []string
	for _, perm := range required {
		if !HasPermission(sub.Permissions, perm) {
			missing = append(missing, perm)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrDenied, strings.Join(missing, ", "))
	}
	return nil
}
