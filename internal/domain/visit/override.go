package visit

// forceCapableRoles is the fixed privileged set allowed to bypass routing
// validation. Checked in one place; handlers never re-declare it.
var forceCapableRoles = map[string]bool{
	"admin":       true,
	"super_admin": true,
	"finance":     true,
}

// OverrideAuthority gates the force path of a routing request.
type OverrideAuthority struct{}

// CanForce reports whether any of the actor's roles carries the override
// capability.
func (OverrideAuthority) CanForce(roles []string) bool {
	for _, r := range roles {
		if forceCapableRoles[r] {
			return true
		}
	}
	return false
}
