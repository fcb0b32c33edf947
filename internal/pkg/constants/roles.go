package constants

const (
	Tenant = "TENANT"
	Owner  = "OWNER"
	Admin  = "ADMIN"

	// NoRole is reported for accounts that have not chosen a role yet.
	NoRole = "NONE"
)

// SelectableRoles are the roles a user may pick for themselves.
var SelectableRoles = []string{Tenant, Owner}

// IsSelectableRole returns true if role may be set through the role endpoint.
func IsSelectableRole(role string) bool {
	for _, r := range SelectableRoles {
		if r == role {
			return true
		}
	}
	return false
}
