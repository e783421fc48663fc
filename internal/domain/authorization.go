package domain

// Action is a mutation on an owned resource.
type Action int

const (
	ActionEdit Action = iota
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Resource is anything written by a user.
type Resource interface {
	OwnerID() ID
}

// RequireRole is the authorization gate. It is a pure decision over an
// optional identity and the roles allowed on a route.
func RequireRole(identity *Identity, allowed RoleSet) error {
	if identity == nil {
		return ErrNotAuthenticated
	}

	if !allowed.Contains(identity.Role) {
		return NewForbiddenError(allowed)
	}

	return nil
}

// CanMutate is the ownership check. Only the author may edit; the author or an
// admin may delete.
func CanMutate(identity Identity, resource Resource, action Action) bool {
	isOwner := identity.ID != "" && identity.ID == resource.OwnerID()

	switch action {
	case ActionEdit:
		return isOwner
	case ActionDelete:
		return isOwner || identity.IsAdmin()
	default:
		return false
	}
}

// CanDeleteUser guards administrators against removing their own account.
func CanDeleteUser(identity Identity, target ID) error {
	if identity.ID == target {
		return ErrSelfDeletion
	}

	return nil
}
