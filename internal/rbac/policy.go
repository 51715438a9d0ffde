package rbac

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest indicates a contract violation by the caller, such
// as passing a resource to CREATE or omitting it for EDIT/DELETE/VIEW.
// It signals a programming error, not a user-facing denial.
var ErrInvalidRequest = errors.New("rbac: invalid request")

// Evaluate decides whether subject may perform action on resource.
//
// The rules are evaluated in order, first match wins:
//
//  1. ADMIN may do everything.
//  2. VIEW is allowed for any authenticated subject.
//  3. CREATE requires at least STUDENT.
//  4. EDIT is allowed for MODERATOR and above, or for the owner.
//  5. DELETE is allowed for the owner only. Moderators get no blanket
//     delete right; destructive action stays with owner-or-admin while
//     non-destructive edit is additionally delegated to moderators.
//
// A nil subject (anonymous caller) is always denied. CREATE must be
// called without a resource and every other action with one; violations
// return ErrInvalidRequest.
func Evaluate(subject *Subject, action Action, resource *Resource) (Decision, error) {
	if !action.Valid() {
		return Deny, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, string(action))
	}
	if action == ActionCreate {
		if resource != nil {
			return Deny, fmt.Errorf("%w: CREATE takes no resource", ErrInvalidRequest)
		}
	} else if resource == nil {
		return Deny, fmt.Errorf("%w: %s requires a resource", ErrInvalidRequest, action)
	}

	if subject == nil {
		return Deny, nil
	}

	if subject.HasAtLeast(RoleAdmin) {
		return Allow, nil
	}

	switch action {
	case ActionView:
		return Allow, nil
	case ActionCreate:
		if subject.HasAtLeast(RoleStudent) {
			return Allow, nil
		}
		return Deny, nil
	case ActionEdit:
		if subject.HasAtLeast(RoleModerator) {
			return Allow, nil
		}
		if subject.ID == resource.OwnerID {
			return Allow, nil
		}
		return Deny, nil
	case ActionDelete:
		if subject.ID == resource.OwnerID {
			return Allow, nil
		}
		return Deny, nil
	}
	return Deny, nil
}
