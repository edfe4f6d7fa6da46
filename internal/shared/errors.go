package shared

import "errors"

var (
	// ErrNotFound indicates a referenced user, role, or permission does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName indicates a create or rename violates a uniqueness constraint.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrInvalidInput indicates malformed or out-of-range request values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthenticated indicates the caller's identity could not be verified or resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a verified identity lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrProtected indicates the operation would violate an entity-protection invariant.
	ErrProtected = errors.New("protected entity")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserSafeMessage returns a message safe to show to API clients. Store and
// infrastructure errors are reported opaquely.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "one or more referenced resources were not found"
	case errors.Is(err, ErrDuplicateName):
		return "a resource with that name already exists"
	case errors.Is(err, ErrInvalidInput):
		return "invalid input"
	case errors.Is(err, ErrUnauthenticated):
		return "authentication required"
	case errors.Is(err, ErrForbidden):
		return "you do not have permission to access this resource"
	case errors.Is(err, ErrProtected):
		return "the resource is protected and cannot be modified"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid username or password"
	default:
		return "an unexpected error occurred"
	}
}
