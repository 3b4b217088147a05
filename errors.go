package adminauth

import "errors"

// Outcomes of the engine's operations. Callers classify with errors.Is.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountInactive    = errors.New("account disabled")
	// ErrAccountNotFound is only returned for operations on an account the
	// caller already authenticated as.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTokenInvalid covers every token verification failure.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrInternal replaces any collaborator failure. The cause is logged,
	// never returned.
	ErrInternal = errors.New("internal error")

	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidAccount    = errors.New("invalid account details")
	ErrPasswordPolicy    = errors.New("password does not meet policy")
	ErrPasswordReuse     = errors.New("new password must differ from current password")
	ErrEngineNotReady    = errors.New("engine not initialized")
	ErrMaintenanceActive = errors.New("maintenance loop already running")
)

// Configuration errors returned by Config.Validate and Builder.Build.
var (
	ErrMissingStore       = errors.New("account store required")
	ErrBuilderUsed        = errors.New("builder already used")
	ErrWeakSecret         = errors.New("jwt secrets must be at least 32 bytes")
	ErrSharedSecret       = errors.New("access and refresh secrets must differ")
	ErrInvalidTTL         = errors.New("access TTL must be positive and shorter than refresh TTL")
	ErrInvalidLockout     = errors.New("lockout attempts and duration must be positive")
	ErrInvalidBcryptCost  = errors.New("bcrypt cost must be between 12 and 31")
	ErrInvalidPasswordLen = errors.New("password length bounds are invalid")
	ErrInvalidInterval    = errors.New("background intervals must not be negative")
)

var publicErrors = []error{
	ErrInvalidCredentials,
	ErrAccountLocked,
	ErrAccountInactive,
	ErrAccountNotFound,
	ErrTokenInvalid,
	ErrEmailTaken,
	ErrInvalidAccount,
	ErrPasswordPolicy,
	ErrPasswordReuse,
}

// Message returns the caller-safe text for err. Anything outside the public
// taxonomy reads as "internal error".
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrInternal.Error()
}

func isPublic(err error) bool {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return true
		}
	}
	return errors.Is(err, ErrInternal) || errors.Is(err, ErrEngineNotReady)
}
