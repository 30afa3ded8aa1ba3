package orbit

// ErrorKind is the closed set of expected failure modes. Anything the
// taxonomy does not anticipate (transport errors, malformed LMS json)
// is returned as a plain error instead and aborts the operation.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	// the portal login page did not answer with 200
	ErrPortalDown
	// the LMS handoff or dashboard did not answer as expected
	ErrLMSDown
	// the portal silently re-rendered the login form
	ErrWrongCredentials
	// an expected pattern was absent, the upstream page shape changed
	ErrScrapeMismatch
	// the account is blocked until its password is changed out-of-band
	ErrMustChangePassword
	// the new password equals the old one
	ErrPasswordUnchanged
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrPortalDown:
		return "portal down"
	case ErrLMSDown:
		return "lms down"
	case ErrWrongCredentials:
		return "wrong credentials"
	case ErrScrapeMismatch:
		return "scrape mismatch"
	case ErrMustChangePassword:
		return "must change password"
	case ErrPasswordUnchanged:
		return "password unchanged"
	}
	return "unknown"
}

type WarningKind int

const (
	// login succeeded but the portal asked for a password change
	WarnShouldChangePassword WarningKind = iota
)

func (k WarningKind) String() string {
	switch k {
	case WarnShouldChangePassword:
		return "should change password"
	}
	return "unknown"
}

// Result is the envelope every public operation returns. When Error is
// set, Value is the zero value; Warnings may be non-empty either way,
// upstream warnings always precede operation-local ones.
type Result[T any] struct {
	Value    T
	Warnings []WarningKind
	Error    ErrorKind
}

func (r Result[T]) Ok() bool {
	return r.Error == ErrNone
}

func success[T any](value T, warnings []WarningKind) Result[T] {
	return Result[T]{Value: value, Warnings: warnings}
}

func failure[T any](warnings []WarningKind, kind ErrorKind) Result[T] {
	return Result[T]{Warnings: warnings, Error: kind}
}
