package access

import (
	"errors"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
)

// Outcome is the terminal state of one gate evaluation.
type Outcome string

const (
	OutcomeAllowed               Outcome = "allowed"
	OutcomeDeniedUnauthenticated Outcome = "denied_unauthenticated"
	OutcomeDeniedUnauthorized    Outcome = "denied_unauthorized"
)

// Denial reasons. Every reason except ErrRoleMismatch sends the user to the login page.
var (
	ErrMissingCredential         = errors.New("missing session credential")
	ErrIdentityResolutionFailure = errors.New("identity resolution failed")
	ErrProfileLookupFailure      = errors.New("profile lookup failed")
	ErrRoleMismatch              = errors.New("role does not satisfy route policy")
)

// Decision is the gate's answer for a single request.
// Session is set whenever identity and role were resolved, including on public paths.
type Decision struct {
	Outcome  Outcome
	Redirect string
	Reason   error
	Session  *domainauth.SessionContext
}

// Proceed reports whether the request may continue to page rendering.
func (d Decision) Proceed() bool { return d.Outcome == OutcomeAllowed }

// Allow builds a proceed decision.
func Allow(session *domainauth.SessionContext) Decision {
	return Decision{Outcome: OutcomeAllowed, Session: session}
}

// RedirectToLogin builds an unauthenticated denial carrying reason.
func RedirectToLogin(reason error) Decision {
	return Decision{Outcome: OutcomeDeniedUnauthenticated, Redirect: LoginPath, Reason: reason}
}

// RedirectToUnauthorized builds a role-mismatch denial.
func RedirectToUnauthorized(session *domainauth.SessionContext) Decision {
	return Decision{
		Outcome:  OutcomeDeniedUnauthorized,
		Redirect: UnauthorizedPath,
		Reason:   ErrRoleMismatch,
		Session:  session,
	}
}

// ReasonLabel returns a short, stable label for logs and metrics.
func (d Decision) ReasonLabel() string {
	switch {
	case d.Reason == nil:
		return "none"
	case errors.Is(d.Reason, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(d.Reason, ErrIdentityResolutionFailure):
		return "identity_resolution"
	case errors.Is(d.Reason, ErrProfileLookupFailure):
		return "profile_lookup"
	case errors.Is(d.Reason, ErrRoleMismatch):
		return "role_mismatch"
	default:
		return "unexpected"
	}
}
