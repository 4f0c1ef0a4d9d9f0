// Package access holds the route policy and the decision types produced by the access gate.
// It is pure: no I/O, no clocks, no shared mutable state.
package access

import (
	"errors"
	"strings"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
)

// Default redirect targets.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Rule protects every path under Prefix. An empty Role means any authenticated session.
type Rule struct {
	Prefix string
	Role   domainauth.Role
}

// Matches reports whether path is Prefix itself or lies below it on a segment boundary.
// "/admin" matches "/admin" and "/admin/users" but not "/administrator".
func (r Rule) Matches(path string) bool {
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	rest := path[len(r.Prefix):]
	return rest == "" || rest[0] == '/'
}

// Permits reports whether role satisfies the rule.
func (r Rule) Permits(role domainauth.Role) bool {
	return r.Role == "" || r.Role == role
}

// Policy is an ordered, immutable set of rules.
type Policy struct {
	rules []Rule
}

// NewPolicy validates and normalizes rules. Trailing slashes are dropped from prefixes.
func NewPolicy(rules ...Rule) (Policy, error) {
	out := make([]Rule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		prefix := strings.TrimRight(strings.TrimSpace(r.Prefix), "/")
		if prefix == "" || !strings.HasPrefix(prefix, "/") {
			return Policy{}, errors.New("route policy prefix must be an absolute path below /")
		}
		if _, dup := seen[prefix]; dup {
			return Policy{}, errors.New("route policy prefix declared twice: " + prefix)
		}
		seen[prefix] = struct{}{}
		out = append(out, Rule{Prefix: prefix, Role: r.Role})
	}
	return Policy{rules: out}, nil
}

// DefaultPolicy is the portal's deployment policy.
func DefaultPolicy() Policy {
	p, err := NewPolicy(
		Rule{Prefix: "/dashboard"},
		Rule{Prefix: "/profile"},
		Rule{Prefix: "/admin", Role: domainauth.RoleAdmin},
		Rule{Prefix: "/student", Role: domainauth.RoleStudent},
	)
	if err != nil {
		panic(err)
	}
	return p
}

// Match returns the most specific rule covering path.
func (p Policy) Match(path string) (Rule, bool) {
	var (
		best  Rule
		found bool
	)
	for _, r := range p.rules {
		if r.Matches(path) && len(r.Prefix) > len(best.Prefix) {
			best, found = r, true
		}
	}
	return best, found
}

// Protected reports whether path requires a session.
func (p Policy) Protected(path string) bool {
	_, ok := p.Match(path)
	return ok
}

// Rules returns a copy of the configured rules.
func (p Policy) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}
