package domain

import "strings"

// Principal is an opaque, already-authenticated caller identity.
type Principal string

// AnonymousPrincipal is the textual form of the anonymous identity.
const AnonymousPrincipal Principal = "2vxsx-fae"

// IsAnonymous reports whether p carries no usable identity.
func (p Principal) IsAnonymous() bool {
	return p == AnonymousPrincipal || strings.TrimSpace(string(p)) == ""
}

// String returns the textual form of the principal.
func (p Principal) String() string {
	return string(p)
}

// ComparePrincipals orders principals lexicographically.
func ComparePrincipals(a, b Principal) int {
	return strings.Compare(string(a), string(b))
}
