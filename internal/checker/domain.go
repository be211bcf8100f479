package checker

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// GroupMode selects how two domains are compared for trust-group membership.
type GroupMode string

const (
	// GroupModeSuffix treats domains as related when either is a plain string
	// suffix of the other. Not label-aware: "evil-example.com" ends with
	// "example.com" and is therefore related to it.
	GroupModeSuffix GroupMode = "suffix"
	// GroupModeRegistrable compares registrable domains (eTLD+1) and falls back
	// to the suffix rule when either side has none.
	GroupModeRegistrable GroupMode = "registrable"
)

// ParseGroupMode validates a group mode name. An empty name selects the suffix mode.
func ParseGroupMode(name string) (GroupMode, error) {
	switch GroupMode(strings.ToLower(strings.TrimSpace(name))) {
	case "", GroupModeSuffix:
		return GroupModeSuffix, nil
	case GroupModeRegistrable:
		return GroupModeRegistrable, nil
	}
	return "", fmt.Errorf("unknown group mode %q (want %q or %q)", name, GroupModeSuffix, GroupModeRegistrable)
}

// Relation reports whether two domains belong to the same trust group.
type Relation func(a, b string) bool

// RelationFor returns the relation implementing mode.
func RelationFor(mode GroupMode) Relation {
	if mode == GroupModeRegistrable {
		return SameRegistrableDomain
	}
	return SameGroup
}

// SameGroup reports whether a is a suffix of b or b is a suffix of a.
// The empty string is a suffix of everything, so an empty side always matches.
func SameGroup(a, b string) bool {
	return strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}

// SameRegistrableDomain reports whether a and b share a registrable domain.
// Hosts without one (IP literals, single labels, empty) use SameGroup.
func SameRegistrableDomain(a, b string) bool {
	ra, okA := registrableDomain(a)
	rb, okB := registrableDomain(b)
	if !okA || !okB {
		return SameGroup(a, b)
	}
	return ra == rb
}

// DomainOf extracts the lowercased host of rawURL. Malformed or scheme-less
// input yields "".
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// ASCIIHost returns the IDNA (punycode) form of host for DNS and TLS use.
// IP literals and hosts that fail conversion are returned unchanged.
func ASCIIHost(host string) string {
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == "" {
		return host
	}
	return ascii
}

func registrableDomain(host string) (string, bool) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}
	host = ASCIIHost(host)
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	return etld1, true
}
