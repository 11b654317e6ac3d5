// Package versions implements the total order over component versions and
// the range predicates used when resolving a component by version.
//
// A version is carried as a plain string on the component. The empty string
// means "unversioned" and sorts below everything. Strings that parse as
// dotted numeric versions (an optional leading "v" is ignored) compare
// numerically. Strings that do not parse sort above all parseable versions
// and compare lexicographically among themselves.
package versions

import (
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Key is a comparable form of a component version string.
type Key struct {
	raw    string
	parsed *goversion.Version
}

// NewKey builds a Key from a raw version string. It never fails: an
// unparseable string is still a valid (lexicographically ordered) Key.
func NewKey(raw string) Key {
	k := Key{raw: raw}
	if raw == "" {
		return k
	}
	if v, err := goversion.NewVersion(strings.TrimPrefix(raw, "v")); err == nil {
		k.parsed = v
	}
	return k
}

// IsZero reports whether the Key represents an unversioned component.
func (k Key) IsZero() bool { return k.raw == "" }

// String returns the original version string.
func (k Key) String() string { return k.raw }

// rank orders the three classes: unversioned < parseable < unparseable.
func (k Key) rank() int {
	switch {
	case k.raw == "":
		return 0
	case k.parsed != nil:
		return 1
	default:
		return 2
	}
}

// Compare returns -1, 0 or 1 as a sorts before, equal to, or after b.
func Compare(a, b Key) int {
	if ra, rb := a.rank(), b.rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.rank() {
	case 0:
		return 0
	case 1:
		return a.parsed.Compare(b.parsed)
	default:
		return strings.Compare(a.raw, b.raw)
	}
}

// Highest returns the index of the highest version among raw version
// strings, or -1 for an empty slice.
func Highest(raws []string) int {
	best := -1
	var bestKey Key
	for i, r := range raws {
		k := NewKey(r)
		if best == -1 || Compare(k, bestKey) > 0 {
			best, bestKey = i, k
		}
	}
	return best
}

// Spec selects a subset of versions. A nil *Spec matches every version.
// Constraints are conjunctive. An unversioned component never satisfies a
// non-nil Spec unless MatchNone permits it; when it does, the unversioned
// component is admitted regardless of the bounds.
type Spec struct {
	Eq        string
	GTE       string
	LT        string
	MatchNone bool
}

// Exact returns a Spec matching only the given version string.
func Exact(v string) *Spec { return &Spec{Eq: v} }

// Matches reports whether the raw version satisfies the spec.
func (s *Spec) Matches(raw string) bool {
	if s == nil {
		return true
	}
	if raw == "" {
		return s.MatchNone
	}
	k := NewKey(raw)
	if s.Eq != "" && Compare(k, NewKey(s.Eq)) != 0 {
		return false
	}
	if s.GTE != "" && Compare(k, NewKey(s.GTE)) < 0 {
		return false
	}
	if s.LT != "" && Compare(k, NewKey(s.LT)) >= 0 {
		return false
	}
	return true
}
