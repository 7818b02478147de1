package unit

import (
	"fmt"
	"strings"

	version "github.com/hashicorp/go-version"
)

// Version is an OSGi version: up to three numeric segments followed by an
// optional free-form qualifier ("3.122.0.v20221123-2302").
type Version struct {
	numeric   *version.Version
	Qualifier string
}

// ParseVersion splits an OSGi version into its numeric part and qualifier.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty version")
	}
	parts := strings.SplitN(s, ".", 4)
	numeric := parts
	qualifier := ""
	if len(parts) == 4 {
		numeric, qualifier = parts[:3], parts[3]
	}
	v, err := version.NewVersion(strings.Join(numeric, "."))
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{numeric: v, Qualifier: qualifier}, nil
}

// Equal reports whether two versions denote the same build. "1.0" and
// "1.0.0" are equal; differing qualifiers are not.
func (v Version) Equal(o Version) bool {
	return v.numeric.Equal(o.numeric) && v.Qualifier == o.Qualifier
}

// Compare returns -1, 0 or 1. Qualifiers break ties lexically, as OSGi does.
func (v Version) Compare(o Version) int {
	if c := v.numeric.Compare(o.numeric); c != 0 {
		return c
	}
	return strings.Compare(v.Qualifier, o.Qualifier)
}

// SameVersion compares two version strings, falling back to literal
// comparison when either is not a valid OSGi version.
func SameVersion(a, b string) bool {
	if a == b {
		return true
	}
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)
	if errA != nil || errB != nil {
		return false
	}
	return va.Equal(vb)
}

// Requirement is an install directive: a unit id and an optional version
// constraint, written "id" or "id@constraint".
type Requirement struct {
	ID         string
	Constraint string
	parsed     version.Constraints
}

// ParseRequirement parses an install directive.
func ParseRequirement(s string) (Requirement, error) {
	s = strings.TrimSpace(s)
	id, constraint, hasConstraint := strings.Cut(s, "@")
	if id == "" {
		return Requirement{}, fmt.Errorf("invalid install %q: empty id", s)
	}
	r := Requirement{ID: id}
	if hasConstraint {
		c, err := version.NewConstraint(constraint)
		if err != nil {
			return Requirement{}, fmt.Errorf("invalid install %q: %w", s, err)
		}
		r.Constraint = constraint
		r.parsed = c
	}
	return r, nil
}

// Allows reports whether a unit version satisfies the requirement.
// Unparseable versions only satisfy an unconstrained requirement.
func (r Requirement) Allows(v string) bool {
	if r.parsed == nil {
		return true
	}
	pv, err := ParseVersion(v)
	if err != nil {
		return false
	}
	return r.parsed.Check(pv.numeric)
}

func (r Requirement) String() string {
	if r.Constraint == "" {
		return r.ID
	}
	return r.ID + "@" + r.Constraint
}
