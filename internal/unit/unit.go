// Package unit describes the installable artifacts the provisioning engine
// works with: P2 units (bundles, features, categories) and the Maven
// coordinates some of them are mirrored under.
package unit

import (
	"fmt"
	"strings"
)

// Type is the P2 flavour of a unit.
type Type string

const (
	TypeBundle   Type = "bundle"
	TypeFeature  Type = "feature"
	TypeCategory Type = "category"
)

// Kind tells where a unit's jar can be obtained from.
type Kind int

const (
	// GenericRepository units are mirrored under a Maven coordinate.
	GenericRepository Kind = iota
	// P2Only units must be downloaded from their P2 repository.
	P2Only
)

func (k Kind) String() string {
	switch k {
	case GenericRepository:
		return "generic"
	case P2Only:
		return "p2"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Platform is an Eclipse os/ws/arch triple. Empty fields match anything.
type Platform struct {
	OS   string `yaml:"os,omitempty" json:"os,omitempty"`
	WS   string `yaml:"ws,omitempty" json:"ws,omitempty"`
	Arch string `yaml:"arch,omitempty" json:"arch,omitempty"`
}

func (p Platform) String() string {
	return strings.Join([]string{orAny(p.OS), orAny(p.WS), orAny(p.Arch)}, ".")
}

// Matches reports whether a unit constrained to p can run on target.
func (p Platform) Matches(target Platform) bool {
	return fieldMatches(p.OS, target.OS) &&
		fieldMatches(p.WS, target.WS) &&
		fieldMatches(p.Arch, target.Arch)
}

func fieldMatches(constraint, target string) bool {
	return constraint == "" || target == "" || constraint == target
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// Unit is a single installable artifact.
type Unit struct {
	ID         string      `yaml:"id"`
	Version    string      `yaml:"version"`
	Type       Type        `yaml:"type"`
	Maven      *Coordinate `yaml:"maven,omitempty"`
	Location   string      `yaml:"artifact,omitempty"`
	Checksum   string      `yaml:"sha256,omitempty"`
	Requires   []string    `yaml:"requires,omitempty"`
	Platform   *Platform   `yaml:"platform,omitempty"`
	Repository string      `yaml:"-"`
}

// Kind classifies u by whether a Maven mapping exists for it.
func (u Unit) Kind() Kind {
	if u.Maven != nil {
		return GenericRepository
	}
	return P2Only
}

// IsJar reports whether the unit contributes a file to the classpath.
// Features and categories only group other units.
func (u Unit) IsJar() bool {
	return u.Type == "" || u.Type == TypeBundle
}

func (u Unit) String() string {
	if u.Version == "" {
		return u.ID
	}
	return u.ID + ":" + u.Version
}
