// Package maven resolves generic-repository units. Every dependency is
// requested sealed: all of its transitive dependencies are excluded, so a
// repository can never substitute a different version of an OSGi bundle.
package maven

import (
	"context"
	"strings"

	"github.com/agustinschilling/equo-ide/internal/unit"
)

// Exclusion removes transitive dependencies matching a pattern. "*" matches
// any value.
type Exclusion struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
}

// ExcludeAll excludes every transitive dependency.
var ExcludeAll = Exclusion{Group: "*", Artifact: "*", Version: "*", Classifier: "*"}

func (e Exclusion) String() string {
	return strings.Join([]string{e.Group, e.Artifact, e.Version, e.Classifier}, ":")
}

// Dependency is one requested coordinate and the transitives it excludes.
type Dependency struct {
	Coordinate unit.Coordinate
	Exclusions []Exclusion
}

// Sealed returns c with every transitive dependency excluded.
func Sealed(c unit.Coordinate) Dependency {
	return Dependency{Coordinate: c, Exclusions: []Exclusion{ExcludeAll}}
}

// IsSealed reports whether d excludes all of its transitives.
func (d Dependency) IsSealed() bool {
	for _, e := range d.Exclusions {
		if e == ExcludeAll {
			return true
		}
	}
	return false
}

// Request is a resolution of Dependencies against Repositories, tried in
// order.
type Request struct {
	Dependencies []Dependency
	Repositories []string
}

// NewSealedRequest seals every coordinate.
func NewSealedRequest(coords []unit.Coordinate, repos []string) Request {
	deps := make([]Dependency, len(coords))
	for i, c := range coords {
		deps[i] = Sealed(c)
	}
	return Request{Dependencies: deps, Repositories: repos}
}

// Artifact is a resolved file.
type Artifact struct {
	Coordinate unit.Coordinate
	Path       string
	Repository string
}

// Edge records how an artifact entered the resolution: its owner and the
// exclusions it was requested with.
type Edge struct {
	Owner      unit.Coordinate
	Exclusions []Exclusion
}

// Result lists artifacts in resolution order and one Edge per artifact.
type Result struct {
	Artifacts []Artifact
	Edges     []Edge
}

// Edge returns the edge recorded for the coordinate key.
func (r *Result) Edge(key string) (Edge, bool) {
	for _, e := range r.Edges {
		if e.Owner.Key() == key {
			return e, true
		}
	}
	return Edge{}, false
}

// Resolver resolves a Request.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Result, error)
}

// Central is the default generic repository.
const Central = "https://repo.maven.apache.org/maven2/"

// LayoutPath is the standard repository path of c's jar.
func LayoutPath(c unit.Coordinate) string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return strings.Join([]string{
		strings.ReplaceAll(c.Group, ".", "/"), c.Artifact, c.Version, name + ".jar",
	}, "/")
}
