// Package classify splits the units a query returned into those mirrored in
// a generic (Maven) repository and those only a P2 repository serves.
package classify

import (
	"fmt"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

// EngineVersion is the solstice release this engine bootstraps with.
const EngineVersion = "1.7.4"

// pinned are the runtime's own dependencies, in classpath order.
var pinned = []string{
	"org.eclipse.platform:org.eclipse.osgi:3.18.300",
	"org.osgi:org.osgi.service.component:1.5.1",
	"org.osgi:org.osgi.util.function:1.2.0",
	"org.osgi:org.osgi.util.promise:1.3.0",
	"org.slf4j:slf4j-api:1.7.36",
}

// atomos is added when the Atomos+Equinox backend replaces solstice's own
// OSGi runtime.
var atomos = []string{
	"org.apache.felix:org.apache.felix.atomos:1.0.0",
	"org.eclipse.platform:org.eclipse.equinox.common:3.17.0",
}

// Bootstrap returns the fixed, ordered coordinates the provisioned runtime
// needs to start.
func Bootstrap(engineVersion string, useAtomos bool) []unit.Coordinate {
	if engineVersion == "" {
		engineVersion = EngineVersion
	}
	out := []unit.Coordinate{{Group: "dev.equo.ide", Artifact: "solstice", Version: engineVersion}}
	for _, c := range pinned {
		out = append(out, unit.MustParseCoordinate(c))
	}
	if useAtomos {
		for _, c := range atomos {
			out = append(out, unit.MustParseCoordinate(c))
		}
	}
	return out
}

// Partition is the outcome of Classify. Every input unit lands in exactly
// one of Generic or P2Only.
type Partition struct {
	Bootstrap []unit.Coordinate
	Generic   []unit.Unit
	P2Only    []unit.Unit
}

// Coordinates returns the bootstrap set followed by the mirrored units, the
// order in which they are resolved.
func (p *Partition) Coordinates() []unit.Coordinate {
	out := append([]unit.Coordinate(nil), p.Bootstrap...)
	for _, u := range p.Generic {
		out = append(out, *u.Maven)
	}
	return out
}

// Classify partitions required, preserving input order within each side.
// A unit that has neither a Maven mapping nor a P2 artifact cannot be
// obtained at all.
func Classify(required []unit.Unit, bootstrap []unit.Coordinate) (*Partition, error) {
	p := &Partition{Bootstrap: append([]unit.Coordinate(nil), bootstrap...)}
	for _, u := range required {
		switch u.Kind() {
		case unit.GenericRepository:
			p.Generic = append(p.Generic, u)
		default:
			if u.Location == "" {
				return nil, equoerr.Resolution(equoerr.StageClassify, u.String(),
					fmt.Errorf("no maven coordinate and no p2 artifact"))
			}
			p.P2Only = append(p.P2Only, u)
		}
	}
	return p, nil
}
