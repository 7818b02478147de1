// Package filter decides which units are kept when a provisioning model is
// queried: a platform constraint plus exact, prefix and suffix exclusions.
package filter

import (
	"runtime"
	"sort"
	"strings"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

type platformMode int

const (
	platformUnset platformMode = iota
	platformAny
	platformFixed
)

// Filter accumulates exclusion rules and at most one platform constraint.
// Exclusions are sets, so the order rules are added in never matters.
type Filter struct {
	mode      platformMode
	platform  unit.Platform
	conflicts []string

	exclude  map[string]struct{}
	prefixes map[string]struct{}
	suffixes map[string]struct{}
}

// New returns an empty filter with no platform set.
func New() *Filter {
	return &Filter{
		exclude:  map[string]struct{}{},
		prefixes: map[string]struct{}{},
		suffixes: map[string]struct{}{},
	}
}

// SetPlatform constrains units to p. A nil p clears the constraint so units
// for every platform are kept. Declaring two different platforms is recorded
// and reported by Validate.
func (f *Filter) SetPlatform(p *unit.Platform) {
	mode, value := platformAny, unit.Platform{}
	if p != nil {
		mode, value = platformFixed, *p
	}
	if f.mode != platformUnset && (f.mode != mode || f.platform != value) {
		f.conflicts = append(f.conflicts, describe(f.mode, f.platform)+" vs "+describe(mode, value))
	}
	f.mode, f.platform = mode, value
}

func describe(mode platformMode, p unit.Platform) string {
	if mode == platformAny {
		return "null"
	}
	return p.String()
}

// Exclude drops the unit with exactly this id.
func (f *Filter) Exclude(id string) { f.exclude[id] = struct{}{} }

// ExcludePrefix drops every unit whose id starts with prefix.
func (f *Filter) ExcludePrefix(prefix string) { f.prefixes[prefix] = struct{}{} }

// ExcludeSuffix drops every unit whose id ends with suffix.
func (f *Filter) ExcludeSuffix(suffix string) { f.suffixes[suffix] = struct{}{} }

// HasPlatform reports whether a platform was declared, including null.
func (f *Filter) HasPlatform() bool { return f.mode != platformUnset }

// Platform returns the active constraint, or nil when every platform is kept.
func (f *Filter) Platform() *unit.Platform {
	if f.mode != platformFixed {
		return nil
	}
	p := f.platform
	return &p
}

// ApplyNativeIfUnset constrains to the running platform when nothing was
// declared. An explicit null is left alone.
func (f *Filter) ApplyNativeIfUnset() {
	if f.mode == platformUnset {
		f.mode, f.platform = platformFixed, Native()
	}
}

// Validate reports conflicting platform declarations.
func (f *Filter) Validate() error {
	if len(f.conflicts) == 0 {
		return nil
	}
	return equoerr.Configf(equoerr.StagePrepare, "filter.platform",
		"conflicting platform filters: %s", strings.Join(f.conflicts, "; "))
}

// Excludes reports whether id is removed by an exclusion rule.
func (f *Filter) Excludes(id string) bool {
	if _, ok := f.exclude[id]; ok {
		return true
	}
	for p := range f.prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	for s := range f.suffixes {
		if strings.HasSuffix(id, s) {
			return true
		}
	}
	return false
}

// Accepts reports whether u survives both the exclusions and the platform.
func (f *Filter) Accepts(u unit.Unit) bool {
	if f.Excludes(u.ID) {
		return false
	}
	if f.mode == platformFixed && u.Platform != nil {
		return u.Platform.Matches(f.platform)
	}
	return true
}

// Apply returns the accepted units, preserving input order.
func (f *Filter) Apply(units []unit.Unit) []unit.Unit {
	out := make([]unit.Unit, 0, len(units))
	for _, u := range units {
		if f.Accepts(u) {
			out = append(out, u)
		}
	}
	return out
}

// Clone returns an independent copy.
func (f *Filter) Clone() *Filter {
	c := New()
	c.mode, c.platform = f.mode, f.platform
	c.conflicts = append([]string(nil), f.conflicts...)
	for k := range f.exclude {
		c.exclude[k] = struct{}{}
	}
	for k := range f.prefixes {
		c.prefixes[k] = struct{}{}
	}
	for k := range f.suffixes {
		c.suffixes[k] = struct{}{}
	}
	return c
}

// Rules lists the exclusion rules in a stable order, for reports.
func (f *Filter) Rules() (exclude, prefixes, suffixes []string) {
	return sortedKeys(f.exclude), sortedKeys(f.prefixes), sortedKeys(f.suffixes)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Native returns the Eclipse os/ws/arch triple of the running process.
func Native() unit.Platform {
	return platformFor(runtime.GOOS, runtime.GOARCH)
}

func platformFor(goos, goarch string) unit.Platform {
	var p unit.Platform
	switch goos {
	case "darwin":
		p.OS, p.WS = "macosx", "cocoa"
	case "windows":
		p.OS, p.WS = "win32", "win32"
	default:
		p.OS, p.WS = goos, "gtk"
	}
	switch goarch {
	case "amd64":
		p.Arch = "x86_64"
	case "arm64":
		p.Arch = "aarch64"
	case "ppc64le":
		p.Arch = "ppc64le"
	default:
		p.Arch = goarch
	}
	return p
}
