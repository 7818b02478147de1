// Package classpath assembles the ordered, deduplicated list of jars the
// runtime is started with.
package classpath

import (
	"fmt"
	"io"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

// Origin says which stage produced an entry.
type Origin int

const (
	Bootstrap Origin = iota
	Generic
	P2
)

func (o Origin) String() string {
	switch o {
	case Bootstrap:
		return "bootstrap"
	case Generic:
		return "generic"
	case P2:
		return "p2"
	}
	return fmt.Sprintf("Origin(%d)", int(o))
}

// Entry is one jar on the classpath. ID is the resolved identifier: the
// coordinate key for generic artifacts, the unit id for P2 downloads.
type Entry struct {
	ID      string
	Version string
	Path    string
	Origin  Origin
}

// Classpath is an assembled classpath. It holds no two entries with the
// same ID.
type Classpath struct {
	entries []Entry
}

// Assemble orders bootstrap entries first, then generic ones in resolution
// order, then P2 ones in request order. Entries are deduplicated by ID with
// the first occurrence winning; the same ID at two different versions is an
// ambiguous pin and fails with a ConfigError.
func Assemble(bootstrap, generic, p2 []Entry) (*Classpath, error) {
	cp := &Classpath{}
	index := map[string]int{}
	for _, group := range [][]Entry{bootstrap, generic, p2} {
		for _, e := range group {
			if i, dup := index[e.ID]; dup {
				prev := cp.entries[i]
				if !unit.SameVersion(prev.Version, e.Version) {
					return nil, equoerr.Configf(equoerr.StageAssemble, e.ID,
						"ambiguous version pin: %s (%s) and %s (%s)", prev.Version, prev.Origin, e.Version, e.Origin)
				}
				continue
			}
			index[e.ID] = len(cp.entries)
			cp.entries = append(cp.entries, e)
		}
	}
	return cp, nil
}

// Entries returns a copy of the entries in order.
func (c *Classpath) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Files returns the jar paths in order.
func (c *Classpath) Files() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Path
	}
	return out
}

// Len returns the number of entries.
func (c *Classpath) Len() int { return len(c.entries) }

// WriteNames writes one "id version" line per entry.
func (c *Classpath) WriteNames(w io.Writer) error {
	for _, e := range c.entries {
		if _, err := fmt.Fprintf(w, "%s %s\n", e.ID, e.Version); err != nil {
			return err
		}
	}
	return nil
}

// WritePaths writes one path per entry.
func (c *Classpath) WritePaths(w io.Writer) error {
	for _, e := range c.entries {
		if _, err := fmt.Fprintln(w, e.Path); err != nil {
			return err
		}
	}
	return nil
}
