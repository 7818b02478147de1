// Package catalog knows the well-known P2 offerings (the Eclipse platform,
// JDT, PDE, m2e, Buildship) so a provisioning file can ask for "jdt 4.26"
// instead of spelling out repositories and unit ids.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/hook"
	"github.com/agustinschilling/equo-ide/internal/workspace"
)

// Entry describes one catalog offering.
type Entry struct {
	Name           string
	DefaultVersion string
	// RepoFormat is a fmt template receiving the version.
	RepoFormat string
	Installs   []string
	// Requires names entries that are pulled in alongside this one.
	Requires []string
	// Workspace holds property overrides: subpath -> key -> value.
	Workspace map[string]map[string]string
}

// Downloads is the base every builtin repository lives under. A mirror
// replaces it.
const Downloads = "https://download.eclipse.org/"

const uiPrefs = "instance/.metadata/.plugins/org.eclipse.core.runtime/.settings/org.eclipse.ui.ide.prefs"

// Builtin returns the known entries keyed by name.
func Builtin() map[string]Entry {
	return map[string]Entry{
		"platform": {
			Name:           "platform",
			DefaultVersion: "4.26",
			RepoFormat:     Downloads + "eclipse/updates/%s/",
			Installs:       []string{"org.eclipse.platform.ide.categoryIU"},
			Workspace: map[string]map[string]string{
				uiPrefs: {"EXIT_PROMPT_ON_CLOSE_LAST_WINDOW": "false"},
			},
		},
		"jdt": {
			Name:           "jdt",
			DefaultVersion: "4.26",
			RepoFormat:     Downloads + "eclipse/updates/%s/",
			Installs:       []string{"org.eclipse.releng.java.languages.categoryIU"},
			Requires:       []string{"platform"},
		},
		"pde": {
			Name:           "pde",
			DefaultVersion: "4.26",
			RepoFormat:     Downloads + "eclipse/updates/%s/",
			Installs:       []string{"org.eclipse.releng.pde.categoryIU"},
			Requires:       []string{"platform", "jdt"},
		},
		"m2e": {
			Name:           "m2e",
			DefaultVersion: "2.1.2",
			RepoFormat:     Downloads + "technology/m2e/releases/%s/",
			Installs:       []string{"org.eclipse.m2e.feature.feature.group"},
			Requires:       []string{"jdt"},
		},
		"buildship": {
			Name:           "buildship",
			DefaultVersion: "3.1.6",
			RepoFormat:     Downloads + "buildship/updates/e423/releases/3.x/%s/",
			Installs:       []string{"org.eclipse.buildship.feature.group"},
			Requires:       []string{"jdt"},
		},
	}
}

// Names lists the builtin entries in sorted order.
func Names() []string {
	var names []string
	for n := range Builtin() {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Catalog records which entries a model uses and at which version.
type Catalog struct {
	known    map[string]Entry
	versions map[string]string
	order    []string
	mirror   string
}

// New returns a catalog over the builtin entries.
func New() *Catalog {
	return &Catalog{known: Builtin(), versions: map[string]string{}}
}

// Use selects an entry. An empty version means the entry's default.
// Selecting the same entry at two different versions is a conflict.
func (c *Catalog) Use(name, version string) error {
	e, ok := c.known[name]
	if !ok {
		return equoerr.Configf(equoerr.StagePrepare, name, "unknown catalog entry (known: %v)", Names())
	}
	if version == "" {
		version = e.DefaultVersion
	}
	if prev, ok := c.versions[name]; ok {
		if prev != version {
			return equoerr.Configf(equoerr.StagePrepare, name, "catalog entry requested at %s and %s", prev, version)
		}
		return nil
	}
	c.versions[name] = version
	c.order = append(c.order, name)
	return nil
}

// SetMirror serves the builtin repositories from base instead of
// Downloads. The mirror must keep the same paths.
func (c *Catalog) SetMirror(base string) {
	c.mirror = base
}

// RepoURL is the repository of e at version, taking the mirror into account.
func (c *Catalog) RepoURL(e Entry, version string) string {
	u := fmt.Sprintf(e.RepoFormat, version)
	if c.mirror != "" && strings.HasPrefix(u, Downloads) {
		u = strings.TrimSuffix(c.mirror, "/") + "/" + strings.TrimPrefix(u, Downloads)
	}
	return u
}

// Selected returns the chosen entries and versions in selection order.
func (c *Catalog) Selected() []Selection {
	out := make([]Selection, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, Selection{Name: n, Version: c.versions[n]})
	}
	return out
}

// Selection is one chosen entry.
type Selection struct {
	Name    string
	Version string
}

// PutInto adds the repositories, installs and workspace properties of every
// selected entry, and of the entries they require, into the model draft.
// A required entry that was not selected explicitly inherits the version of
// the entry that requires it when both share a repository template, and its
// own default otherwise.
func (c *Catalog) PutInto(t hook.Target, wi *workspace.Init) error {
	resolved, err := c.expand()
	if err != nil {
		return err
	}
	for _, sel := range resolved {
		e := c.known[sel.Name]
		if err := t.AddRepository(c.RepoURL(e, sel.Version)); err != nil {
			return err
		}
		for _, id := range e.Installs {
			if err := t.AddInstall(id); err != nil {
				return err
			}
		}
		for sub, kv := range e.Workspace {
			for k, v := range kv {
				wi.Set(sub, k, v)
			}
		}
	}
	return nil
}

// expand walks Requires depth-first so required entries come first.
func (c *Catalog) expand() ([]Selection, error) {
	versions := make(map[string]string, len(c.versions))
	for k, v := range c.versions {
		versions[k] = v
	}
	var out []Selection
	visited := map[string]bool{}
	var visit func(name, inherited string) error
	visit = func(name, inherited string) error {
		e, ok := c.known[name]
		if !ok {
			return equoerr.Configf(equoerr.StagePrepare, name, "unknown catalog entry")
		}
		if visited[name] {
			return nil
		}
		visited[name] = true
		version, explicit := versions[name]
		if !explicit {
			version = e.DefaultVersion
			if inherited != "" {
				version = inherited
			}
			versions[name] = version
		}
		for _, req := range e.Requires {
			inherit := ""
			if c.known[req].RepoFormat == e.RepoFormat {
				inherit = version
			}
			if err := visit(req, inherit); err != nil {
				return err
			}
		}
		out = append(out, Selection{Name: name, Version: version})
		return nil
	}
	for _, name := range c.order {
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	return out, nil
}
