// Package model builds the provisioning model: the single, immutable
// description of what a launch installs. A Builder collects install
// directives, repositories, filters, workspace overrides and hooks; Prepare
// turns them into a Model exactly once.
package model

import (
	"sort"

	"github.com/agustinschilling/equo-ide/internal/catalog"
	"github.com/agustinschilling/equo-ide/internal/filter"
	"github.com/agustinschilling/equo-ide/internal/hook"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

// Model is the prepared provisioning model. It is never mutated after
// Prepare returns; accessors hand out copies.
type Model struct {
	installs   []unit.Requirement
	repos      []string
	filter     *filter.Filter
	props      map[string]map[string]string
	sysProps   map[string]string
	hooks      *hook.Registry
	selections []catalog.Selection
	useAtomos  bool
}

// Installs returns the install directives in declaration order.
func (m *Model) Installs() []unit.Requirement {
	return append([]unit.Requirement(nil), m.installs...)
}

// InstallIDs returns the declared install directives as strings.
func (m *Model) InstallIDs() []string {
	out := make([]string, len(m.installs))
	for i, r := range m.installs {
		out[i] = r.String()
	}
	return out
}

// Repositories returns the P2 repositories in declaration order.
func (m *Model) Repositories() []string {
	return append([]string(nil), m.repos...)
}

// Filter returns a copy of the frozen filter.
func (m *Model) Filter() *filter.Filter {
	return m.filter.Clone()
}

// WorkspaceProps returns subpath -> key -> value overrides.
func (m *Model) WorkspaceProps() map[string]map[string]string {
	out := make(map[string]map[string]string, len(m.props))
	for sub, kv := range m.props {
		cp := make(map[string]string, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		out[sub] = cp
	}
	return out
}

// SystemProps returns the system properties contributed by hooks.
func (m *Model) SystemProps() map[string]string {
	out := make(map[string]string, len(m.sysProps))
	for k, v := range m.sysProps {
		out[k] = v
	}
	return out
}

// SystemPropKeys returns the system property keys in sorted order.
func (m *Model) SystemPropKeys() []string {
	keys := make([]string, 0, len(m.sysProps))
	for k := range m.sysProps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Hooks returns the frozen hook registry.
func (m *Model) Hooks() *hook.Registry { return m.hooks }

// Catalog returns the catalog entries the model was built from.
func (m *Model) Catalog() []catalog.Selection {
	return append([]catalog.Selection(nil), m.selections...)
}

// UseAtomos reports whether the Atomos+Equinox backend is selected.
func (m *Model) UseAtomos() bool { return m.useAtomos }
