package model

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/agustinschilling/equo-ide/internal/catalog"
	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/filter"
	"github.com/agustinschilling/equo-ide/internal/hook"
	"github.com/agustinschilling/equo-ide/internal/unit"
	"github.com/agustinschilling/equo-ide/internal/workspace"
)

// result is what a Builder remembers after its one and only preparation.
type result struct {
	model *Model
	err   error
}

// Builder collects directives until Prepare is called. The guard moves one
// way, from unbuilt (built == nil) to built.
type Builder struct {
	mu    sync.Mutex
	built *result

	catalog *catalog.Catalog
	filter  *filter.Filter
	hooks   *hook.Registry
	wsInit  *workspace.Init

	installs  []unit.Requirement
	repos     []string
	useAtomos bool

	branding *hook.Branding
	welcome  *hook.Welcome
}

// NewBuilder returns an empty builder. The branding hook is always
// registered first.
func NewBuilder() *Builder {
	b := &Builder{
		catalog:  catalog.New(),
		filter:   filter.New(),
		hooks:    hook.NewRegistry(),
		wsInit:   workspace.NewInit(),
		branding: &hook.Branding{},
	}
	_ = b.hooks.Add(b.branding)
	return b
}

func (b *Builder) checkOpen(subject string) error {
	if b.built != nil {
		return equoerr.Configf(equoerr.StagePrepare, subject, "model already prepared")
	}
	return nil
}

// Install adds a required unit, written "id" or "id@constraint".
func (b *Builder) Install(directive string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(directive); err != nil {
		return err
	}
	return addInstall(&b.installs, directive)
}

// P2Repo adds a P2 repository source.
func (b *Builder) P2Repo(repo string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(repo); err != nil {
		return err
	}
	return addRepository(&b.repos, repo)
}

// Catalog selects a well-known offering at a version ("" for its default).
func (b *Builder) Catalog(name, version string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(name); err != nil {
		return err
	}
	return b.catalog.Use(name, version)
}

// CatalogMirror serves the catalog's repositories from base instead of
// catalog.Downloads.
func (b *Builder) CatalogMirror(base string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(base); err != nil {
		return err
	}
	var checked []string
	if err := addRepository(&checked, base); err != nil {
		return err
	}
	b.catalog.SetMirror(base)
	return nil
}

// Filter returns the filter to configure. Changes made after Prepare have
// no effect on the prepared Model.
func (b *Builder) Filter() *filter.Filter { return b.filter }

// Hooks returns the registry, which collaborators may extend before Prepare.
func (b *Builder) Hooks() *hook.Registry { return b.hooks }

// Branding returns the branding hook.
func (b *Builder) Branding() *hook.Branding { return b.branding }

// Welcome returns the welcome hook, registering it on first use.
func (b *Builder) Welcome() (*hook.Welcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.welcome == nil {
		w := &hook.Welcome{}
		if err := b.hooks.Add(w); err != nil {
			return nil, err
		}
		b.welcome = w
	}
	return b.welcome, nil
}

// UseChromium registers the embedded browser hook.
func (b *Builder) UseChromium() error {
	return b.hooks.Add(hook.EmbeddedBrowser{})
}

// SetUseAtomos selects the Atomos+Equinox backend.
func (b *Builder) SetUseAtomos(v bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen("useAtomos"); err != nil {
		return err
	}
	b.useAtomos = v
	return nil
}

// WorkspaceInit selects a workspace file to set properties in.
func (b *Builder) WorkspaceInit(subpath string) *workspace.FileProps {
	return b.wsInit.File(subpath)
}

// Prepare builds the Model. Only the first call does any work; every later
// call returns the same Model (or the same error) without re-applying
// filters, the catalog or hooks. extra may be nil.
func (b *Builder) Prepare(extra *workspace.Init) (*Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built == nil {
		m, err := b.build(extra)
		b.built = &result{model: m, err: err}
	}
	return b.built.model, b.built.err
}

// Prepared reports whether Prepare has run.
func (b *Builder) Prepared() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.built != nil
}

func (b *Builder) build(extra *workspace.Init) (*Model, error) {
	if err := b.filter.Validate(); err != nil {
		return nil, err
	}

	wi := workspace.NewInit()
	wi.Merge(extra)
	d := &draft{
		installs: append([]unit.Requirement(nil), b.installs...),
		repos:    append([]string(nil), b.repos...),
		wsInit:   wi,
		sysProps: map[string]string{},
	}

	if err := b.catalog.PutInto(d, wi); err != nil {
		return nil, asConfig(err, "catalog")
	}
	// Explicit workspaceInit directives win over catalog defaults.
	wi.Merge(b.wsInit)

	if err := b.hooks.ApplyOnce(d); err != nil {
		return nil, asConfig(err, "hooks")
	}
	b.hooks.Freeze()

	f := b.filter.Clone()
	f.ApplyNativeIfUnset()

	return &Model{
		installs:   d.installs,
		repos:      d.repos,
		filter:     f,
		props:      wi.Props(),
		sysProps:   d.sysProps,
		hooks:      b.hooks,
		selections: b.catalog.Selected(),
		useAtomos:  b.useAtomos,
	}, nil
}

func asConfig(err error, subject string) error {
	if equoerr.KindOf(err) != nil {
		return err
	}
	return equoerr.Config(equoerr.StagePrepare, subject, err)
}

// draft is the mutable model handed to the catalog and to hooks.
type draft struct {
	installs []unit.Requirement
	repos    []string
	wsInit   *workspace.Init
	sysProps map[string]string
}

func (d *draft) AddInstall(id string) error { return addInstall(&d.installs, id) }

func (d *draft) AddRepository(repo string) error { return addRepository(&d.repos, repo) }

func (d *draft) SetProperty(subpath, key, value string) { d.wsInit.Set(subpath, key, value) }

func (d *draft) SetSystemProperty(key, value string) { d.sysProps[key] = value }

func addInstall(installs *[]unit.Requirement, directive string) error {
	r, err := unit.ParseRequirement(directive)
	if err != nil {
		return equoerr.Config(equoerr.StagePrepare, directive, err)
	}
	for _, existing := range *installs {
		if existing.String() == r.String() {
			return nil
		}
	}
	*installs = append(*installs, r)
	return nil
}

func addRepository(repos *[]string, repo string) error {
	u, err := url.Parse(repo)
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Scheme != "file") {
		return equoerr.Config(equoerr.StagePrepare, repo, fmt.Errorf("not an absolute repository URL"))
	}
	for _, existing := range *repos {
		if existing == repo {
			return nil
		}
	}
	*repos = append(*repos, repo)
	return nil
}
