// Package manifest reads and writes equo.yaml, the provisioning file that
// drives a launch, and applies it to a model builder.
package manifest

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/agustinschilling/equo-ide/internal/catalog"
	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/httpclient"
	"github.com/agustinschilling/equo-ide/internal/model"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

// FileName is the provisioning file looked up in the workspace.
const FileName = "equo.yaml"

//go:embed default.yaml
var embeddedManifest []byte

// LoadOptions controls where the manifest is loaded from.
// Zero value loads the embedded default only.
type LoadOptions struct {
	// RemoteURL, if set, is tried first. Falls back to LocalOverride or embedded.
	RemoteURL string
	// LocalOverride, if set, is tried after RemoteURL failure.
	LocalOverride string
	// Timeout for remote fetch. Default 5s.
	Timeout time.Duration
}

// Load returns the manifest using the fallback chain:
//
//	Remote URL → Local file → Embedded default
func Load(ctx context.Context, opts LoadOptions) (*Manifest, error) {
	if opts.RemoteURL != "" {
		m, err := loadRemote(ctx, opts.RemoteURL, opts.Timeout)
		if err == nil {
			return m, nil
		}
		// non-fatal: fall through to next source
	}

	if opts.LocalOverride != "" {
		data, readErr := os.ReadFile(opts.LocalOverride)
		if readErr == nil {
			// File exists: parse errors are always fatal.
			return Parse(data, opts.LocalOverride)
		}
		if !os.IsNotExist(readErr) {
			return nil, equoerr.Config(equoerr.StagePrepare, opts.LocalOverride, readErr)
		}
	}

	return Parse(embeddedManifest, "embedded")
}

// LoadDefault loads the embedded manifest with no remote/local overrides.
func LoadDefault() (*Manifest, error) {
	return Load(context.Background(), LoadOptions{})
}

func loadRemote(ctx context.Context, rawURL string, timeout time.Duration) (*Manifest, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpclient.New(timeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.StatusError{URL: rawURL, Status: resp.Status, Code: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return Parse(data, rawURL)
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
func Parse(data []byte, source string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, equoerr.Config(equoerr.StagePrepare, source, fmt.Errorf("parse manifest: %w", err))
	}
	m.Source = source
	if err := m.Validate(); err != nil {
		return nil, equoerr.Config(equoerr.StagePrepare, source, err)
	}
	return &m, nil
}

// Validate reports every problem in m at once.
func (m *Manifest) Validate() error {
	var result *multierror.Error
	known := catalog.Builtin()
	for _, name := range m.catalogNames() {
		if _, ok := known[name]; !ok {
			result = multierror.Append(result, fmt.Errorf("catalog: unknown entry %q (known: %v)", name, catalog.Names()))
		}
	}
	if m.CatalogMirror != "" && !absoluteURL(m.CatalogMirror) {
		result = multierror.Append(result, fmt.Errorf("catalogMirror: %q is not an absolute URL", m.CatalogMirror))
	}
	for _, r := range m.P2Repos {
		if !absoluteURL(r) {
			result = multierror.Append(result, fmt.Errorf("p2repos: %q is not an absolute URL", r))
		}
	}
	for _, r := range m.MavenRepos {
		if !absoluteURL(r) {
			result = multierror.Append(result, fmt.Errorf("mavenRepos: %q is not an absolute URL", r))
		}
	}
	for _, id := range m.Install {
		if _, err := unit.ParseRequirement(id); err != nil {
			result = multierror.Append(result, fmt.Errorf("install: %w", err))
		}
	}
	for i, f := range m.Filters {
		if _, _, err := f.PlatformState(); err != nil {
			result = multierror.Append(result, fmt.Errorf("filters[%d]: %w", i, err))
		}
	}
	if m.Welcome != nil && m.Welcome.URL == "" {
		result = multierror.Append(result, errors.New("welcome: url is required"))
	}
	return result.ErrorOrNil()
}

func (m *Manifest) catalogNames() []string {
	names := make([]string, 0, len(m.Catalog))
	for n := range m.Catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply feeds m into b. Catalog entries are selected in name order so the
// resulting repository order does not depend on map iteration.
func (m *Manifest) Apply(b *model.Builder) error {
	if m.CatalogMirror != "" {
		if err := b.CatalogMirror(m.CatalogMirror); err != nil {
			return err
		}
	}
	for _, name := range m.catalogNames() {
		if err := b.Catalog(name, m.Catalog[name]); err != nil {
			return err
		}
	}
	for _, r := range m.P2Repos {
		if err := b.P2Repo(r); err != nil {
			return err
		}
	}
	for _, id := range m.Install {
		if err := b.Install(id); err != nil {
			return err
		}
	}
	for i, f := range m.Filters {
		declared, p, err := f.PlatformState()
		if err != nil {
			return equoerr.Config(equoerr.StagePrepare, fmt.Sprintf("filters[%d]", i), err)
		}
		if declared {
			b.Filter().SetPlatform(p)
		}
		for _, id := range f.Exclude {
			b.Filter().Exclude(id)
		}
		for _, s := range f.ExcludePrefix {
			b.Filter().ExcludePrefix(s)
		}
		for _, s := range f.ExcludeSuffix {
			b.Filter().ExcludeSuffix(s)
		}
	}
	for sub, kv := range m.Workspace {
		fp := b.WorkspaceInit(sub)
		for k, v := range kv {
			fp.Prop(k, v)
		}
	}
	if err := b.SetUseAtomos(m.UseAtomos); err != nil {
		return err
	}
	if m.UseChromium {
		if err := b.UseChromium(); err != nil {
			return err
		}
	}
	if br := m.Branding; br != nil {
		b.Branding().Title(br.Title).Icon(br.Icon).Splash(br.Splash)
	}
	if m.Welcome != nil {
		w, err := b.Welcome()
		if err != nil {
			return err
		}
		w.OpenURL(m.Welcome.URL)
	}
	return nil
}

// Write saves m to path, creating the parent directory.
func Write(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
