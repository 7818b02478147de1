package manifest

import (
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"

	"github.com/agustinschilling/equo-ide/internal/unit"
)

// Manifest is the provisioning file, equo.yaml.
type Manifest struct {
	// Catalog maps catalog entry names to versions; "" means the default.
	Catalog map[string]string `yaml:"catalog,omitempty"`
	// CatalogMirror replaces https://download.eclipse.org/ in catalog
	// repositories.
	CatalogMirror string `yaml:"catalogMirror,omitempty"`

	P2Repos     []string                     `yaml:"p2repos,omitempty"`
	MavenRepos  []string                     `yaml:"mavenRepos,omitempty"`
	Install     []string                     `yaml:"install,omitempty"`
	Filters     []Filter                     `yaml:"filters,omitempty"`
	Workspace   map[string]map[string]string `yaml:"workspace,omitempty"`
	UseAtomos   bool                         `yaml:"useAtomos,omitempty"`
	UseChromium bool                         `yaml:"useChromium,omitempty"`
	Branding    *Branding                    `yaml:"branding,omitempty"`
	Welcome     *Welcome                     `yaml:"welcome,omitempty"`

	// Source records where the manifest was loaded from.
	Source string `yaml:"-"`
}

// Filter is one filter block. Platform is kept as a raw node because an
// explicit `platform: null` (keep every platform) differs from leaving the
// key out (use the running platform).
type Filter struct {
	Platform      yaml.Node `yaml:"platform,omitempty"`
	Exclude       []string  `yaml:"exclude,omitempty"`
	ExcludePrefix []string  `yaml:"excludePrefix,omitempty"`
	ExcludeSuffix []string  `yaml:"excludeSuffix,omitempty"`
}

// PlatformState reports whether the block declares a platform and, if so,
// which one. A declared nil platform means "all platforms".
func (f Filter) PlatformState() (declared bool, p *unit.Platform, err error) {
	switch {
	case f.Platform.Kind == 0:
		return false, nil, nil
	case f.Platform.Kind == yaml.ScalarNode && f.Platform.ShortTag() == "!!null":
		return true, nil, nil
	case f.Platform.Kind == yaml.MappingNode:
		var out unit.Platform
		if err := f.Platform.Decode(&out); err != nil {
			return false, nil, fmt.Errorf("platform: %w", err)
		}
		return true, &out, nil
	default:
		return false, nil, fmt.Errorf("line %d: platform must be a mapping of os/ws/arch or null", f.Platform.Line)
	}
}

// SetPlatform declares p on the block; nil encodes as `platform: null`.
func (f *Filter) SetPlatform(p *unit.Platform) error {
	if p == nil {
		f.Platform = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		return nil
	}
	return f.Platform.Encode(p)
}

// Branding configures the branding hook.
type Branding struct {
	Title  string `yaml:"title,omitempty"`
	Icon   string `yaml:"icon,omitempty"`
	Splash string `yaml:"splash,omitempty"`
}

// Welcome configures the welcome page hook.
type Welcome struct {
	URL string `yaml:"url"`
}

func absoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Scheme == "file")
}
