package manifest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/model"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ── Load ─────────────────────────────────────────────────────────────────────

// TestLoadDefault verifies that the embedded manifest parses successfully
// and selects at least one catalog entry.
func TestLoadDefault(t *testing.T) {
	m, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	if len(m.Catalog) == 0 {
		t.Error("manifest.Catalog is empty, at least one entry expected")
	}
	if m.Source != "embedded" {
		t.Errorf("Source = %q, want embedded", m.Source)
	}
	if m.Branding == nil || m.Branding.Title == "" {
		t.Error("embedded manifest has no branding title")
	}
}

// TestLoadLocalOverride verifies that a local file is used when provided.
func TestLoadLocalOverride(t *testing.T) {
	path := writeFile(t, FileName, "install:\n  - org.example.tool\n")

	m, err := Load(context.Background(), LoadOptions{LocalOverride: path})
	if err != nil {
		t.Fatalf("Load(LocalOverride) error = %v", err)
	}
	if diff := cmp.Diff([]string{"org.example.tool"}, m.Install); diff != "" {
		t.Errorf("Install mismatch (-want +got):\n%s", diff)
	}
	if m.Source != path {
		t.Errorf("Source = %q, want %q", m.Source, path)
	}
}

// TestLoadMissingLocalFallsBack verifies an absent local file is not an
// error.
func TestLoadMissingLocalFallsBack(t *testing.T) {
	m, err := Load(context.Background(), LoadOptions{LocalOverride: filepath.Join(t.TempDir(), FileName)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Source != "embedded" {
		t.Errorf("Source = %q, want embedded", m.Source)
	}
}

// TestLoadRemoteOK verifies that a valid remote manifest is used when reachable.
func TestLoadRemoteOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte("p2repos:\n  - https://example.com/p2/\n"))
	}))
	defer srv.Close()

	m, err := Load(context.Background(), LoadOptions{RemoteURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Load(RemoteURL) error = %v", err)
	}
	if diff := cmp.Diff([]string{"https://example.com/p2/"}, m.P2Repos); diff != "" {
		t.Errorf("P2Repos mismatch (-want +got):\n%s", diff)
	}
}

// TestLoadRemoteFallsBackToEmbedded verifies that a remote failure falls back to embedded.
func TestLoadRemoteFallsBackToEmbedded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m, err := Load(context.Background(), LoadOptions{RemoteURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Load() should fall back to embedded, got error = %v", err)
	}
	if m.Source != "embedded" {
		t.Errorf("Source = %q, want embedded", m.Source)
	}
}

// TestLoadRemoteFallsBackToLocalOverride verifies the full fallback chain:
// remote fails, local file used.
func TestLoadRemoteFallsBackToLocalOverride(t *testing.T) {
	path := writeFile(t, FileName, "useAtomos: true\n")

	m, err := Load(context.Background(), LoadOptions{
		RemoteURL:     "http://127.0.0.1:0/equo.yaml", // nothing listening
		LocalOverride: path,
		Timeout:       100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Load() should fall back to local override, got error = %v", err)
	}
	if !m.UseAtomos {
		t.Error("UseAtomos = false, want the local file's value")
	}
}

// TestLoadInvalidYAML verifies that a corrupt local file is fatal.
func TestLoadInvalidYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "install: [unterminated\n")

	_, err := Load(context.Background(), LoadOptions{LocalOverride: path})
	if !errors.Is(err, equoerr.ErrConfig) {
		t.Errorf("Load() error = %v, want ErrConfig", err)
	}
}

// TestLoadUnknownKey verifies typos in the file are reported.
func TestLoadUnknownKey(t *testing.T) {
	path := writeFile(t, FileName, "instal:\n  - org.example\n")

	_, err := Load(context.Background(), LoadOptions{LocalOverride: path})
	if !errors.Is(err, equoerr.ErrConfig) {
		t.Errorf("Load() error = %v, want ErrConfig", err)
	}
}

// ── Validate ─────────────────────────────────────────────────────────────────

// TestValidateReportsEveryProblem verifies all problems surface together.
func TestValidateReportsEveryProblem(t *testing.T) {
	src := strings.Join([]string{
		"catalog:",
		"  emacs: \"29\"",
		"p2repos:",
		"  - relative/p2",
		"welcome: {url: \"\"}",
		"filters:",
		"  - platform: linux",
		"catalogMirror: mirror.local",
	}, "\n")
	_, err := Parse([]byte(src), "test")
	if !errors.Is(err, equoerr.ErrConfig) {
		t.Fatalf("Parse() error = %v, want ErrConfig", err)
	}
	for _, want := range []string{"emacs", "relative/p2", "welcome", "filters[0]", "catalogMirror"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

// TestApplyCatalogMirror verifies catalogMirror moves catalog repositories
// and leaves explicit ones alone.
func TestApplyCatalogMirror(t *testing.T) {
	src := strings.Join([]string{
		"catalogMirror: https://mirror.example.com/eclipse",
		"catalog:",
		"  platform: \"4.27\"",
		"p2repos:",
		"  - https://example.com/p2/",
	}, "\n")
	mf, err := Parse([]byte(src), "test")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	b := model.NewBuilder()
	if err := mf.Apply(b); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	m, err := b.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	want := []string{
		"https://example.com/p2/",
		"https://mirror.example.com/eclipse/eclipse/updates/4.27/",
	}
	if diff := cmp.Diff(want, m.Repositories()); diff != "" {
		t.Errorf("Repositories() mismatch (-want +got):\n%s", diff)
	}
}

// TestPlatformStates verifies absent, null and explicit platforms decode
// differently.
func TestPlatformStates(t *testing.T) {
	src := strings.Join([]string{
		"filters:",
		"  - exclude: [a]",
		"  - platform: null",
		"  - platform: {os: linux, ws: gtk, arch: x86_64}",
	}, "\n")
	m, err := Parse([]byte(src), "test")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tests := []struct {
		declared bool
		want     *unit.Platform
	}{
		{false, nil},
		{true, nil},
		{true, &unit.Platform{OS: "linux", WS: "gtk", Arch: "x86_64"}},
	}
	for i, tt := range tests {
		declared, p, err := m.Filters[i].PlatformState()
		if err != nil {
			t.Fatalf("filters[%d]: %v", i, err)
		}
		if declared != tt.declared {
			t.Errorf("filters[%d] declared = %v, want %v", i, declared, tt.declared)
		}
		if diff := cmp.Diff(tt.want, p); diff != "" {
			t.Errorf("filters[%d] platform mismatch (-want +got):\n%s", i, diff)
		}
	}
}

// ── Apply ────────────────────────────────────────────────────────────────────

// TestApplyBuildsModel verifies every manifest section reaches the model.
func TestApplyBuildsModel(t *testing.T) {
	src := strings.Join([]string{
		"catalog:",
		"  platform: \"4.27\"",
		"p2repos:",
		"  - https://example.com/p2/",
		"install:",
		"  - org.example.tool",
		"filters:",
		"  - platform: null",
		"    exclude: [org.example.skip]",
		"workspace:",
		"  other.prefs: {k: v}",
		"useChromium: true",
		"branding: {title: Custom}",
		"welcome: {url: \"https://equo.dev/welcome\"}",
	}, "\n")
	mf, err := Parse([]byte(src), "test")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	b := model.NewBuilder()
	if err := mf.Apply(b); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	m, err := b.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	wantRepos := []string{
		"https://example.com/p2/",
		"https://download.eclipse.org/eclipse/updates/4.27/",
		"https://dl.equo.dev/chromium-swt-ce/oss/p2/",
	}
	if diff := cmp.Diff(wantRepos, m.Repositories()); diff != "" {
		t.Errorf("Repositories() mismatch (-want +got):\n%s", diff)
	}
	if p := m.Filter().Platform(); p != nil {
		t.Errorf("platform = %v, want nil after `platform: null`", p)
	}
	if !m.Filter().Excludes("org.example.skip") {
		t.Error("exclude rule not applied")
	}
	if got := m.WorkspaceProps()["other.prefs"]["k"]; got != "v" {
		t.Errorf("workspace prop = %q, want v", got)
	}
	sys := m.SystemProps()
	if sys["equo.branding.title"] != "Custom" || sys["equo.welcome.url"] != "https://equo.dev/welcome" {
		t.Errorf("SystemProps() = %v", sys)
	}
}

// ── Write ────────────────────────────────────────────────────────────────────

// TestWriteKeepsNullPlatform verifies an explicit null platform survives a
// write and a reload.
func TestWriteKeepsNullPlatform(t *testing.T) {
	f := Filter{Exclude: []string{"x"}}
	if err := f.SetPlatform(nil); err != nil {
		t.Fatal(err)
	}
	in := &Manifest{Catalog: map[string]string{"jdt": ""}, Filters: []Filter{f}}
	path := filepath.Join(t.TempDir(), "nested", FileName)
	if err := Write(path, in); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out, err := Load(context.Background(), LoadOptions{LocalOverride: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	declared, p, err := out.Filters[0].PlatformState()
	if err != nil || !declared || p != nil {
		t.Errorf("PlatformState() = %v, %v, %v; want declared null", declared, p, err)
	}
	if _, ok := out.Catalog["jdt"]; !ok {
		t.Error("catalog entry lost")
	}
}
