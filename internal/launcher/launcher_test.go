package launcher

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/agustinschilling/equo-ide/internal/classpath"
	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/hook"
	"github.com/agustinschilling/equo-ide/internal/jvm"
	"github.com/agustinschilling/equo-ide/internal/logger"
	"github.com/agustinschilling/equo-ide/internal/model"
	"github.com/agustinschilling/equo-ide/internal/workspace"
)

// fakeRuntime records the spec it was asked to run.
type fakeRuntime struct {
	specs    []jvm.Spec
	lines    []string
	startErr error
	exitErr  error
}

func (f *fakeRuntime) Name() string { return "fake-java" }

func (f *fakeRuntime) Run(_ context.Context, spec jvm.Spec, progress chan<- jvm.Progress) error {
	f.specs = append(f.specs, spec)
	if f.startErr != nil {
		return f.startErr
	}
	if spec.Started != nil {
		spec.Started(4242)
	}
	for _, l := range f.lines {
		progress <- jvm.Progress{Line: l}
	}
	return f.exitErr
}

// countingBuilder returns a fixed classpath and counts calls.
type countingBuilder struct {
	calls int
	cp    *classpath.Classpath
	err   error
	// before runs at the start of Build.
	before func()
}

func (b *countingBuilder) Build(context.Context) (*classpath.Classpath, error) {
	b.calls++
	if b.before != nil {
		b.before()
	}
	return b.cp, b.err
}

func testClasspath(t *testing.T) *classpath.Classpath {
	t.Helper()
	cp, err := classpath.Assemble(
		[]classpath.Entry{{ID: "dev.equo.ide:solstice", Version: "1.7.4", Path: "/m2/solstice.jar"}},
		[]classpath.Entry{{ID: "org.eclipse.platform:org.eclipse.swt", Version: "3.122.0", Path: "/m2/swt.jar"}},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	return cp
}

func testModel(t *testing.T) *model.Model {
	t.Helper()
	b := model.NewBuilder()
	b.Branding().Title("Test IDE")
	if err := b.UseChromium(); err != nil {
		t.Fatal(err)
	}
	b.WorkspaceInit("instance/a.prefs").Prop("k", "v")
	if err := b.Install("org.eclipse.swt"); err != nil {
		t.Fatal(err)
	}
	m, err := b.Prepare(nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newController(t *testing.T, rt jvm.Runtime) (*Controller, *[]State, *bytes.Buffer) {
	t.Helper()
	var states []State
	out := &bytes.Buffer{}
	return &Controller{
		Workspace: workspace.New(t.TempDir()),
		Runtime:   rt,
		Out:       out,
		Log:       logger.NewDiscard(),
		OnState:   func(s State) { states = append(states, s) },
	}, &states, out
}

// ── config ───────────────────────────────────────────────────────────────────

// TestParseDebugClasspath verifies accepted spellings.
func TestParseDebugClasspath(t *testing.T) {
	tests := map[string]DebugClasspath{"": DebugDisabled, "disabled": DebugDisabled, "Names": DebugNames, " paths ": DebugPaths}
	for in, want := range tests {
		got, err := ParseDebugClasspath(in)
		if err != nil || got != want {
			t.Errorf("ParseDebugClasspath(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseDebugClasspath("verbose"); err == nil {
		t.Error("ParseDebugClasspath(verbose) error = nil")
	}
}

// ── launch ───────────────────────────────────────────────────────────────────

// TestLaunchRunsRuntime verifies the full path: props, hooks file, snapshot
// and a runtime spec carrying the hooks' system properties.
func TestLaunchRunsRuntime(t *testing.T) {
	rt := &fakeRuntime{lines: []string{"Equinox started"}}
	c, states, out := newController(t, rt)
	b := &countingBuilder{cp: testClasspath(t)}

	err := c.Launch(context.Background(), b, testModel(t), Config{ShowConsole: true, DebugIde: true})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	if diff := cmp.Diff([]State{Preparing, Building, Launching, Running}, *states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if len(rt.specs) != 1 {
		t.Fatalf("runtime ran %d times, want 1", len(rt.specs))
	}
	spec := rt.specs[0]
	if diff := cmp.Diff([]string{"/m2/solstice.jar", "/m2/swt.jar"}, spec.Classpath); diff != "" {
		t.Errorf("classpath mismatch (-want +got):\n%s", diff)
	}
	if spec.SystemProps["equo.branding.title"] != "Test IDE" || spec.SystemProps["showConsole"] != "true" {
		t.Errorf("system props = %v", spec.SystemProps)
	}
	if spec.DebugPort != DefaultDebugPort {
		t.Errorf("DebugPort = %d, want %d", spec.DebugPort, DefaultDebugPort)
	}
	if !strings.Contains(out.String(), "Equinox started") {
		t.Errorf("console output %q lacks runtime output", out.String())
	}

	data, err := os.ReadFile(filepath.Join(c.Workspace.StateDir(), HooksFile))
	if err != nil {
		t.Fatalf("hooks file: %v", err)
	}
	var hooks []hook.Description
	if err := yaml.Unmarshal(data, &hooks); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, h := range hooks {
		names = append(names, h.Name)
	}
	if diff := cmp.Diff([]string{"branding", "embedded-browser"}, names); diff != "" {
		t.Errorf("hooks file order mismatch (-want +got):\n%s", diff)
	}

	props, err := c.Workspace.ReadProps("instance/a.prefs")
	if err != nil || props["k"] != "v" {
		t.Errorf("workspace props = %v, %v", props, err)
	}
	snap, err := c.Workspace.ReadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Classpath) != 2 {
		t.Errorf("snapshot classpath = %v", snap.Classpath)
	}
}

// TestLaunchCleanWipesBeforeBuilding verifies crash leftovers are gone by the
// time the builder runs.
func TestLaunchCleanWipesBeforeBuilding(t *testing.T) {
	c, states, _ := newController(t, &fakeRuntime{})
	leftover := filepath.Join(c.Workspace.Dir, "instance", ".metadata", ".lock")
	if err := os.MkdirAll(filepath.Dir(leftover), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(leftover, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	b := &countingBuilder{cp: testClasspath(t), before: func() {
		if _, err := os.Stat(leftover); !os.IsNotExist(err) {
			t.Error("builder ran before the workspace was wiped")
		}
	}}
	if err := c.Launch(context.Background(), b, testModel(t), Config{Clean: true, InitOnly: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if diff := cmp.Diff([]State{Preparing, CleanWipe, Building}, *states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

// TestLaunchCleanWipeFailure verifies a failed wipe is a LaunchError and
// nothing is built. The workspace path is a regular file, so the wipe fails
// regardless of the user running the test.
func TestLaunchCleanWipeFailure(t *testing.T) {
	rt := &fakeRuntime{}
	c, states, _ := newController(t, rt)
	notADir := filepath.Join(t.TempDir(), "workspace")
	if err := os.WriteFile(notADir, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.Workspace = workspace.New(notADir)

	b := &countingBuilder{cp: testClasspath(t)}
	err := c.Launch(context.Background(), b, testModel(t), Config{Clean: true})
	checkWipeFailed(t, c, states, rt, b, err)
}

// TestLaunchCleanWipeFailurePermissions verifies the same for an entry the
// wipe is not allowed to remove.
func TestLaunchCleanWipeFailurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	rt := &fakeRuntime{}
	c, states, _ := newController(t, rt)
	locked := filepath.Join(c.Workspace.Dir, "instance")
	if err := os.MkdirAll(locked, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(locked, "file.lock"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(locked, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	b := &countingBuilder{cp: testClasspath(t)}
	err := c.Launch(context.Background(), b, testModel(t), Config{Clean: true})
	checkWipeFailed(t, c, states, rt, b, err)
}

func checkWipeFailed(t *testing.T, c *Controller, states *[]State, rt *fakeRuntime, b *countingBuilder, err error) {
	t.Helper()
	if !errors.Is(err, equoerr.ErrLaunch) {
		t.Fatalf("Launch() error = %v, want ErrLaunch", err)
	}
	if b.calls != 0 {
		t.Error("builder ran after a failed wipe")
	}
	if len(rt.specs) != 0 {
		t.Error("runtime started after a failed wipe")
	}
	if c.State() != Failed {
		t.Errorf("State() = %v, want failed", c.State())
	}
	if diff := cmp.Diff([]State{Preparing, CleanWipe, Failed}, *states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

// TestLaunchDebugClasspath verifies the dump replaces the launch.
func TestLaunchDebugClasspath(t *testing.T) {
	for _, mode := range []DebugClasspath{DebugNames, DebugPaths} {
		t.Run(mode.String(), func(t *testing.T) {
			rt := &fakeRuntime{}
			c, states, out := newController(t, rt)
			err := c.Launch(context.Background(), &countingBuilder{cp: testClasspath(t)}, testModel(t), Config{DebugClasspath: mode})
			if err != nil {
				t.Fatalf("Launch() error = %v", err)
			}
			want := "dev.equo.ide:solstice 1.7.4\norg.eclipse.platform:org.eclipse.swt 3.122.0\n"
			if mode == DebugPaths {
				want = "/m2/solstice.jar\n/m2/swt.jar\n"
			}
			if out.String() != want {
				t.Errorf("dump = %q, want %q", out.String(), want)
			}
			for _, s := range *states {
				if s == Launching || s == Running {
					t.Errorf("entered %v during a classpath dump", s)
				}
			}
			if len(rt.specs) != 0 {
				t.Error("runtime started during a classpath dump")
			}
		})
	}
}

// TestLaunchInitOnly verifies building without starting anything.
func TestLaunchInitOnly(t *testing.T) {
	rt := &fakeRuntime{}
	c, _, _ := newController(t, rt)
	b := &countingBuilder{cp: testClasspath(t)}
	if err := c.Launch(context.Background(), b, testModel(t), Config{InitOnly: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if b.calls != 1 || len(rt.specs) != 0 {
		t.Errorf("builder calls = %d, runtime runs = %d; want 1, 0", b.calls, len(rt.specs))
	}
	if c.State() != Building {
		t.Errorf("State() = %v, want building", c.State())
	}
}

// TestLaunchBuildFailure verifies a build error never reaches the runtime.
func TestLaunchBuildFailure(t *testing.T) {
	rt := &fakeRuntime{}
	c, _, _ := newController(t, rt)
	want := equoerr.Resolution(equoerr.StageQuery, "org.example.missing", errors.New("not found"))
	err := c.Launch(context.Background(), &countingBuilder{err: want}, testModel(t), Config{})
	if !errors.Is(err, equoerr.ErrResolution) {
		t.Errorf("Launch() error = %v, want ErrResolution", err)
	}
	if len(rt.specs) != 0 || c.State() != Failed {
		t.Errorf("runtime runs = %d, state = %v", len(rt.specs), c.State())
	}
}

// TestLaunchStartFailure verifies a runtime that cannot start is a
// LaunchError.
func TestLaunchStartFailure(t *testing.T) {
	rt := &fakeRuntime{startErr: errors.New("exec: no such file")}
	c, states, _ := newController(t, rt)
	err := c.Launch(context.Background(), &countingBuilder{cp: testClasspath(t)}, testModel(t), Config{})
	if !errors.Is(err, equoerr.ErrLaunch) {
		t.Errorf("Launch() error = %v, want ErrLaunch", err)
	}
	if diff := cmp.Diff([]State{Preparing, Building, Launching, Failed}, *states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

// TestLaunchWithBuilderFunc verifies the function adapter.
func TestLaunchWithBuilderFunc(t *testing.T) {
	c, _, _ := newController(t, &fakeRuntime{})
	cp := testClasspath(t)
	called := false
	b := BuilderFunc(func(context.Context) (*classpath.Classpath, error) {
		called = true
		return cp, nil
	})
	if err := c.Launch(context.Background(), b, testModel(t), Config{InitOnly: true}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("BuilderFunc not called")
	}
}
