package jvm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestCommandLine verifies argument order and sorted system properties.
func TestCommandLine(t *testing.T) {
	spec := Spec{
		Classpath:   []string{"/a.jar", "/b.jar"},
		SystemProps: map[string]string{"z": "1", "a": "2"},
		Args:        []string{"-installDir", "/ws"},
		DebugPort:   8000,
		FirstThread: true,
	}
	sep := string(os.PathListSeparator)
	want := []string{
		"-XstartOnFirstThread",
		"-agentlib:jdwp=transport=dt_socket,server=y,suspend=y,address=8000",
		"-Da=2", "-Dz=1",
		"-cp", "/a.jar" + sep + "/b.jar",
		MainClass,
		"-installDir", "/ws",
	}
	if diff := cmp.Diff(want, spec.CommandLine()); diff != "" {
		t.Errorf("CommandLine() mismatch (-want +got):\n%s", diff)
	}
}

// TestCommandLineMinimal verifies nothing optional is emitted by default.
func TestCommandLineMinimal(t *testing.T) {
	got := Spec{MainClass: "x.Main"}.CommandLine()
	if diff := cmp.Diff([]string{"-cp", "", "x.Main"}, got); diff != "" {
		t.Errorf("CommandLine() mismatch (-want +got):\n%s", diff)
	}
}

// TestDetectJavaHome verifies JAVA_HOME wins over PATH.
func TestDetectJavaHome(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix executable name")
	}
	home := t.TempDir()
	java := filepath.Join(home, "bin", "java")
	if err := os.MkdirAll(filepath.Dir(java), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(java, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JAVA_HOME", home)
	t.Setenv("PATH", "")

	j, err := Detect()
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if j.Path != java || j.Name() != java {
		t.Errorf("Detect() = %s, want %s", j.Path, java)
	}
}

// TestDetectMissing verifies a helpful error without any java.
func TestDetectMissing(t *testing.T) {
	t.Setenv("JAVA_HOME", "")
	t.Setenv("PATH", "")
	if _, err := Detect(); err == nil || !strings.Contains(err.Error(), "JAVA_HOME") {
		t.Errorf("Detect() error = %v, want a JAVA_HOME hint", err)
	}
}

// TestRunStreamsOutput verifies child output is streamed and Started fires.
func TestRunStreamsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the runtime")
	}
	script := filepath.Join(t.TempDir(), "java")
	body := "#!/bin/sh\necho started\necho warning >&2\necho\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	progress := make(chan Progress, 16)
	pid := 0
	err := (&Java{Path: script}).Run(context.Background(), Spec{
		Dir:     t.TempDir(),
		Started: func(p int) { pid = p },
	}, progress)
	close(progress)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if pid == 0 {
		t.Error("Started was not called")
	}

	var out, errOut []string
	for p := range progress {
		if p.Stderr {
			errOut = append(errOut, p.Line)
		} else {
			out = append(out, p.Line)
		}
	}
	if diff := cmp.Diff([]string{"started"}, out); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"warning"}, errOut); diff != "" {
		t.Errorf("stderr mismatch (-want +got):\n%s", diff)
	}
}

// TestRunLongLines verifies output lines longer than a scanner buffer are
// delivered whole and do not stall the child.
func TestRunLongLines(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the runtime")
	}
	script := filepath.Join(t.TempDir(), "java")
	body := "#!/bin/sh\n" +
		"head -c 200000 /dev/zero | tr '\\0' x; echo\n" +
		"head -c 200000 /dev/zero | tr '\\0' y; echo\n" +
		"echo after\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	progress := make(chan Progress, 16)
	err := (&Java{Path: script}).Run(ctx, Spec{Dir: t.TempDir()}, progress)
	close(progress)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Run() only returned at the deadline")
	}

	var got []string
	for p := range progress {
		got = append(got, p.Line)
	}
	want := []string{strings.Repeat("x", 200000), strings.Repeat("y", 200000), "after"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d has %d bytes, want %d", i, len(got[i]), len(want[i]))
		}
	}
}

// TestRunExitStatus verifies a failing process is reported.
func TestRunExitStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the runtime")
	}
	script := filepath.Join(t.TempDir(), "java")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	err := (&Java{Path: script}).Run(context.Background(), Spec{}, make(chan Progress, 1))
	if err == nil {
		t.Error("Run() error = nil for exit status 3")
	}
}
