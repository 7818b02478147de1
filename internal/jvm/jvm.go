// Package jvm starts the provisioned runtime in a Java virtual machine.
// Use Detect() to find the java executable for the current environment.
package jvm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// MainClass is the entry point of the solstice runtime.
const MainClass = "dev.equo.ide.IdeMain"

// Progress carries one line of child output.
type Progress struct {
	Line   string
	Stderr bool
}

// Runtime runs a Spec to completion, streaming output via progress. The
// channel is not closed by Run.
type Runtime interface {
	// Name describes the runtime, e.g. the java path.
	Name() string
	Run(ctx context.Context, spec Spec, progress chan<- Progress) error
}

// Spec describes one runtime process.
type Spec struct {
	Dir         string
	Classpath   []string
	MainClass   string
	SystemProps map[string]string
	Args        []string
	// DebugPort, when non-zero, starts the JVM suspended until a debugger
	// attaches on this port.
	DebugPort int
	// FirstThread runs the UI on the main thread, which SWT needs on macOS.
	FirstThread bool
	// Started, if set, is called with the pid once the process is running.
	Started func(pid int)
}

// CommandLine returns the JVM arguments for s, without the executable.
func (s Spec) CommandLine() []string {
	var args []string
	if s.FirstThread {
		args = append(args, "-XstartOnFirstThread")
	}
	if s.DebugPort != 0 {
		args = append(args, fmt.Sprintf("-agentlib:jdwp=transport=dt_socket,server=y,suspend=y,address=%d", s.DebugPort))
	}
	keys := make([]string, 0, len(s.SystemProps))
	for k := range s.SystemProps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-D"+k+"="+s.SystemProps[k])
	}
	main := s.MainClass
	if main == "" {
		main = MainClass
	}
	args = append(args, "-cp", strings.Join(s.Classpath, string(os.PathListSeparator)), main)
	return append(args, s.Args...)
}

// Java runs specs with a java executable.
type Java struct {
	Path string
}

// Detect returns $JAVA_HOME/bin/java when it exists, otherwise java from
// PATH.
func Detect() (*Java, error) {
	exe := "java"
	if runtime.GOOS == "windows" {
		exe = "java.exe"
	}
	if home := os.Getenv("JAVA_HOME"); home != "" {
		p := filepath.Join(home, "bin", exe)
		if _, err := os.Stat(p); err == nil {
			return &Java{Path: p}, nil
		}
	}
	p, err := exec.LookPath(exe)
	if err != nil {
		return nil, fmt.Errorf("no java runtime found: set JAVA_HOME or add java to PATH: %w", err)
	}
	return &Java{Path: p}, nil
}

func (j *Java) Name() string { return j.Path }

func (j *Java) Run(ctx context.Context, spec Spec, progress chan<- Progress) error {
	cmd := exec.CommandContext(ctx, j.Path, spec.CommandLine()...)
	cmd.Dir = spec.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", j.Path, err)
	}
	if spec.Started != nil {
		spec.Started(cmd.Process.Pid)
	}

	// stream both stdout and stderr as progress lines
	done := make(chan struct{}, 2)
	pipe := func(r io.Reader, isErr bool) {
		// Lines have no length limit; the pipe must be read to EOF or the
		// child blocks on a full buffer.
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) != "" {
				progress <- Progress{Line: line, Stderr: isErr}
			}
			if err != nil {
				break
			}
		}
		done <- struct{}{}
	}
	go pipe(stdout, false)
	go pipe(stderr, true)
	<-done
	<-done

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s exited: %w", filepath.Base(j.Path), err)
	}
	return nil
}
