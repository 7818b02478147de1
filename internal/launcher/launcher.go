// Package launcher drives one launch: optional clean wipe, building the
// classpath, then starting the runtime with the model's hooks applied.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/agustinschilling/equo-ide/internal/classpath"
	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/jvm"
	"github.com/agustinschilling/equo-ide/internal/logger"
	"github.com/agustinschilling/equo-ide/internal/model"
	"github.com/agustinschilling/equo-ide/internal/workspace"
)

// HooksFile is written to the state directory and names, in registry order,
// every hook and the settings it hands to the runtime.
const HooksFile = "hooks.yaml"

// Builder produces the classpath. It is only invoked after any clean wipe,
// so nothing touches the network before the workspace is reset.
type Builder interface {
	Build(ctx context.Context) (*classpath.Classpath, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context) (*classpath.Classpath, error)

func (f BuilderFunc) Build(ctx context.Context) (*classpath.Classpath, error) { return f(ctx) }

// Controller runs launches against one workspace.
type Controller struct {
	Workspace *workspace.Workspace
	Runtime   jvm.Runtime
	// Out receives the classpath dump and, with ShowConsole, runtime output.
	Out io.Writer
	Log *logger.Logger
	// OnState, if set, is called on every transition.
	OnState func(State)

	mu    sync.Mutex
	state State
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) enter(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.Log.Debug("launch state", "state", s)
	if c.OnState != nil {
		c.OnState(s)
	}
}

func (c *Controller) fail(err error) error {
	c.enter(Failed)
	return err
}

// Launch runs the state machine
//
//	Idle -> Preparing -> (CleanWipe) -> Building -> Launching -> Running | Failed
//
// InitOnly and a DebugClasspath dump stop after Building without error.
func (c *Controller) Launch(ctx context.Context, b Builder, m *model.Model, cfg Config) error {
	if c.Log == nil {
		c.Log = logger.NewDiscard()
	}
	c.enter(Preparing)
	if m == nil {
		return c.fail(equoerr.Configf(equoerr.StageLaunch, "model", "model was not prepared"))
	}

	if cfg.Clean {
		c.enter(CleanWipe)
		c.Log.Info("wiping workspace", "dir", c.Workspace.Dir)
		if err := c.Workspace.Wipe(); err != nil {
			return c.fail(err)
		}
	}

	c.enter(Building)
	cp, err := b.Build(ctx)
	if err != nil {
		return c.fail(err)
	}
	c.Log.Info("classpath assembled", "entries", cp.Len())

	switch cfg.DebugClasspath {
	case DebugNames:
		return c.dump(cp.WriteNames)
	case DebugPaths:
		return c.dump(cp.WritePaths)
	}
	if cfg.InitOnly {
		c.Log.Info("init only, not launching")
		return nil
	}

	c.enter(Launching)
	spec, err := c.prepareRuntime(m, cp, cfg)
	if err != nil {
		return c.fail(err)
	}
	return c.run(ctx, spec, cfg)
}

func (c *Controller) dump(write func(io.Writer) error) error {
	if err := write(c.Out); err != nil {
		return c.fail(equoerr.Launch(equoerr.StageLaunch, "classpath dump", err))
	}
	return nil
}

// prepareRuntime writes workspace properties, the hooks file and the
// snapshot, and returns the process spec.
func (c *Controller) prepareRuntime(m *model.Model, cp *classpath.Classpath, cfg Config) (jvm.Spec, error) {
	ws := c.Workspace
	if err := ws.WriteProps(m.WorkspaceProps()); err != nil {
		return jvm.Spec{}, equoerr.Launch(equoerr.StageLaunch, ws.Dir, err)
	}

	hooksPath := filepath.Join(ws.StateDir(), HooksFile)
	data, err := yaml.Marshal(m.Hooks().Describe())
	if err != nil {
		return jvm.Spec{}, equoerr.Launch(equoerr.StageLaunch, hooksPath, err)
	}
	if err := os.MkdirAll(ws.StateDir(), 0o755); err != nil {
		return jvm.Spec{}, equoerr.Launch(equoerr.StageLaunch, ws.StateDir(), err)
	}
	if err := os.WriteFile(hooksPath, data, 0o644); err != nil {
		return jvm.Spec{}, equoerr.Launch(equoerr.StageLaunch, hooksPath, err)
	}

	snap := ws.NewSnapshot(m.InstallIDs(), m.Repositories(), cp.Files())
	if err := ws.WriteSnapshot(snap); err != nil {
		return jvm.Spec{}, equoerr.Launch(equoerr.StageLaunch, ws.SnapshotPath(), err)
	}

	props := m.SystemProps()
	props["equo.hooks"] = hooksPath
	props["equo.workspace"] = ws.Dir
	args := []string{"-installDir", ws.Dir}
	if cfg.ShowConsole {
		props["showConsole"] = "true"
	}
	if cfg.Clean {
		props["clean"] = "true"
	}
	if cfg.UseAtomos || m.UseAtomos() {
		args = append(args, "-useAtomos", "true")
	}

	spec := jvm.Spec{
		Dir:         ws.Dir,
		Classpath:   cp.Files(),
		MainClass:   jvm.MainClass,
		SystemProps: props,
		Args:        args,
		FirstThread: runtime.GOOS == "darwin",
	}
	if cfg.DebugIde {
		spec.DebugPort = cfg.DebugPort
		if spec.DebugPort == 0 {
			spec.DebugPort = DefaultDebugPort
		}
		c.Log.Warn("runtime suspended until a debugger attaches", "port", strconv.Itoa(spec.DebugPort))
	}
	return spec, nil
}

func (c *Controller) run(ctx context.Context, spec jvm.Spec, cfg Config) error {
	started := false
	spec.Started = func(pid int) {
		started = true
		c.Log.Info("runtime started", "pid", pid, "java", c.Runtime.Name())
		c.enter(Running)
	}

	progress := make(chan jvm.Progress, 64)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for p := range progress {
			fmt.Fprintln(c.Log, p.Line)
			if cfg.ShowConsole && c.Out != nil {
				fmt.Fprintln(c.Out, p.Line)
			}
		}
	}()

	err := c.Runtime.Run(ctx, spec, progress)
	close(progress)
	<-drained

	// An interrupted runtime is a normal way to end a session.
	if err == nil || (started && ctx.Err() != nil) {
		return nil
	}
	return c.fail(equoerr.Launch(equoerr.StageLaunch, c.Runtime.Name(), err))
}
