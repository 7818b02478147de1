// Package workspace manages the persisted state of one IDE instance: the
// workspace directory, its property files and the snapshot of the last
// launch written to <workspace>/.equo/workspace.json. The snapshot schema is
// versioned to support forward-compatible migrations.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/magiconair/properties"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
)

const (
	snapshotVersion = 1
	stateDir        = ".equo"
	snapshotFile    = "workspace.json"
	logsDir         = "logs"
)

// Workspace is the directory holding all state of one IDE instance.
type Workspace struct {
	Dir string
}

// New returns the workspace rooted at dir.
func New(dir string) *Workspace {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &Workspace{Dir: abs}
}

// StateDir is where the launcher keeps its own files.
func (w *Workspace) StateDir() string { return filepath.Join(w.Dir, stateDir) }

// LogsDir is where launch logs are written. It survives Wipe.
func (w *Workspace) LogsDir() string { return filepath.Join(w.StateDir(), logsDir) }

// SnapshotPath returns the path of the last-launch snapshot.
func (w *Workspace) SnapshotPath() string { return filepath.Join(w.StateDir(), snapshotFile) }

// Wipe deletes all persisted state except the launch logs, so the log of
// the run doing the wipe is kept. Any failure is a LaunchError.
func (w *Workspace) Wipe() error {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return equoerr.Launch(equoerr.StageWipe, w.Dir, err)
	}
	for _, e := range entries {
		path := filepath.Join(w.Dir, e.Name())
		if e.Name() == stateDir && e.IsDir() {
			if err := wipeStateDir(path); err != nil {
				return err
			}
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return equoerr.Launch(equoerr.StageWipe, path, err)
		}
	}
	return nil
}

func wipeStateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return equoerr.Launch(equoerr.StageWipe, dir, err)
	}
	for _, e := range entries {
		if e.Name() == logsDir {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return equoerr.Launch(equoerr.StageWipe, path, err)
		}
	}
	return nil
}

// WriteProps writes each subpath as a Java properties file, merging into
// any existing file so unrelated user settings survive.
func (w *Workspace) WriteProps(props map[string]map[string]string) error {
	subs := make([]string, 0, len(props))
	for s := range props {
		subs = append(subs, s)
	}
	sort.Strings(subs)

	for _, sub := range subs {
		path := filepath.Join(w.Dir, filepath.FromSlash(sub))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}

		p, err := loadProps(path)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(props[sub]))
		for k := range props[sub] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, _, err := p.Set(k, props[sub][k]); err != nil {
				return fmt.Errorf("set %s in %s: %w", k, path, err)
			}
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if _, err := p.Write(f, properties.ISO_8859_1); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func loadProps(path string) (*properties.Properties, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		p := properties.NewProperties()
		p.DisableExpansion = true
		return p, nil
	}
	loader := properties.Loader{Encoding: properties.ISO_8859_1, DisableExpansion: true}
	p, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p, nil
}

// ReadProps loads one workspace property file.
func (w *Workspace) ReadProps(subpath string) (map[string]string, error) {
	p, err := loadProps(filepath.Join(w.Dir, filepath.FromSlash(subpath)))
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

// Snapshot records what the last launch installed.
type Snapshot struct {
	LaunchedAt   time.Time `json:"launchedAt"`
	Workspace    string    `json:"workspace"`
	Installs     []string  `json:"installs"`
	Repositories []string  `json:"repositories"`
	Classpath    []string  `json:"classpath"`
	Version      int       `json:"version"`
}

// NewSnapshot creates a fresh Snapshot ready to be written.
func (w *Workspace) NewSnapshot(installs, repos, classpath []string) *Snapshot {
	return &Snapshot{
		Version:      snapshotVersion,
		Workspace:    w.Dir,
		LaunchedAt:   time.Now().UTC(),
		Installs:     append([]string(nil), installs...),
		Repositories: append([]string(nil), repos...),
		Classpath:    append([]string(nil), classpath...),
	}
}

// WriteSnapshot persists s to <workspace>/.equo/workspace.json.
func (w *Workspace) WriteSnapshot(s *Snapshot) error {
	if err := os.MkdirAll(w.StateDir(), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(w.SnapshotPath(), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads the last-launch snapshot.
func (w *Workspace) ReadSnapshot() (*Snapshot, error) {
	path := w.SnapshotPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no snapshot found at %s (has this workspace been launched?)", path)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	// Future: handle s.Version < snapshotVersion migrations here.

	return &s, nil
}

// Diff describes how the declared installs changed since a snapshot.
type Diff struct {
	Added   []string
	Removed []string
}

// HasChanges returns true if anything was added or removed.
func (d *Diff) HasChanges() bool {
	return len(d.Added)+len(d.Removed) > 0
}

// DiffInstalls compares the snapshot's installs with the current ones.
func DiffInstalls(prev *Snapshot, current []string) *Diff {
	before := toSet(prev.Installs)
	after := toSet(current)

	d := &Diff{}
	for _, id := range current {
		if _, ok := before[id]; !ok {
			d.Added = append(d.Added, id)
		}
	}
	for _, id := range prev.Installs {
		if _, ok := after[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}
	return d
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
