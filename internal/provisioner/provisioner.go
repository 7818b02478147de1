// Package provisioner orchestrates the build of a classpath from a prepared
// model: query, classify, sealed generic resolution, P2 downloads and
// assembly, always in that order. Any failure aborts the whole build and
// nothing partial is returned.
package provisioner

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/agustinschilling/equo-ide/internal/classify"
	"github.com/agustinschilling/equo-ide/internal/classpath"
	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/logger"
	"github.com/agustinschilling/equo-ide/internal/maven"
	"github.com/agustinschilling/equo-ide/internal/model"
	"github.com/agustinschilling/equo-ide/internal/p2"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

const totalSteps = 5

// Report describes a finished build.
type Report struct {
	Query      *p2.QueryResult
	Partition  *classify.Partition
	Resolved   *maven.Result
	Downloaded []string
	// Shadowed are P2-only units dropped because a bootstrap artifact is
	// the same bundle.
	Shadowed  []unit.Unit
	Classpath *classpath.Classpath
	Duration  time.Duration
}

// Provisioner builds classpaths.
type Provisioner struct {
	Index        p2.Index
	Maven        maven.Resolver
	GenericRepos []string
	// CacheDir holds downloaded P2 jars.
	CacheDir string
	// HTTP is used for P2 downloads; nil means httpclient defaults.
	HTTP          *http.Client
	EngineVersion string
	Log           *logger.Logger
	OnStep        func(step, total int, label string) // called at each named stage
	OnLine        func(line string)                   // called for each artifact made available

	lineMu sync.Mutex
}

// Build runs the pipeline for m.
func (p *Provisioner) Build(ctx context.Context, m *model.Model) (*classpath.Classpath, *Report, error) {
	start := time.Now()
	if p.Log == nil {
		p.Log = logger.NewDiscard()
	}
	rep := &Report{}

	p.step(1, fmt.Sprintf("Querying %d p2 repositories", len(m.Repositories())))
	q, err := p2.Query(ctx, p.Index, m)
	if err != nil {
		return nil, nil, err
	}
	rep.Query = q
	p.Log.Info("query complete", "units", len(q.Units), "excluded", len(q.Excluded))

	jars := q.Jars()
	p.step(2, fmt.Sprintf("Classifying %d jars", len(jars)))
	part, err := classify.Classify(jars, classify.Bootstrap(p.EngineVersion, m.UseAtomos()))
	if err != nil {
		return nil, nil, err
	}
	rep.Shadowed = p.dropBootstrapBundles(part)
	rep.Partition = part

	coords := part.Coordinates()
	p.step(3, fmt.Sprintf("Resolving %d sealed artifacts", len(coords)))
	resolved, err := p.Maven.Resolve(ctx, maven.NewSealedRequest(coords, p.GenericRepos))
	if err != nil {
		return nil, nil, err
	}
	if err := checkSealed(resolved); err != nil {
		return nil, nil, err
	}
	rep.Resolved = resolved

	p.step(4, fmt.Sprintf("Downloading %d p2 jars", len(part.P2Only)))
	downloaded, err := p.download(ctx, part.P2Only)
	if err != nil {
		return nil, nil, err
	}
	rep.Downloaded = downloaded

	p.step(5, "Assembling classpath")
	cp, err := assemble(part, resolved, downloaded)
	if err != nil {
		return nil, nil, err
	}
	rep.Classpath = cp
	rep.Duration = time.Since(start)
	return cp, rep, nil
}

// download fetches the P2-only jars inside one client scope. The scope is
// closed whether or not the downloads succeed.
func (p *Provisioner) download(ctx context.Context, units []unit.Unit) (paths []string, err error) {
	if len(units) == 0 {
		return nil, nil
	}
	client, err := p2.Open(p2.Options{
		CacheDir: p.CacheDir,
		HTTP:     p.HTTP,
		OnDownload: func(u unit.Unit, path string, cached bool) {
			if cached {
				p.line(fmt.Sprintf("cached %s", u))
				return
			}
			p.line(fmt.Sprintf("downloaded %s", u))
		},
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			if err == nil {
				err = cerr
				paths = nil
			} else {
				p.Log.Warn("closing p2 client", "err", cerr)
			}
		}
	}()
	return client.DownloadAll(ctx, units)
}

// dropBootstrapBundles removes P2-only units whose id is the artifact id of
// a bootstrap coordinate. Bootstrap entries are keyed by coordinate and P2
// entries by unit id, so assembly alone would put the bundle on the
// classpath twice. The bootstrap pin wins.
func (p *Provisioner) dropBootstrapBundles(part *classify.Partition) []unit.Unit {
	boot := make(map[string]unit.Coordinate, len(part.Bootstrap))
	for _, c := range part.Bootstrap {
		boot[c.Artifact] = c
	}
	var kept, dropped []unit.Unit
	for _, u := range part.P2Only {
		if c, ok := boot[u.ID]; ok {
			p.Log.Warn("p2 unit is a bootstrap bundle, keeping the bootstrap pin", "unit", u.String(), "bootstrap", c.String())
			dropped = append(dropped, u)
			continue
		}
		kept = append(kept, u)
	}
	part.P2Only = kept
	return dropped
}

func checkSealed(r *maven.Result) error {
	for _, a := range r.Artifacts {
		e, ok := r.Edge(a.Coordinate.Key())
		if !ok {
			return equoerr.Configf(equoerr.StageResolve, a.Coordinate.String(), "artifact has no dependency edge")
		}
		if !(maven.Dependency{Coordinate: e.Owner, Exclusions: e.Exclusions}).IsSealed() {
			return equoerr.Configf(equoerr.StageResolve, a.Coordinate.String(), "artifact was resolved without sealing")
		}
	}
	return nil
}

func assemble(part *classify.Partition, resolved *maven.Result, downloaded []string) (*classpath.Classpath, error) {
	byCoord := make(map[string]maven.Artifact, len(resolved.Artifacts))
	for _, a := range resolved.Artifacts {
		byCoord[a.Coordinate.String()] = a
	}
	entry := func(c unit.Coordinate, origin classpath.Origin) (classpath.Entry, error) {
		a, ok := byCoord[c.String()]
		if !ok {
			return classpath.Entry{}, equoerr.Resolution(equoerr.StageAssemble, c.String(), fmt.Errorf("resolver returned no artifact"))
		}
		return classpath.Entry{ID: c.Key(), Version: c.Version, Path: a.Path, Origin: origin}, nil
	}

	var boot, generic, fromP2 []classpath.Entry
	for _, c := range part.Bootstrap {
		e, err := entry(c, classpath.Bootstrap)
		if err != nil {
			return nil, err
		}
		boot = append(boot, e)
	}
	for _, u := range part.Generic {
		e, err := entry(*u.Maven, classpath.Generic)
		if err != nil {
			return nil, err
		}
		generic = append(generic, e)
	}
	for i, u := range part.P2Only {
		fromP2 = append(fromP2, classpath.Entry{ID: u.ID, Version: u.Version, Path: downloaded[i], Origin: classpath.P2})
	}
	return classpath.Assemble(boot, generic, fromP2)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (p *Provisioner) step(n int, label string) {
	p.Log.Printf("[%d/%d] %s", n, totalSteps, label)
	if p.OnStep != nil {
		p.OnStep(n, totalSteps, label)
	}
}

// line may be called from concurrent downloads.
func (p *Provisioner) line(s string) {
	p.lineMu.Lock()
	defer p.lineMu.Unlock()
	p.Log.Printf("  %s", s)
	if p.OnLine != nil {
		p.OnLine(s)
	}
}

// Job binds a Provisioner to a model so it can be handed to the launcher.
// Report is set once Build succeeds.
type Job struct {
	p      *Provisioner
	m      *model.Model
	Report *Report
}

// For returns the launcher.Builder building m.
func (p *Provisioner) For(m *model.Model) *Job {
	return &Job{p: p, m: m}
}

func (j *Job) Build(ctx context.Context) (*classpath.Classpath, error) {
	cp, rep, err := j.p.Build(ctx, j.m)
	if err != nil {
		return nil, err
	}
	j.Report = rep
	return cp, nil
}
