// Package p2 queries P2 repositories for the units a model installs and
// downloads the jars that are only published there.
//
// The real P2 metadata (content.xml, artifacts.xml) is out of scope. A
// repository instead publishes equo-index.yaml at its root listing its units.
package p2

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

// IndexFile is the name of the unit index at a repository root.
const IndexFile = "equo-index.yaml"

// Index lists the units a repository publishes.
type Index interface {
	Units(ctx context.Context, repo string) ([]unit.Unit, error)
}

type indexDoc struct {
	Units []unit.Unit `yaml:"units"`
}

// ParseIndex decodes an index document and stamps every unit with repo.
func ParseIndex(data []byte, repo string) ([]unit.Unit, error) {
	var doc indexDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", IndexFile, err)
	}
	for i := range doc.Units {
		if doc.Units[i].ID == "" {
			return nil, fmt.Errorf("parse %s: unit #%d has no id", IndexFile, i+1)
		}
		doc.Units[i].Repository = repo
	}
	return doc.Units, nil
}

// HTTPIndex fetches each repository's index once and remembers the outcome,
// failures included.
type HTTPIndex struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]indexResult
}

type indexResult struct {
	units []unit.Unit
	err   error
}

// NewHTTPIndex returns an index reading over cli.
func NewHTTPIndex(cli *http.Client) *HTTPIndex {
	return &HTTPIndex{client: cli, cache: map[string]indexResult{}}
}

func (x *HTTPIndex) Units(ctx context.Context, repo string) ([]unit.Unit, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if r, ok := x.cache[repo]; ok {
		return r.units, r.err
	}
	units, err := x.fetch(ctx, repo)
	x.cache[repo] = indexResult{units: units, err: err}
	return units, err
}

func (x *HTTPIndex) fetch(ctx context.Context, repo string) ([]unit.Unit, error) {
	u := RepoURL(repo, IndexFile)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, equoerr.Config(equoerr.StageQuery, repo, err)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return nil, equoerr.Network(equoerr.StageQuery, repo, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, equoerr.Network(equoerr.StageQuery, repo, fmt.Errorf("fetch %s: %s", u, resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, equoerr.Network(equoerr.StageQuery, repo, err)
	}
	units, err := ParseIndex(data, repo)
	if err != nil {
		return nil, equoerr.Resolution(equoerr.StageQuery, repo, err)
	}
	return units, nil
}

// MemIndex is an in-memory Index keyed by repository.
type MemIndex map[string][]unit.Unit

func (m MemIndex) Units(_ context.Context, repo string) ([]unit.Unit, error) {
	units, ok := m[repo]
	if !ok {
		return nil, equoerr.Network(equoerr.StageQuery, repo, fmt.Errorf("no such repository"))
	}
	out := make([]unit.Unit, len(units))
	for i, u := range units {
		u.Repository = repo
		out[i] = u
	}
	return out, nil
}

// RepoURL joins a path below a repository root.
func RepoURL(repo, path string) string {
	return strings.TrimSuffix(repo, "/") + "/" + strings.TrimPrefix(path, "/")
}
