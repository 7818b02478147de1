package maven

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/httpclient"
)

// HTTPResolver downloads sealed dependencies from remote repositories into
// a local repository laid out like ~/.m2/repository.
type HTTPResolver struct {
	Client    *http.Client
	LocalRepo string
	// OnResolve, if set, is called once per artifact.
	OnResolve func(a Artifact, cached bool)
}

// NewHTTPResolver returns a resolver caching into localRepo.
func NewHTTPResolver(cli *http.Client, localRepo string) *HTTPResolver {
	if cli == nil {
		cli = httpclient.New(0)
	}
	return &HTTPResolver{Client: cli, LocalRepo: localRepo}
}

// Resolve fetches each dependency from the first repository that has it.
// Unsealed dependencies are rejected before any request is made. Because
// every dependency is sealed, the result holds exactly the requested
// coordinates, each with its own edge.
func (r *HTTPResolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	for _, d := range req.Dependencies {
		if !d.IsSealed() {
			return nil, equoerr.Configf(equoerr.StageResolve, d.Coordinate.String(),
				"dependency is not sealed; transitive resolution is not allowed")
		}
	}
	if len(req.Dependencies) > 0 && len(req.Repositories) == 0 {
		return nil, equoerr.Configf(equoerr.StageResolve, "repositories", "no generic repositories configured")
	}

	res := &Result{}
	seen := map[string]bool{}
	for _, d := range req.Dependencies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[d.Coordinate.String()] {
			continue
		}
		seen[d.Coordinate.String()] = true

		a, cached, err := r.fetch(ctx, d, req.Repositories)
		if err != nil {
			return nil, err
		}
		res.Artifacts = append(res.Artifacts, a)
		res.Edges = append(res.Edges, Edge{Owner: d.Coordinate, Exclusions: append([]Exclusion(nil), d.Exclusions...)})
		if r.OnResolve != nil {
			r.OnResolve(a, cached)
		}
	}
	return res, nil
}

func (r *HTTPResolver) fetch(ctx context.Context, d Dependency, repos []string) (Artifact, bool, error) {
	rel := LayoutPath(d.Coordinate)
	dest := filepath.Join(r.LocalRepo, filepath.FromSlash(rel))
	if _, err := os.Stat(dest); err == nil {
		return Artifact{Coordinate: d.Coordinate, Path: dest}, true, nil
	}

	for _, repo := range repos {
		src := strings.TrimSuffix(repo, "/") + "/" + rel
		err := httpclient.Download(ctx, r.Client, src, dest, "")
		if err == nil {
			return Artifact{Coordinate: d.Coordinate, Path: dest, Repository: repo}, false, nil
		}
		if httpclient.NotFound(err) {
			continue
		}
		if httpclient.IsFileError(err) {
			path, cause := httpclient.SplitFileError(err)
			return Artifact{}, false, equoerr.Cache(equoerr.StageResolve, path, cause)
		}
		return Artifact{}, false, equoerr.Network(equoerr.StageResolve, d.Coordinate.String()+" from "+repo, err)
	}
	return Artifact{}, false, equoerr.Resolution(equoerr.StageResolve, d.Coordinate.String(),
		fmt.Errorf("not found in any of %d generic repositories", len(repos)))
}
