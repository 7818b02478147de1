package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/agustinschilling/equo-ide/internal/classify"
	"github.com/agustinschilling/equo-ide/internal/httpclient"
	"github.com/agustinschilling/equo-ide/internal/logger"
	"github.com/agustinschilling/equo-ide/internal/manifest"
	"github.com/agustinschilling/equo-ide/internal/maven"
	"github.com/agustinschilling/equo-ide/internal/model"
	"github.com/agustinschilling/equo-ide/internal/p2"
	"github.com/agustinschilling/equo-ide/internal/provisioner"
	"github.com/agustinschilling/equo-ide/internal/workspace"
)

// project is the provisioning file and the workspace it launches into.
type project struct {
	file     string
	ws       *workspace.Workspace
	manifest *manifest.Manifest
}

// workspaceDir resolves --workspace, defaulting to build/equo-ide next to
// the provisioning file so a wipe never touches the project itself.
func workspaceDir() (string, error) {
	if dir := viper.GetString("workspace"); dir != "" {
		return filepath.Abs(dir)
	}
	file, err := filepath.Abs(viper.GetString("file"))
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(file), "build", "equo-ide"), nil
}

func loadProject(ctx context.Context) (*project, error) {
	file, err := filepath.Abs(viper.GetString("file"))
	if err != nil {
		return nil, err
	}
	dir, err := workspaceDir()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(ctx, manifest.LoadOptions{
		RemoteURL:     viper.GetString("manifest-url"),
		LocalOverride: file,
	})
	if err != nil {
		return nil, err
	}
	return &project{file: file, ws: workspace.New(dir), manifest: m}, nil
}

// prepare builds the model from the provisioning file. forceAtomos lets a
// flag turn Atomos on even when the file does not.
func (p *project) prepare(forceAtomos bool) (*model.Model, error) {
	b := model.NewBuilder()
	if err := p.manifest.Apply(b); err != nil {
		return nil, err
	}
	if mirror := viper.GetString("catalog-mirror"); mirror != "" {
		if err := b.CatalogMirror(mirror); err != nil {
			return nil, err
		}
	}
	if forceAtomos {
		if err := b.SetUseAtomos(true); err != nil {
			return nil, err
		}
	}
	return b.Prepare(nil)
}

func (p *project) genericRepos() []string {
	if len(p.manifest.MavenRepos) > 0 {
		return p.manifest.MavenRepos
	}
	return []string{maven.Central}
}

func p2CacheDir() (string, error) {
	if dir := viper.GetString("cache-dir"); dir != "" {
		return filepath.Abs(dir)
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(base, "equo-ide", "p2"), nil
}

func mavenLocalRepo() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home dir: %w", err)
	}
	return filepath.Join(home, ".m2", "repository"), nil
}

// newProvisioner wires the HTTP index, the Maven resolver and the P2 cache
// around one shared client.
func (p *project) newProvisioner(log *logger.Logger) (*provisioner.Provisioner, *maven.HTTPResolver, error) {
	cache, err := p2CacheDir()
	if err != nil {
		return nil, nil, err
	}
	local, err := mavenLocalRepo()
	if err != nil {
		return nil, nil, err
	}
	cli := httpclient.New(0)
	res := maven.NewHTTPResolver(cli, local)
	return &provisioner.Provisioner{
		Index:         p2.NewHTTPIndex(cli),
		Maven:         res,
		GenericRepos:  p.genericRepos(),
		CacheDir:      cache,
		HTTP:          cli,
		EngineVersion: classify.EngineVersion,
		Log:           log,
	}, res, nil
}
