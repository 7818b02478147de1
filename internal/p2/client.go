package p2

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/httpclient"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

// ErrClosed is returned by downloads requested after Close.
var ErrClosed = errors.New("p2 client is closed")

// Options configures a Client.
type Options struct {
	// CacheDir is the root of the content-addressed jar cache.
	CacheDir string
	// HTTP defaults to httpclient.New(0).
	HTTP *http.Client
	// Parallelism bounds DownloadAll. Default 4.
	Parallelism int
	// OnDownload, if set, is called after each unit is available locally.
	OnDownload func(u unit.Unit, path string, cached bool)
}

// Client downloads P2-only jars into the cache. It is a scoped resource:
// Close waits for in-flight downloads and rejects new ones.
type Client struct {
	opts Options

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Open prepares the cache directory and returns a client.
func Open(opts Options) (*Client, error) {
	if opts.CacheDir == "" {
		return nil, equoerr.Configf(equoerr.StageDownload, "cache", "no cache directory")
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, equoerr.Cache(equoerr.StageDownload, opts.CacheDir, err)
	}
	if opts.HTTP == nil {
		opts.HTTP = httpclient.New(0)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &Client{opts: opts}, nil
}

// CachePath is where u is stored: id/version/checksum-prefix/filename.
// Units without a checksum share the "unverified" slot of their version.
func (c *Client) CachePath(u unit.Unit) string {
	digest := "unverified"
	if len(u.Checksum) >= 12 {
		digest = u.Checksum[:12]
	} else if u.Checksum != "" {
		digest = u.Checksum
	}
	return filepath.Join(c.opts.CacheDir, u.ID, u.Version, digest, path.Base(u.Location))
}

func (c *Client) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.wg.Add(1)
	return nil
}

// Download returns the local path of u's jar, fetching it when the cache
// does not already hold it.
func (c *Client) Download(ctx context.Context, u unit.Unit) (string, error) {
	if err := c.begin(); err != nil {
		return "", err
	}
	defer c.wg.Done()

	if u.Location == "" {
		return "", equoerr.Resolution(equoerr.StageDownload, u.String(), fmt.Errorf("unit has no artifact location"))
	}
	dest := c.CachePath(u)
	if _, err := os.Stat(dest); err == nil {
		if u.Checksum != "" {
			if err := httpclient.VerifyFile(dest, u.Checksum); err != nil {
				return "", cacheError(err)
			}
		}
		c.notify(u, dest, true)
		return dest, nil
	}

	src, err := artifactURL(u)
	if err != nil {
		return "", equoerr.Resolution(equoerr.StageDownload, u.String(), err)
	}
	if err := httpclient.Download(ctx, c.opts.HTTP, src, dest, u.Checksum); err != nil {
		if httpclient.IsFileError(err) {
			return "", cacheError(err)
		}
		return "", equoerr.Network(equoerr.StageDownload, u.String()+" from "+u.Repository, err)
	}
	c.notify(u, dest, false)
	return dest, nil
}

// cacheError reports a local file failure under its path.
func cacheError(err error) error {
	path, cause := httpclient.SplitFileError(err)
	return equoerr.Cache(equoerr.StageDownload, path, cause)
}

func (c *Client) notify(u unit.Unit, p string, cached bool) {
	if c.opts.OnDownload != nil {
		c.opts.OnDownload(u, p, cached)
	}
}

// DownloadAll downloads units in parallel and returns their paths in the
// order given. The first failure cancels the rest.
func (c *Client) DownloadAll(ctx context.Context, units []unit.Unit) ([]string, error) {
	paths := make([]string, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Parallelism)
	for i, u := range units {
		g.Go(func() error {
			p, err := c.Download(gctx, u)
			if err != nil {
				return err
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// Close waits for in-flight downloads. The cache directory is shared with
// other clients, so Close never touches files it did not write; Download
// removes its own partial file when a transfer fails.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

func artifactURL(u unit.Unit) (string, error) {
	loc, err := url.Parse(u.Location)
	if err != nil {
		return "", err
	}
	if loc.IsAbs() {
		return loc.String(), nil
	}
	if u.Repository == "" {
		return "", fmt.Errorf("relative artifact %q without a repository", u.Location)
	}
	return RepoURL(u.Repository, u.Location), nil
}
