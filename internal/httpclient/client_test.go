package httpclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestUserAgent verifies the default and appended User-Agent strings.
func TestUserAgent(t *testing.T) {
	t.Setenv(uaEnvVar, "")
	if got, want := UserAgent("1.2.3"), "equo-ide/1.2.3 (+https://equo.dev)"; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
	t.Setenv(uaEnvVar, "  ci-runner ")
	if got, want := UserAgent("1.2.3"), "equo-ide/1.2.3 (+https://equo.dev) ci-runner"; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}

// TestClientSendsUserAgent verifies requests carry the User-Agent unless
// the caller already set one.
func TestClientSendsUserAgent(t *testing.T) {
	t.Setenv(uaEnvVar, "")
	uas := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uas <- r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	cli := New(0)
	resp, err := cli.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom")
	resp, err = cli.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := <-uas; got != UserAgent(Version) {
		t.Errorf("default User-Agent = %q, want %q", got, UserAgent(Version))
	}
	if got := <-uas; got != "custom" {
		t.Errorf("explicit User-Agent = %q, want custom", got)
	}
}

// ── Download ─────────────────────────────────────────────────────────────────

const payload = "jar bytes"

var payloadSum = func() string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}()

// TestDownloadVerified verifies a matching checksum leaves only the final
// file behind.
func TestDownloadVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a", "b.jar")
	if err := Download(context.Background(), New(0), srv.URL+"/b.jar", dest, payloadSum); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != payload {
		t.Fatalf("dest = %q, %v", data, err)
	}
	assertNoTemp(t, filepath.Dir(dest))
	if err := VerifyFile(dest, payloadSum); err != nil {
		t.Errorf("VerifyFile() error = %v", err)
	}
}

// TestDownloadChecksumMismatch verifies a bad digest is a FileError wrapping
// ErrChecksum and nothing is left on disk.
func TestDownloadChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "tampered")
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "b.jar")
	err := Download(context.Background(), New(0), srv.URL, dest, payloadSum)
	var fe *FileError
	if !errors.As(err, &fe) || !errors.Is(err, ErrChecksum) {
		t.Fatalf("Download() error = %v, want FileError wrapping ErrChecksum", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("dest exists after a checksum mismatch")
	}
	assertNoTemp(t, dir)
}

// TestDownloadStatus verifies non-200 responses are network failures.
func TestDownloadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := Download(context.Background(), New(0), srv.URL, filepath.Join(t.TempDir(), "x"), "")
	var fe *FileError
	if err == nil || errors.As(err, &fe) {
		t.Errorf("Download() error = %v, want a plain network error", err)
	}
	if !NotFound(err) {
		t.Errorf("NotFound(%v) = false", err)
	}
}

// TestDownloadFileScheme verifies file:// URLs are served from disk.
func TestDownloadFileScheme(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file URLs are rooted differently on windows")
	}
	src := filepath.Join(t.TempDir(), "src.jar")
	if err := os.WriteFile(src, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "dest.jar")
	if err := Download(context.Background(), New(0), "file://"+src, dest, payloadSum); err != nil {
		t.Fatalf("Download(file) error = %v", err)
	}
}

func assertNoTemp(t *testing.T, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, TempPattern))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}
