package httpclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// TempPattern names the partial files Download leaves next to their
// destination while a transfer is in flight.
const TempPattern = ".equo-download-*"

// ErrChecksum is returned when downloaded bytes do not match the expected
// digest.
var ErrChecksum = errors.New("checksum mismatch")

// StatusError is a response other than 200 OK.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unsuccessful request to %s: %s", e.URL, e.Status)
}

// NotFound reports whether err is a 404 response.
func NotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// FileError is a failure of the local filesystem, as opposed to the network.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// IsFileError reports whether err is, or wraps, a FileError.
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe)
}

// SplitFileError returns the path and cause of the FileError in err, so
// callers that name the path themselves do not repeat it. Any other error
// is returned whole with an empty path.
func SplitFileError(err error) (string, error) {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Path, fe.Err
	}
	return "", err
}

// Download fetches rawURL into dest. The body is written to a temporary file
// in dest's directory and renamed into place only once it is complete and,
// when wantSHA256 is set, verified. dest therefore either does not exist or
// holds the full artifact.
func Download(ctx context.Context, cli *http.Client, rawURL, dest, wantSHA256 string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("invalid download request: %w", err)
	}
	resp, err := cli.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return fmt.Errorf("download of %s was interrupted", rawURL)
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: rawURL, Status: resp.Status, Code: resp.StatusCode}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FileError{Path: dir, Err: err}
	}
	f, err := os.CreateTemp(dir, TempPattern)
	if err != nil {
		return &FileError{Path: dir, Err: err}
	}
	tmp := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), resp.Body)
	if err == nil && resp.ContentLength >= 0 && n < resp.ContentLength {
		err = fmt.Errorf("incorrect response size: expected %d bytes, but got %d bytes", resp.ContentLength, n)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", rawURL, err)
	}
	if wantSHA256 != "" {
		if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, wantSHA256) {
			return &FileError{Path: dest, Err: fmt.Errorf("%w: got sha256 %s, want %s", ErrChecksum, got, wantSHA256)}
		}
	}
	if err := f.Close(); err != nil {
		return &FileError{Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		return &FileError{Path: dest, Err: err}
	}
	committed = true
	return nil
}

// VerifyFile checks that the file at path hashes to wantSHA256.
func VerifyFile(path, wantSHA256 string) error {
	f, err := os.Open(path)
	if err != nil {
		return &FileError{Path: path, Err: err}
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return &FileError{Path: path, Err: err}
	}
	if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, wantSHA256) {
		return &FileError{Path: path, Err: fmt.Errorf("%w: got sha256 %s, want %s", ErrChecksum, got, wantSHA256)}
	}
	return nil
}
