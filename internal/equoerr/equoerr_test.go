package equoerr

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

// TestErrorMatchesKind verifies that errors.Is matches the kind sentinel and
// not the other kinds.
func TestErrorMatchesKind(t *testing.T) {
	err := Resolution(StageQuery, "org.eclipse.missing", errors.New("not found"))

	if !errors.Is(err, ErrResolution) {
		t.Error("errors.Is(err, ErrResolution) = false, want true")
	}
	if errors.Is(err, ErrConfig) {
		t.Error("errors.Is(err, ErrConfig) = true, want false")
	}
}

// TestErrorMatchesCause verifies that the wrapped cause stays reachable.
func TestErrorMatchesCause(t *testing.T) {
	err := Cache(StageDownload, "/tmp/cache", fs.ErrPermission)
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is(err, fs.ErrPermission) = false, want true")
	}
}

// TestErrorMessageNamesStageAndSubject verifies the user-visible message.
func TestErrorMessageNamesStageAndSubject(t *testing.T) {
	err := Network(StageDownload, "org.eclipse.swt", errors.New("connection refused"))
	msg := err.Error()
	for _, want := range []string{"download", "network error", "org.eclipse.swt", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

// TestKindOfThroughWrapping verifies KindOf sees through fmt.Errorf wrapping.
func TestKindOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("launch failed: %w", Launch(StageWipe, "/ws", errors.New("busy")))
	if got := KindOf(err); got != ErrLaunch {
		t.Errorf("KindOf() = %v, want %v", got, ErrLaunch)
	}
	if got := KindOf(errors.New("plain")); got != nil {
		t.Errorf("KindOf(plain) = %v, want nil", got)
	}
}

// TestConfigfWithoutSubject verifies the message omits an empty subject.
func TestConfigfWithoutSubject(t *testing.T) {
	err := Configf(StagePrepare, "", "two platform filters: %s vs %s", "a", "b")
	if got := err.Error(); got != "prepare: configuration error: two platform filters: a vs b" {
		t.Errorf("Error() = %q", got)
	}
}
