// Package equoerr defines the error taxonomy shared by every stage of the
// provisioning pipeline. Each error carries a kind, the stage it happened in
// and the subject (coordinate, unit id or path) it concerns, so user-visible
// failures always say what broke and where.
package equoerr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match with errors.Is.
var (
	ErrConfig     = errors.New("configuration error")
	ErrResolution = errors.New("resolution error")
	ErrNetwork    = errors.New("network error")
	ErrCache      = errors.New("cache error")
	ErrLaunch     = errors.New("launch error")
)

// Stage names the pipeline step an error was raised in.
type Stage string

const (
	StagePrepare  Stage = "prepare"
	StageQuery    Stage = "query"
	StageClassify Stage = "classify"
	StageResolve  Stage = "resolve"
	StageDownload Stage = "download"
	StageAssemble Stage = "assemble"
	StageWipe     Stage = "wipe"
	StageLaunch   Stage = "launch"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind    error
	Stage   Stage
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Subject != "" {
		msg += ": " + e.Subject
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, stage Stage, subject string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Subject: subject, Err: err}
}

// Config reports conflicting or malformed directives.
func Config(stage Stage, subject string, err error) *Error {
	return newError(ErrConfig, stage, subject, err)
}

// Configf is Config with a formatted cause.
func Configf(stage Stage, subject, format string, args ...any) *Error {
	return newError(ErrConfig, stage, subject, fmt.Errorf(format, args...))
}

// Resolution reports a unit that no configured repository can provide.
func Resolution(stage Stage, subject string, err error) *Error {
	return newError(ErrResolution, stage, subject, err)
}

// Network reports an I/O failure talking to a repository.
func Network(stage Stage, subject string, err error) *Error {
	return newError(ErrNetwork, stage, subject, err)
}

// Cache reports a corrupt or unwritable on-disk cache entry.
func Cache(stage Stage, path string, err error) *Error {
	return newError(ErrCache, stage, path, err)
}

// Launch reports a wipe or process start failure.
func Launch(stage Stage, subject string, err error) *Error {
	return newError(ErrLaunch, stage, subject, err)
}

// KindOf returns the kind sentinel of err, or nil if err is unclassified.
func KindOf(err error) error {
	for _, k := range []error{ErrConfig, ErrResolution, ErrNetwork, ErrCache, ErrLaunch} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
