// Package diagnostics carries user-facing status for the camera screen.
package diagnostics

import (
	"errors"
	"fmt"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes published by the session.
const (
	CodeNoCamera       = "camera.unavailable"
	CodeCameraDenied   = "camera.denied"
	CodeAttachFailed   = "camera.attach_failed"
	CodeConfigFailed   = "camera.config_failed"
	CodeCaptureFailed  = "capture.failed"
	CodeLibraryDenied  = "library.denied"
	CodeSaveFailed     = "library.save_failed"
	CodeSaved          = "library.saved"
	CodeLUTImport      = "lut.import_failed"
	CodeLUTNotFound    = "lut.not_found"
	CodeLUTImported    = "lut.imported"
	CodeRuntimeFailure = "session.runtime_error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Summary)
	}
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.Summary, d.Detail)
}

// IsZero reports whether no status is set.
func (d Diagnostic) IsZero() bool { return d.Code == "" && d.Summary == "" }

func New(sev Severity, code, summary string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Summary: summary}
}

// FromError wraps err as an error-severity diagnostic.
func FromError(code, summary string, err error) Diagnostic {
	d := Diagnostic{Severity: Err, Code: code, Summary: summary}
	if err != nil {
		d.Detail = err.Error()
		for u := errors.Unwrap(err); u != nil; u = errors.Unwrap(u) {
			d.LikelyCauses = append(d.LikelyCauses, u.Error())
		}
	}
	return d
}

// With adds one evidence entry.
func (d Diagnostic) With(key string, v any) Diagnostic {
	ev := make(map[string]any, len(d.Evidence)+1)
	for k, x := range d.Evidence {
		ev[k] = x
	}
	ev[key] = v
	d.Evidence = ev
	return d
}

// Fix appends a suggested fix.
func (d Diagnostic) Fix(s string) Diagnostic {
	d.SuggestedFixes = append(append([]string(nil), d.SuggestedFixes...), s)
	return d
}
