// Package editorerr classifies editor failures and carries the text shown to
// users separately from the internal error chain.
package editorerr

import (
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Error kinds surfaced by the editor.
const (
	KindNetwork    ftag.Kind = "network"    // audio fetch failed
	KindDecode     ftag.Kind = "decode"     // unsupported or corrupt audio
	KindDetection  ftag.Kind = "detection"  // tempo estimation failed, non-fatal
	KindValidation ftag.Kind = "validation" // malformed import file
	KindPlayback   ftag.Kind = "playback"   // media element refused to start
	KindCanceled   ftag.Kind = "canceled"   // superseded by a newer request
	KindNotFound             = ftag.NotFound
	KindInvalid              = ftag.InvalidArgument
)

const genericMessage = "Something went wrong. Please try again."

// New creates a tagged error with an internal message and a user-facing one.
func New(kind ftag.Kind, internal, userMsg string) error {
	return fault.New(internal, fmsg.WithDesc(internal, userMsg), ftag.With(kind))
}

// Wrap tags err and attaches a user-facing message. Wrap(nil, ...) is nil.
func Wrap(err error, kind ftag.Kind, userMsg string) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, fmsg.WithDesc(userMsg, userMsg), ftag.With(kind))
}

// KindOf returns the kind attached to err, or ftag.Internal.
func KindOf(err error) ftag.Kind {
	if err == nil {
		return ""
	}
	return ftag.Get(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind ftag.Kind) bool {
	return err != nil && ftag.Get(err) == kind
}

// Message returns the human-readable text for err. Raw error strings never
// leak through here.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	if errors.Is(err, ErrCanceled) {
		return "The operation was cancelled."
	}
	return genericMessage
}

// ErrCanceled marks work abandoned because its owner moved on.
var ErrCanceled = errors.New("canceled")

// Canceled wraps cause as superseded work.
func Canceled(cause error) error {
	return fault.Wrap(errors.Join(ErrCanceled, cause), ftag.With(KindCanceled))
}
