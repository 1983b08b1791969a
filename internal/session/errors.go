package session

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/cceval/internal/claude"
)

var (
	// ErrMalformedTranscript matches every transcript the parser rejects.
	ErrMalformedTranscript = errors.New("malformed transcript")

	// ErrOutOfOrderTimestamp matches transcripts whose turns go back in time.
	// Such errors also match ErrMalformedTranscript.
	ErrOutOfOrderTimestamp = errors.New("timestamp out of order")
)

// MalformedTranscriptError names the first offending record. Index is the
// zero-based record position, or -1 when the problem is the transcript as a
// whole.
type MalformedTranscriptError struct {
	Index  int
	Reason string
	Err    error
}

func (e *MalformedTranscriptError) Error() string {
	msg := "malformed transcript"
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: record %d", msg, e.Index)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil && !errors.Is(e.Err, ErrOutOfOrderTimestamp) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedTranscriptError) Unwrap() error { return e.Err }

// Is reports ErrMalformedTranscript for every MalformedTranscriptError.
func (e *MalformedTranscriptError) Is(target error) bool {
	return target == ErrMalformedTranscript
}

func malformed(index int, reason string) error {
	return &MalformedTranscriptError{Index: index, Reason: reason}
}

// WrapDecodeError converts a JSONL decoding failure from the claude package
// into a MalformedTranscriptError. Other errors pass through unchanged.
func WrapDecodeError(err error) error {
	var de *claude.DecodeError
	if errors.As(err, &de) {
		return &MalformedTranscriptError{Index: de.Line, Reason: "undecodable record", Err: de.Err}
	}
	return err
}
