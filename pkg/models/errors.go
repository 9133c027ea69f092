package models

import "fmt"

// ConfigError reports an invalid input specification. It is fatal and aborts
// the run before any stage executes. Never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// SynthesisError reports a text-to-speech failure.
type SynthesisError struct {
	Voice  string
	Reason string
	Err    error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("synthesis failed (voice %s): %s: %v", e.Voice, e.Reason, e.Err)
	}
	return fmt.Sprintf("synthesis failed (voice %s): %s", e.Voice, e.Reason)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// FetchError reports that a media fetch failed on all providers.
type FetchError struct {
	Query string
	Kind  MediaKind
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %q (%s): %v", e.Query, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TranscriptionError reports a speech-to-text failure.
type TranscriptionError struct {
	AudioPath string
	Reason    string
	Err       error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription failed for %s: %s: %v", e.AudioPath, e.Reason, e.Err)
	}
	return fmt.Sprintf("transcription failed for %s: %s", e.AudioPath, e.Reason)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// AssemblyError reports a media muxing or encoding failure.
type AssemblyError struct {
	Reason string
	Err    error
}

func (e *AssemblyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assembly failed: %s: %v", e.Reason, e.Err)
	}
	return "assembly failed: " + e.Reason
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// MissingAssetError reports that reconciliation found a gap between the
// requested b-roll and the media actually fetched. Fatal for the segment;
// no placeholder timing is ever substituted.
type MissingAssetError struct {
	SegmentID int
	ClipIndex int
	Query     string
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("segment %d clip %d (%q): required media not fetched",
		e.SegmentID, e.ClipIndex, e.Query)
}
