package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
	}{
		{"synthesis", &SynthesisError{Voice: "af_heart", Reason: "engine failed", Err: cause}},
		{"fetch", &FetchError{Query: "city", Kind: MediaKindVideo, Err: cause}},
		{"transcription", &TranscriptionError{AudioPath: "a.wav", Reason: "whisper failed", Err: cause}},
		{"assembly", &AssemblyError{Reason: "mux failed", Err: cause}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, cause)
			assert.Contains(t, tt.err.Error(), "connection refused")
		})
	}
}

func TestMissingAssetError(t *testing.T) {
	err := &MissingAssetError{SegmentID: 2, ClipIndex: 1, Query: "ocean waves"}
	assert.Contains(t, err.Error(), "segment 2")
	assert.Contains(t, err.Error(), "ocean waves")
}

func TestErrorAsThroughWrapping(t *testing.T) {
	inner := &FetchError{Query: "city", Kind: MediaKindVideo, Err: errors.New("quota")}
	wrapped := fmt.Errorf("stage failed: %w", inner)

	var fetchErr *FetchError
	require.ErrorAs(t, wrapped, &fetchErr)
	assert.Equal(t, "city", fetchErr.Query)
}

func TestResolvedSegmentClip(t *testing.T) {
	seg := &ResolvedSegment{
		Clips: []ResolvedClip{
			{Path: "/tmp/a.mp4"},
			{Path: ""},
		},
	}

	require.NotNil(t, seg.Clip(0))
	assert.Nil(t, seg.Clip(1)) // Fetch produced nothing for this request
	assert.Nil(t, seg.Clip(2))
	assert.Nil(t, seg.Clip(-1))
}
