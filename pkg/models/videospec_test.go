package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *VideoSpec {
	return &VideoSpec{
		VideoName:         "morning_routine",
		TargetPlatform:    PlatformYouTubeShorts,
		TargetDurationSec: 30,
		VoiceName:         "af_heart",
		MusicGenre:        "lofi",
		Segments: []SegmentSpec{
			{
				ID:        1,
				AudioText: "Start your day with a glass of water.",
				BrollClips: []BrollRequest{
					{Kind: MediaKindVideo, SearchQuery: "pouring water glass"},
				},
			},
			{
				ID:        2,
				AudioText: "Then five minutes of stretching wakes the body up.",
				BrollClips: []BrollRequest{
					{Kind: MediaKindVideo, SearchQuery: "morning stretch"},
					{Kind: MediaKindImage, SearchQuery: "sunrise window"},
				},
			},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	warnings, err := validSpec().Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*VideoSpec)
		want   string
	}{
		{"missing name", func(s *VideoSpec) { s.VideoName = " " }, "video_name"},
		{"missing platform", func(s *VideoSpec) { s.TargetPlatform = "" }, "target_platform"},
		{"unknown platform", func(s *VideoSpec) { s.TargetPlatform = "vimeo" }, "invalid platform"},
		{"zero duration", func(s *VideoSpec) { s.TargetDurationSec = 0 }, "target_duration_seconds"},
		{"duration over platform limit", func(s *VideoSpec) { s.TargetDurationSec = 120 }, "limit"},
		{"unknown voice", func(s *VideoSpec) { s.VoiceName = "hal9000" }, "invalid voice"},
		{"unknown genre", func(s *VideoSpec) { s.MusicGenre = "polka" }, "invalid music genre"},
		{"no segments", func(s *VideoSpec) { s.Segments = nil }, "script_segments"},
		{"non-contiguous ids", func(s *VideoSpec) { s.Segments[1].ID = 5 }, "contiguous"},
		{"ids not starting at 1", func(s *VideoSpec) { s.Segments[0].ID = 0 }, "contiguous"},
		{"empty narration", func(s *VideoSpec) { s.Segments[0].AudioText = "" }, "audio_text"},
		{"no clips", func(s *VideoSpec) { s.Segments[0].BrollClips = nil }, "broll_clips"},
		{
			"too many clips",
			func(s *VideoSpec) {
				clip := BrollRequest{Kind: MediaKindVideo, SearchQuery: "x"}
				s.Segments[0].BrollClips = []BrollRequest{clip, clip, clip, clip, clip}
			},
			"maximum is 4",
		},
		{"bad media kind", func(s *VideoSpec) { s.Segments[0].BrollClips[0].Kind = "gif" }, "video' or 'image"},
		{"empty query", func(s *VideoSpec) { s.Segments[0].BrollClips[0].SearchQuery = "  " }, "search_query"},
		{"negative minimum", func(s *VideoSpec) { s.Segments[0].BrollClips[0].MinDurationSec = -1 }, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)

			_, err := spec.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDefaultsMediaKind(t *testing.T) {
	spec := validSpec()
	spec.Segments[0].BrollClips[0].Kind = ""

	_, err := spec.Validate()
	require.NoError(t, err)
	assert.Equal(t, MediaKindVideo, spec.Segments[0].BrollClips[0].Kind)
}

func TestValidateWarnsOnLongNarration(t *testing.T) {
	spec := validSpec()
	// Far more words than the advisory duration can hold at speaking rate.
	spec.Segments[0].TargetDurationSec = 5
	spec.Segments[0].AudioText = strings.Repeat("word ", 400)

	warnings, err := spec.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
}

func TestPlatformResolution(t *testing.T) {
	assert.Equal(t, Resolution{Width: 1080, Height: 1920}, PlatformYouTubeShorts.Resolution())
	assert.Equal(t, Resolution{Width: 1080, Height: 1920}, PlatformTikTok.Resolution())
	assert.Equal(t, Resolution{Width: 1920, Height: 1080}, PlatformYouTubeLong.Resolution())
}

func TestPlatformMaxDuration(t *testing.T) {
	assert.InDelta(t, 58, PlatformYouTubeShorts.MaxDurationSec(), 1e-9)
	assert.InDelta(t, 90, PlatformTikTok.MaxDurationSec(), 1e-9)
	assert.InDelta(t, 600, PlatformYouTubeLong.MaxDurationSec(), 1e-9)
}
