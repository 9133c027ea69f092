package models

import (
	"fmt"
	"strings"
)

// Platform identifies the publishing target for a generated video.
type Platform string

// Supported target platforms
const (
	PlatformYouTubeShorts  Platform = "youtube_shorts"
	PlatformTikTok         Platform = "tiktok"
	PlatformInstagramReels Platform = "instagram_reels"
	PlatformYouTubeLong    Platform = "youtube_long"
)

// Platforms lists all valid target platforms
var Platforms = []Platform{
	PlatformYouTubeShorts,
	PlatformTikTok,
	PlatformInstagramReels,
	PlatformYouTubeLong,
}

// Resolution holds output dimensions in pixels
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Valid reports whether the platform is a known target
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Resolution returns the output resolution for the platform
func (p Platform) Resolution() Resolution {
	if p == PlatformYouTubeLong {
		return Resolution{Width: 1920, Height: 1080}
	}
	return Resolution{Width: 1080, Height: 1920}
}

// MaxDurationSec returns the platform's upper bound on target duration
func (p Platform) MaxDurationSec() float64 {
	switch p {
	case PlatformYouTubeShorts, PlatformInstagramReels:
		return 58
	case PlatformTikTok:
		return 90
	default:
		return 600
	}
}

// MediaKind distinguishes b-roll media types
type MediaKind string

// Supported b-roll media kinds
const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
)

// Valid reports whether the media kind is known
func (k MediaKind) Valid() bool {
	return k == MediaKindVideo || k == MediaKindImage
}

// ValidVoices lists the American English voices of the Kokoro-82M TTS model
var ValidVoices = []string{
	// Female voices
	"af_heart", "af_alloy", "af_aoede", "af_bella", "af_jessica",
	"af_kore", "af_nicole", "af_nova", "af_river", "af_sarah", "af_sky",
	// Male voices
	"am_adam", "am_echo", "am_eric", "am_fenrir", "am_liam",
	"am_michael", "am_onyx", "am_puck", "am_santa",
}

// ValidGenres lists the background music genre folders
var ValidGenres = []string{"lofi", "trap", "hiphop", "edm", "ambient"}

// SpeakingRateWordsPerSec is the planning constant used for the soft
// narration-length check. It is never enforced at runtime.
const SpeakingRateWordsPerSec = 2.5

// VideoSpec is the immutable input configuration for one pipeline run.
type VideoSpec struct {
	VideoName         string        `json:"video_name"`
	TargetPlatform    Platform      `json:"target_platform"`
	TargetDurationSec float64       `json:"target_duration_seconds"`
	VoiceName         string        `json:"voice_name"`
	MusicGenre        string        `json:"background_music_genre"`
	Segments          []SegmentSpec `json:"script_segments"`
	Publishing        *Metadata     `json:"publishing,omitempty"`
}

// SegmentSpec is one narration unit plus its b-roll requests.
type SegmentSpec struct {
	ID                int            `json:"segment_id"`
	AudioText         string         `json:"audio_text"`
	TargetDurationSec float64        `json:"target_duration_seconds,omitempty"`
	BrollClips        []BrollRequest `json:"broll_clips"`
}

// BrollRequest describes one piece of stock footage to fetch for a segment.
type BrollRequest struct {
	Kind               MediaKind `json:"type"`
	SearchQuery        string    `json:"search_query"`
	MinDurationSec     float64   `json:"min_duration,omitempty"`
	DisplayDurationSec float64   `json:"display_duration,omitempty"`
}

// Metadata holds publishing metadata carried through to the output tree.
type Metadata struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
}

// Validate checks the spec against the schema rules. It returns a ConfigError
// on any violation and a list of non-fatal planning warnings.
func (s *VideoSpec) Validate() ([]string, error) {
	if strings.TrimSpace(s.VideoName) == "" {
		return nil, &ConfigError{Reason: "missing required field: video_name"}
	}
	if s.TargetPlatform == "" {
		return nil, &ConfigError{Reason: "missing required field: target_platform"}
	}
	if !s.TargetPlatform.Valid() {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid platform: %s", s.TargetPlatform)}
	}
	if s.TargetDurationSec <= 0 {
		return nil, &ConfigError{Reason: "target_duration_seconds must be positive"}
	}
	if max := s.TargetPlatform.MaxDurationSec(); s.TargetDurationSec > max {
		return nil, &ConfigError{Reason: fmt.Sprintf(
			"target duration %.0fs exceeds %s limit of %.0fs",
			s.TargetDurationSec, s.TargetPlatform, max)}
	}
	if s.VoiceName == "" {
		return nil, &ConfigError{Reason: "missing required field: voice_name"}
	}
	if !contains(ValidVoices, s.VoiceName) {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid voice: %s", s.VoiceName)}
	}
	if s.MusicGenre == "" {
		return nil, &ConfigError{Reason: "missing required field: background_music_genre"}
	}
	if !contains(ValidGenres, s.MusicGenre) {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid music genre: %s", s.MusicGenre)}
	}
	if len(s.Segments) == 0 {
		return nil, &ConfigError{Reason: "script_segments cannot be empty"}
	}

	var warnings []string
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.ID != i+1 {
			return nil, &ConfigError{Reason: fmt.Sprintf(
				"segment ids must be contiguous starting at 1: got %d at position %d", seg.ID, i)}
		}
		if strings.TrimSpace(seg.AudioText) == "" {
			return nil, &ConfigError{Reason: fmt.Sprintf("segment %d missing audio_text", seg.ID)}
		}
		if len(seg.BrollClips) == 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("segment %d has no broll_clips", seg.ID)}
		}
		if len(seg.BrollClips) > 4 {
			return nil, &ConfigError{Reason: fmt.Sprintf(
				"segment %d has %d broll_clips, maximum is 4", seg.ID, len(seg.BrollClips))}
		}
		for j := range seg.BrollClips {
			clip := &seg.BrollClips[j]
			if clip.Kind == "" {
				clip.Kind = MediaKindVideo
			}
			if !clip.Kind.Valid() {
				return nil, &ConfigError{Reason: fmt.Sprintf(
					"segment %d clip %d: type must be 'video' or 'image'", seg.ID, j)}
			}
			if strings.TrimSpace(clip.SearchQuery) == "" {
				return nil, &ConfigError{Reason: fmt.Sprintf(
					"segment %d clip %d: search_query cannot be empty", seg.ID, j)}
			}
			if clip.MinDurationSec < 0 || clip.DisplayDurationSec < 0 {
				return nil, &ConfigError{Reason: fmt.Sprintf(
					"segment %d clip %d: durations cannot be negative", seg.ID, j)}
			}
		}

		// Soft planning check only: narration length vs. advisory duration.
		if seg.TargetDurationSec > 0 {
			words := len(strings.Fields(seg.AudioText))
			budget := seg.TargetDurationSec * SpeakingRateWordsPerSec
			if float64(words) > budget*1.2 {
				warnings = append(warnings, fmt.Sprintf(
					"segment %d: %d words likely exceeds %.0fs of narration at %.1f words/sec",
					seg.ID, words, seg.TargetDurationSec, SpeakingRateWordsPerSec))
			}
		}
	}

	return warnings, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
