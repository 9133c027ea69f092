package models

import "time"

// WordStamp is one transcribed word with its timing in seconds.
type WordStamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ResolvedClip owns a locally cached media file fetched for one b-roll
// request. It is derived once and never mutated after fetch.
type ResolvedClip struct {
	Request     BrollRequest `json:"request"`
	Path        string       `json:"path"`
	Provider    string       `json:"provider"`
	DurationSec float64      `json:"duration_seconds"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

// ClipPlacement is one entry in a segment's reconciled timeline. Placements
// cover [0, narration duration] contiguously with no gaps or overlaps.
type ClipPlacement struct {
	ClipIndex    int     `json:"clip_index"`
	StartOffset  float64 `json:"start_offset"`
	PlayDuration float64 `json:"play_duration"`
	SpeedFactor  float64 `json:"speed_factor"`
}

// ResolvedSegment is the runtime artifact built left to right during a run:
// the input segment plus everything the stages derived from it.
type ResolvedSegment struct {
	Spec             SegmentSpec     `json:"spec"`
	AudioPath        string          `json:"audio_path"`
	AudioDurationSec float64         `json:"audio_duration_seconds"`
	Clips            []ResolvedClip  `json:"clips"`
	Words            []WordStamp     `json:"words,omitempty"`
	Placements       []ClipPlacement `json:"placements,omitempty"`
	FinalDurationSec float64         `json:"final_duration_seconds"`
}

// Clip returns the resolved clip for a request index. Clips are ordered
// parallel to Spec.BrollClips; an empty Path means the fetch did not
// produce media for that request.
func (s *ResolvedSegment) Clip(index int) *ResolvedClip {
	if index < 0 || index >= len(s.Clips) || s.Clips[index].Path == "" {
		return nil
	}
	return &s.Clips[index]
}
