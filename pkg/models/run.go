package models

import "time"

// RunState is a stage in the strictly sequential run state machine.
type RunState string

// Run states, in order. A run never branches back; Failed is terminal and
// reachable from any state.
const (
	RunStateConfigured       RunState = "configured"
	RunStateAudioSynthesized RunState = "audio_synthesized"
	RunStateFootageFetched   RunState = "footage_fetched"
	RunStateTranscribed      RunState = "transcribed"
	RunStateReconciled       RunState = "reconciled"
	RunStateAssembled        RunState = "assembled"
	RunStateDone             RunState = "done"
	RunStateFailed           RunState = "failed"
)

// RunSummary is the persisted record of one pipeline run, written to the
// run directory at every state transition.
type RunSummary struct {
	RunID            string    `json:"run_id"`
	VideoName        string    `json:"video_name"`
	Platform         Platform  `json:"platform"`
	State            RunState  `json:"state"`
	FailedStage      RunState  `json:"failed_stage,omitempty"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	Warnings         []string  `json:"warnings,omitempty"`
	OutputPath       string    `json:"output_path,omitempty"`
	FinalDurationSec float64   `json:"final_duration_seconds,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at,omitempty"`
}
