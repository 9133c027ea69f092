package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"shortreel/internal/assembler"
	"shortreel/internal/cache"
	"shortreel/internal/config"
	"shortreel/internal/footage"
	"shortreel/internal/logging"
	"shortreel/internal/publish"
	"shortreel/internal/reconcile"
	"shortreel/internal/transcribe"
	"shortreel/internal/tts"
	"shortreel/pkg/models"
)

const (
	// FinalArtifactName marks a run directory as complete
	FinalArtifactName = "final_output.mp4"

	runLogName     = "generation.log"
	runSummaryName = "run_summary.json"
	specCopyName   = "input.json"

	audioDirName    = "audio_segments"
	brollDirName    = "broll"
	subtitleDirName = "subtitles"
)

// Pipeline drives one run through the sequential stage machine. Stages never
// run out of order and a failure at any stage terminates the run with a
// single attributed reason.
type Pipeline struct {
	cfg    *config.Config
	spec   *models.VideoSpec
	logger *logging.Logger

	runID  string
	runDir string

	summary  models.RunSummary
	segments []*models.ResolvedSegment

	synth       *tts.Synthesizer
	fetcher     *footage.Fetcher
	transcriber *transcribe.Transcriber
	asm         *assembler.Assembler
	publisher   *publish.Publisher
}

// New prepares a run: creates the run directory, copies the input spec into
// it, opens the run log and wires the stage adapters.
func New(cfg *config.Config, spec *models.VideoSpec, specPath string, warnings []string) (*Pipeline, error) {
	runID := uuid.New().String()
	runDir := filepath.Join(cfg.Paths.OutputRoot,
		fmt.Sprintf("%s_%s", spec.VideoName, time.Now().Format("20060102_150405")))

	for _, sub := range []string{audioDirName, brollDirName, subtitleDirName} {
		if err := os.MkdirAll(filepath.Join(runDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create run dir: %w", err)
		}
	}

	logger, err := logging.NewRunLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, filepath.Join(runDir, runLogName))
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	logger = logger.WithRunID(runID)

	if err := copySpecFile(specPath, filepath.Join(runDir, specCopyName)); err != nil {
		return nil, err
	}

	creds, err := config.LoadCredentials(cfg.Paths.Credentials)
	if err != nil {
		return nil, err
	}

	responseCache, err := cache.New(cfg.Paths.CacheDir, cfg.Footage.CacheTTL)
	if err != nil {
		return nil, err
	}

	searchClient := footage.SearchClient(cfg.Footage)
	providers := []footage.Provider{
		footage.NewPexelsClient(creds.Pexels, cfg.Footage.PerPage, searchClient, cfg.Footage.PexelsPerHour),
		footage.NewPixabayClient(creds.Pixabay, cfg.Footage.PerPage, searchClient, cfg.Footage.PixabayPerHour),
	}

	publisher, err := publish.New(cfg.Publish, logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		spec:   spec,
		logger: logger,
		runID:  runID,
		runDir: runDir,
		summary: models.RunSummary{
			RunID:     runID,
			VideoName: spec.VideoName,
			Platform:  spec.TargetPlatform,
			State:     models.RunStateConfigured,
			Warnings:  warnings,
			StartedAt: time.Now(),
		},
		synth:       tts.NewSynthesizer(cfg.TTS, cfg.Assembler.FFprobePath, logger),
		fetcher:     footage.NewFetcher(cfg.Footage, cfg.Assembler, providers, responseCache, logger),
		transcriber: transcribe.NewTranscriber(cfg.Transcribe, cfg.Assembler.FFmpegPath, logger),
		asm:         assembler.New(cfg.Assembler, cfg.Paths.MusicDir, logger),
		publisher:   publisher,
	}

	for _, w := range warnings {
		logger.Warn(w)
	}

	p.segments = make([]*models.ResolvedSegment, len(spec.Segments))
	for i := range spec.Segments {
		p.segments[i] = &models.ResolvedSegment{Spec: spec.Segments[i]}
	}

	return p, p.persistSummary()
}

// RunDir returns the directory holding this run's artifacts
func (p *Pipeline) RunDir() string { return p.runDir }

// Run executes every stage in order. The returned error, if any, has already
// been attributed and written to the run log and summary.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Infof("starting run for %q (%d segments, platform %s)",
		p.spec.VideoName, len(p.segments), p.spec.TargetPlatform)

	if err := p.synthesizeAudio(ctx); err != nil {
		return p.fail(models.RunStateConfigured, err)
	}
	p.advance(models.RunStateAudioSynthesized)

	if err := p.fetchFootage(ctx); err != nil {
		return p.fail(models.RunStateAudioSynthesized, err)
	}
	p.advance(models.RunStateFootageFetched)

	cues, err := p.transcribeNarration(ctx)
	if err != nil {
		return p.fail(models.RunStateFootageFetched, err)
	}
	p.advance(models.RunStateTranscribed)

	if err := p.reconcileSegments(); err != nil {
		return p.fail(models.RunStateTranscribed, err)
	}
	p.advance(models.RunStateReconciled)

	duration, err := p.assemble(ctx, cues)
	if err != nil {
		return p.fail(models.RunStateReconciled, err)
	}
	p.advance(models.RunStateAssembled)

	p.summary.FinalDurationSec = duration
	p.summary.OutputPath = filepath.Join(p.runDir, FinalArtifactName)
	p.summary.CompletedAt = time.Now()
	p.advance(models.RunStateDone)

	// Publishing is best effort and happens after the run is complete: a
	// store failure never invalidates a finished artifact.
	if err := p.publishArtifact(ctx); err != nil {
		p.logger.Warnf("publish failed: %v", err)
	}

	p.logger.Infof("run complete: %s (%.2fs)", p.summary.OutputPath, duration)
	return nil
}

// synthesizeAudio renders each segment's narration sequentially. Ordering
// matters: segment audio lengths feed every later stage.
func (p *Pipeline) synthesizeAudio(ctx context.Context) error {
	for _, seg := range p.segments {
		audioPath := filepath.Join(p.runDir, audioDirName,
			fmt.Sprintf("segment_%03d.wav", seg.Spec.ID))

		start := time.Now()
		duration, err := p.synth.Synthesize(ctx, seg.Spec.AudioText, p.spec.VoiceName, audioPath)
		p.logger.LogAdapterCall("tts", fmt.Sprintf("segment %d", seg.Spec.ID), time.Since(start), err)
		if err != nil {
			return err
		}

		seg.AudioPath = audioPath
		seg.AudioDurationSec = duration
		p.logger.WithSegment(seg.Spec.ID).Infof("narration synthesized: %.2fs", duration)
	}
	return nil
}

func (p *Pipeline) fetchFootage(ctx context.Context) error {
	return p.fetcher.FetchAll(ctx, p.spec, p.segments, filepath.Join(p.runDir, brollDirName))
}

// transcribeNarration recovers word timestamps per segment and shifts them
// onto the full-video timeline, then writes the subtitle track.
func (p *Pipeline) transcribeNarration(ctx context.Context) ([]transcribe.Cue, error) {
	var global []models.WordStamp
	offset := 0.0

	for _, seg := range p.segments {
		words, err := p.transcriber.Transcribe(ctx, seg.AudioPath)
		if err != nil {
			return nil, err
		}
		seg.Words = words

		for _, w := range words {
			global = append(global, models.WordStamp{
				Word:  w.Word,
				Start: w.Start + offset,
				End:   w.End + offset,
			})
		}
		offset += seg.AudioDurationSec

		p.logger.WithSegment(seg.Spec.ID).Infof("transcribed %d words", len(words))
	}

	cues := transcribe.BuildCues(global, transcribe.DefaultWordsPerCue)

	srtPath := filepath.Join(p.runDir, subtitleDirName, "subtitles.srt")
	if err := transcribe.WriteSRT(cues, srtPath); err != nil {
		p.logger.Warnf("failed to write srt file: %v", err)
	}

	return cues, nil
}

// reconcileSegments plans each segment's clip timeline against its measured
// narration length.
func (p *Pipeline) reconcileSegments() error {
	for _, seg := range p.segments {
		fetched := make([]float64, len(seg.Clips))
		for i := range seg.Clips {
			if seg.Clips[i].Path == "" {
				fetched[i] = reconcile.Missing
				continue
			}
			fetched[i] = seg.Clips[i].DurationSec
		}

		plan, err := reconcile.Reconcile(seg.Spec.ID, seg.AudioDurationSec, seg.Spec.BrollClips, fetched)
		if err != nil {
			return err
		}

		seg.Placements = plan.Placements
		for _, w := range plan.Warnings {
			p.summary.Warnings = append(p.summary.Warnings, w)
			p.logger.WithSegment(seg.Spec.ID).Warn(w)
		}

		p.logger.WithSegment(seg.Spec.ID).Infof("planned %d placements covering %.2fs",
			len(plan.Placements), plan.TotalDuration())
	}
	return nil
}

func (p *Pipeline) assemble(ctx context.Context, cues []transcribe.Cue) (float64, error) {
	workDir := filepath.Join(p.runDir, "work")
	outputPath := filepath.Join(p.runDir, FinalArtifactName)

	duration, err := p.asm.Assemble(ctx, p.spec, p.segments, cues, workDir, outputPath)
	if err != nil {
		return 0, err
	}

	os.RemoveAll(workDir)
	return duration, nil
}

func (p *Pipeline) publishArtifact(ctx context.Context) error {
	if err := p.publisher.WriteMetadata(p.spec, p.runDir); err != nil {
		return err
	}
	return p.publisher.Upload(ctx, p.spec, filepath.Join(p.runDir, FinalArtifactName))
}

// advance records a forward state transition
func (p *Pipeline) advance(to models.RunState) {
	p.logger.LogStageTransition(p.runID, p.summary.State, to)
	p.summary.State = to
	if err := p.persistSummary(); err != nil {
		p.logger.Warnf("failed to persist run summary: %v", err)
	}
}

// fail marks the run terminally failed at the given stage
func (p *Pipeline) fail(stage models.RunState, err error) error {
	p.logger.LogStageFailure(p.runID, stage, err)
	p.summary.State = models.RunStateFailed
	p.summary.FailedStage = stage
	p.summary.FailureReason = err.Error()
	p.summary.CompletedAt = time.Now()
	if perr := p.persistSummary(); perr != nil {
		p.logger.Warnf("failed to persist run summary: %v", perr)
	}
	return err
}

// persistSummary writes the run summary atomically
func (p *Pipeline) persistSummary() error {
	data, err := json.MarshalIndent(&p.summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	path := filepath.Join(p.runDir, runSummaryName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit summary: %w", err)
	}
	return nil
}

func copySpecFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read spec file: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to copy spec file: %w", err)
	}
	return nil
}
