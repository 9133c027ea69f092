package assembler

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/transcribe"
	"shortreel/pkg/models"
)

// Assembler turns reconciled segments into the terminal video artifact:
// per-placement renders, segment concatenation, narration mux, subtitle
// burn-in and background music mixing.
type Assembler struct {
	cfg      config.AssemblerConfig
	musicDir string
	ff       *FFmpeg
	logger   *logging.Logger
}

// New creates an assembler from configuration
func New(cfg config.AssemblerConfig, musicDir string, logger *logging.Logger) *Assembler {
	return &Assembler{
		cfg:      cfg,
		musicDir: musicDir,
		ff:       NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath),
		logger:   logger,
	}
}

// Assemble renders the final video into outputPath and returns its measured
// duration. Intermediate files land in workDir and are removed on success.
func (a *Assembler) Assemble(ctx context.Context, spec *models.VideoSpec, segments []*models.ResolvedSegment, cues []transcribe.Cue, workDir, outputPath string) (float64, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return 0, &models.AssemblyError{Reason: "cannot create work dir", Err: err}
	}

	segmentPaths := make([]string, 0, len(segments))
	for _, seg := range segments {
		path, err := a.assembleSegment(ctx, seg, workDir)
		if err != nil {
			return 0, err
		}
		segmentPaths = append(segmentPaths, path)
	}

	combined := filepath.Join(workDir, "combined.mp4")
	if err := a.concatSegments(ctx, segmentPaths, combined); err != nil {
		return 0, &models.AssemblyError{Reason: "segment concatenation failed", Err: err}
	}

	current := combined
	if len(cues) > 0 {
		subtitled := filepath.Join(workDir, "subtitled.mp4")
		if err := a.BurnSubtitles(ctx, current, subtitled, cues, spec.TargetPlatform); err != nil {
			return 0, &models.AssemblyError{Reason: "subtitle burn-in failed", Err: err}
		}
		current = subtitled
	}

	musicPath := a.selectMusic(spec.MusicGenre)
	if musicPath != "" {
		if err := a.mixMusic(ctx, current, musicPath, outputPath); err != nil {
			return 0, &models.AssemblyError{Reason: "music mixing failed", Err: err}
		}
	} else {
		if err := a.finalize(ctx, current, outputPath); err != nil {
			return 0, &models.AssemblyError{Reason: "finalize failed", Err: err}
		}
	}

	duration, err := a.ff.Duration(ctx, outputPath)
	if err != nil {
		return 0, &models.AssemblyError{Reason: "cannot measure output duration", Err: err}
	}
	a.validateDuration(spec, duration)

	for _, p := range segmentPaths {
		os.Remove(p)
	}
	os.Remove(combined)

	return duration, nil
}

// assembleSegment renders every placement of a segment, joins them, and
// muxes the narration on top.
func (a *Assembler) assembleSegment(ctx context.Context, seg *models.ResolvedSegment, workDir string) (string, error) {
	id := seg.Spec.ID
	log := a.logger.WithSegment(id)

	partPaths := make([]string, 0, len(seg.Placements))
	for i, placement := range seg.Placements {
		clip := seg.Clip(placement.ClipIndex)
		if clip == nil {
			return "", &models.AssemblyError{
				Reason: fmt.Sprintf("segment %d placement %d references missing clip %d", id, i, placement.ClipIndex),
			}
		}

		partPath := filepath.Join(workDir, fmt.Sprintf("seg%d_part%d.mp4", id, i))
		if err := a.renderPlacement(ctx, clip, placement, partPath); err != nil {
			return "", &models.AssemblyError{
				Reason: fmt.Sprintf("segment %d placement %d render failed", id, i),
				Err:    err,
			}
		}
		partPaths = append(partPaths, partPath)
	}

	silent := filepath.Join(workDir, fmt.Sprintf("seg%d_silent.mp4", id))
	if len(partPaths) == 1 {
		silent = partPaths[0]
	} else {
		if err := a.concatSegments(ctx, partPaths, silent); err != nil {
			return "", &models.AssemblyError{
				Reason: fmt.Sprintf("segment %d placement concat failed", id),
				Err:    err,
			}
		}
	}

	// Mux narration; -shortest pins the segment to the narration length.
	muxed := filepath.Join(workDir, fmt.Sprintf("seg%d.mp4", id))
	err := a.ff.Run(ctx,
		"-y",
		"-i", silent,
		"-i", seg.AudioPath,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
		muxed,
	)
	if err != nil {
		return "", &models.AssemblyError{
			Reason: fmt.Sprintf("segment %d narration mux failed", id),
			Err:    err,
		}
	}

	log.Debugf("segment assembled from %d placements", len(seg.Placements))

	for _, p := range partPaths {
		os.Remove(p)
	}
	if silent != muxed {
		os.Remove(silent)
	}
	return muxed, nil
}

// renderPlacement encodes one timeline entry to its own file. Video sources
// are trimmed at the placement offset and slowed via setpts when the speed
// factor is below one; stills loop for the placement's duration.
func (a *Assembler) renderPlacement(ctx context.Context, clip *models.ResolvedClip, p models.ClipPlacement, outPath string) error {
	fps := strconv.Itoa(a.cfg.FrameRate)

	if clip.Request.Kind == models.MediaKindImage {
		return a.ff.Run(ctx,
			"-y",
			"-loop", "1",
			"-framerate", fps,
			"-i", clip.Path,
			"-t", formatSeconds(p.PlayDuration),
			"-c:v", "libx264",
			"-preset", a.cfg.Preset,
			"-crf", strconv.Itoa(a.cfg.CRF),
			"-pix_fmt", "yuv420p",
			"-r", fps,
			"-an",
			outPath,
		)
	}

	// Source span consumed is output duration scaled by the speed factor.
	sourceSpan := p.PlayDuration * p.SpeedFactor

	args := []string{
		"-y",
		"-ss", formatSeconds(p.StartOffset),
		"-t", formatSeconds(sourceSpan),
		"-i", clip.Path,
	}
	if p.SpeedFactor != 1.0 {
		args = append(args, "-vf", fmt.Sprintf("setpts=PTS/%.4f", p.SpeedFactor))
	}
	args = append(args,
		"-r", fps,
		"-c:v", "libx264",
		"-preset", a.cfg.Preset,
		"-crf", strconv.Itoa(a.cfg.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		outPath,
	)
	return a.ff.Run(ctx, args...)
}

// concatSegments joins uniformly encoded files via the concat demuxer
func (a *Assembler) concatSegments(ctx context.Context, inputs []string, outPath string) error {
	if len(inputs) == 1 {
		return copyFile(inputs[0], outPath)
	}

	listPath := outPath + ".txt"
	if err := WriteConcatFile(listPath, inputs); err != nil {
		return err
	}
	defer os.Remove(listPath)

	return a.ff.Run(ctx,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	)
}

// BurnSubtitles re-encodes the video with drawtext cues overlaid
func (a *Assembler) BurnSubtitles(ctx context.Context, inPath, outPath string, cues []transcribe.Cue, platform models.Platform) error {
	filter := transcribe.DrawtextFilter(cues, transcribe.StyleFor(platform))
	return a.ff.Run(ctx,
		"-y",
		"-i", inPath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", a.cfg.Preset,
		"-crf", strconv.Itoa(a.cfg.CRF),
		"-c:a", "copy",
		outPath,
	)
}

// selectMusic picks a random track from the genre directory. No directory or
// no tracks means the video ships without music.
func (a *Assembler) selectMusic(genre string) string {
	genreDir := filepath.Join(a.musicDir, genre)

	var tracks []string
	for _, pattern := range []string{"*.mp3", "*.wav"} {
		matches, err := filepath.Glob(filepath.Join(genreDir, pattern))
		if err == nil {
			tracks = append(tracks, matches...)
		}
	}

	if len(tracks) == 0 {
		a.logger.Warnf("no music tracks found for genre %q, skipping music", genre)
		return ""
	}

	selected := tracks[rand.Intn(len(tracks))]
	a.logger.Infof("selected background music: %s", filepath.Base(selected))
	return selected
}

// mixMusic loops the track under the narration at reduced volume with fade
// in and fade out, bounded to the video duration.
func (a *Assembler) mixMusic(ctx context.Context, videoPath, musicPath, outPath string) error {
	duration, err := a.ff.Duration(ctx, videoPath)
	if err != nil {
		return err
	}

	fade := a.cfg.MusicFadeSec
	fadeOutStart := duration - fade
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}

	filter := fmt.Sprintf(
		"[1:a]atrim=0:%s,volume=%.1fdB,afade=t=in:st=0:d=%.2f,afade=t=out:st=%s:d=%.2f[music];"+
			"[0:a][music]amix=inputs=2:duration=first:dropout_transition=0[mixed]",
		formatSeconds(duration), a.cfg.MusicVolumeDB, fade,
		formatSeconds(fadeOutStart), fade)

	return a.ff.Run(ctx,
		"-y",
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "0:v", "-map", "[mixed]",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	)
}

// finalize remuxes without music, keeping the faststart layout
func (a *Assembler) finalize(ctx context.Context, inPath, outPath string) error {
	return a.ff.Run(ctx,
		"-y",
		"-i", inPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outPath,
	)
}

// validateDuration logs when the artifact drifts from the requested length
func (a *Assembler) validateDuration(spec *models.VideoSpec, actual float64) {
	target := spec.TargetDurationSec
	if target > 0 && math.Abs(actual-target) > 1.0 {
		a.logger.Warnf("final duration %.2fs differs from target %.2fs by more than 1s", actual, target)
	}

	if limit := spec.TargetPlatform.MaxDurationSec(); actual > limit {
		a.logger.Warnf("final duration %.2fs exceeds platform limit %.0fs", actual, limit)
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}
