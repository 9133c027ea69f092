package footage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"shortreel/internal/cache"
	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/pkg/models"
)

// Fetcher resolves b-roll requests into local media files. Searches go
// through a response cache and a primary/fallback provider chain; downloads
// land in the run directory and are normalized to the target resolution.
type Fetcher struct {
	cfg       config.FootageConfig
	asm       config.AssemblerConfig
	providers []Provider
	cache     *cache.Cache
	searcher  *http.Client
	download  *http.Client
	logger    *logging.Logger
}

// NewFetcher builds a fetcher over the given provider chain, tried in order
func NewFetcher(cfg config.FootageConfig, asm config.AssemblerConfig, providers []Provider, c *cache.Cache, logger *logging.Logger) *Fetcher {
	return &Fetcher{
		cfg:       cfg,
		asm:       asm,
		providers: providers,
		cache:     c,
		searcher:  &http.Client{Timeout: cfg.HTTPTimeout},
		download:  &http.Client{Timeout: cfg.DownloadTimeout},
		logger:    logger,
	}
}

// SearchClient returns an HTTP client sized for search calls, for providers
// constructed alongside the fetcher.
func SearchClient(cfg config.FootageConfig) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

// FetchAll resolves every b-roll request of every segment, writing the
// resolved clips back into the segments. Fetches run concurrently under a
// bounded pool; the first hard failure cancels the remainder. A request for
// which every provider fails surfaces as FetchError.
func (f *Fetcher) FetchAll(ctx context.Context, spec *models.VideoSpec, segments []*models.ResolvedSegment, brollDir string) error {
	if err := os.MkdirAll(brollDir, 0o755); err != nil {
		return fmt.Errorf("failed to create broll dir: %w", err)
	}

	res := spec.TargetPlatform.Resolution()
	portrait := res.Height > res.Width

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxConcurrent)

	for _, seg := range segments {
		seg.Clips = make([]models.ResolvedClip, len(seg.Spec.BrollClips))
		for i, req := range seg.Spec.BrollClips {
			seg, i, req := seg, i, req
			g.Go(func() error {
				dest := filepath.Join(brollDir, fmt.Sprintf("seg%d_clip%d", seg.Spec.ID, i))
				clip, err := f.fetchOne(gctx, req, res, portrait, dest)
				if err != nil {
					f.logger.WithSegment(seg.Spec.ID).ErrorWithErr("b-roll fetch failed", err)
					return err
				}
				seg.Clips[i] = *clip
				return nil
			})
		}
	}

	return g.Wait()
}

// fetchOne resolves a single request through the provider chain. Provider
// errors degrade to the next provider; an exhausted chain is a FetchError.
func (f *Fetcher) fetchOne(ctx context.Context, req models.BrollRequest, res models.Resolution, portrait bool, destBase string) (*models.ResolvedClip, error) {
	kind := req.Kind
	if kind == "" {
		kind = models.MediaKindVideo
	}

	var lastErr error
	for _, provider := range f.providers {
		if !provider.Available() {
			continue
		}

		results, err := f.search(ctx, provider, req.SearchQuery, kind, portrait)
		if err != nil {
			lastErr = err
			f.logger.Warnf("provider %s search failed for %q: %v", provider.Name(), req.SearchQuery, err)
			continue
		}
		if len(results) == 0 {
			lastErr = fmt.Errorf("provider %s: no results for %q", provider.Name(), req.SearchQuery)
			continue
		}

		candidate := pickResult(results, req.MinDurationSec, kind)

		clip, err := f.materialize(ctx, candidate, kind, res, destBase)
		if err != nil {
			lastErr = err
			f.logger.Warnf("provider %s download failed for %q: %v", provider.Name(), req.SearchQuery, err)
			continue
		}

		clip.Request = req
		clip.Provider = provider.Name()
		return clip, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no provider configured with credentials")
	}
	return nil, &models.FetchError{Query: req.SearchQuery, Kind: kind, Err: lastErr}
}

// search consults the response cache before hitting a provider. Entries key
// on provider, query and kind so the two providers never share results.
func (f *Fetcher) search(ctx context.Context, p Provider, query string, kind models.MediaKind, portrait bool) ([]Result, error) {
	key := fmt.Sprintf("%s_%s_%s", p.Name(), query, kind)

	var cached []Result
	if hit, err := f.cache.Get(key, &cached); err == nil && hit {
		f.logger.Debugf("cache hit for %s %q", p.Name(), query)
		return cached, nil
	}

	start := time.Now()
	results, err := p.Search(ctx, query, kind, portrait)
	f.logger.LogAdapterCall(p.Name(), query, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(key, results); err != nil {
		f.logger.Warnf("failed to cache %s response: %v", p.Name(), err)
	}
	return results, nil
}

// pickResult prefers the first hit long enough to cover the requested
// minimum; video hits shorter than the minimum only win when nothing longer
// exists.
func pickResult(results []Result, minDuration float64, kind models.MediaKind) Result {
	if kind == models.MediaKindImage || minDuration <= 0 {
		return results[0]
	}
	for _, r := range results {
		if r.DurationSec >= minDuration {
			return r
		}
	}
	return results[0]
}

// materialize downloads a search hit and normalizes it to the target
// resolution and frame rate.
func (f *Fetcher) materialize(ctx context.Context, r Result, kind models.MediaKind, res models.Resolution, destBase string) (*models.ResolvedClip, error) {
	rawExt := ".mp4"
	if kind == models.MediaKindImage {
		rawExt = ".jpg"
	}
	rawPath := destBase + "_raw" + rawExt

	if err := f.downloadFile(ctx, r.DownloadURL, rawPath); err != nil {
		return nil, err
	}
	defer os.Remove(rawPath)

	finalPath := destBase + rawExt
	var duration float64
	var err error
	if kind == models.MediaKindImage {
		err = f.normalizeImage(ctx, rawPath, finalPath, res)
	} else {
		err = f.normalizeVideo(ctx, rawPath, finalPath, res)
		if err == nil {
			duration, err = f.probeDuration(ctx, finalPath)
		}
	}
	if err != nil {
		return nil, err
	}

	return &models.ResolvedClip{
		Path:        finalPath,
		DurationSec: duration,
		FetchedAt:   time.Now(),
	}, nil
}

// downloadFile streams a URL to disk via a temporary file and atomic rename.
// Transient failures retry with exponential backoff.
func (f *Fetcher) downloadFile(ctx context.Context, rawURL, dest string) error {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			f.logger.Debugf("retrying download in %s (attempt %d)", backoff, attempt+1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := f.downloadOnce(ctx, rawURL, dest); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("download failed after %d attempts: %w", f.cfg.MaxRetries+1, lastErr)
}

func (f *Fetcher) downloadOnce(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.download.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

// normalizeVideo re-encodes a clip to the target geometry: scale to cover,
// center-crop, constant frame rate, no audio track.
func (f *Fetcher) normalizeVideo(ctx context.Context, src, dest string, res models.Resolution) error {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1",
		res.Width, res.Height, res.Width, res.Height)

	args := []string{
		"-y", "-i", src,
		"-vf", filter,
		"-r", strconv.Itoa(f.asm.FrameRate),
		"-an",
		"-c:v", "libx264",
		"-preset", f.asm.Preset,
		"-crf", strconv.Itoa(f.asm.CRF),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		dest,
	}
	return f.runFFmpeg(ctx, args)
}

// normalizeImage crops a still to the target geometry
func (f *Fetcher) normalizeImage(ctx context.Context, src, dest string, res models.Resolution) error {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		res.Width, res.Height, res.Width, res.Height)

	args := []string{"-y", "-i", src, "-vf", filter, "-frames:v", "1", "-q:v", "2", dest}
	return f.runFFmpeg(ctx, args)
}

func (f *Fetcher) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.asm.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg normalize failed: %w, stderr: %s", err, stderr.String())
	}
	return nil
}

func (f *Fetcher) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.asm.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration: %w", err)
	}
	return duration, nil
}
