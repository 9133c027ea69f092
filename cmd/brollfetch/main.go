package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"shortreel/internal/cache"
	"shortreel/internal/config"
	"shortreel/internal/footage"
	"shortreel/internal/logging"
	"shortreel/pkg/models"
)

// brollfetch exercises the footage adapter in isolation: one ad-hoc query or
// every request of one spec segment.
func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to application config")
		specPath   = flag.String("spec", "", "Path to VideoSpec JSON")
		segmentID  = flag.Int("segment", 1, "Segment id to fetch when -spec is given")
		query      = flag.String("query", "", "Search query (standalone mode)")
		kind       = flag.String("type", "video", "Media type: video or image")
		minDur     = flag.Float64("min-duration", 0, "Minimum clip duration in seconds")
		outDir     = flag.String("out", "broll", "Output directory")
		platform   = flag.String("platform", "youtube_shorts", "Target platform for geometry")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewConsoleLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	creds, err := config.LoadCredentials(cfg.Paths.Credentials)
	if err != nil {
		logger.Fatalf("Failed to load credentials: %v", err)
	}

	responseCache, err := cache.New(cfg.Paths.CacheDir, cfg.Footage.CacheTTL)
	if err != nil {
		logger.Fatalf("Failed to open cache: %v", err)
	}

	searchClient := footage.SearchClient(cfg.Footage)
	providers := []footage.Provider{
		footage.NewPexelsClient(creds.Pexels, cfg.Footage.PerPage, searchClient, cfg.Footage.PexelsPerHour),
		footage.NewPixabayClient(creds.Pixabay, cfg.Footage.PerPage, searchClient, cfg.Footage.PixabayPerHour),
	}
	fetcher := footage.NewFetcher(cfg.Footage, cfg.Assembler, providers, responseCache, logger)

	spec := &models.VideoSpec{TargetPlatform: models.Platform(*platform)}
	var segments []*models.ResolvedSegment

	switch {
	case *specPath != "":
		full, _, err := config.LoadSpec(*specPath)
		if err != nil {
			logger.Fatalf("Invalid video spec: %v", err)
		}
		spec = full

		for i := range full.Segments {
			if full.Segments[i].ID == *segmentID {
				segments = []*models.ResolvedSegment{{Spec: full.Segments[i]}}
			}
		}
		if segments == nil {
			logger.Fatalf("Segment %d not found in spec", *segmentID)
		}

	case *query != "":
		segments = []*models.ResolvedSegment{{Spec: models.SegmentSpec{
			ID:        1,
			AudioText: *query,
			BrollClips: []models.BrollRequest{{
				Kind:           models.MediaKind(*kind),
				SearchQuery:    *query,
				MinDurationSec: *minDur,
			}},
		}}}

	default:
		fmt.Fprintln(os.Stderr, "usage: brollfetch (-query <q> [-type video|image] | -spec <spec.json> -segment <id>) [-out <dir>]")
		os.Exit(2)
	}

	if err := fetcher.FetchAll(context.Background(), spec, segments, *outDir); err != nil {
		logger.Fatalf("Fetch failed: %v", err)
	}

	for _, seg := range segments {
		for _, clip := range seg.Clips {
			logger.Infof("fetched %s from %s (%.2fs)", clip.Path, clip.Provider, clip.DurationSec)
		}
	}
}
