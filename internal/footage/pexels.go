package footage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"shortreel/pkg/models"
)

const (
	pexelsVideoURL = "https://api.pexels.com/videos/search"
	pexelsPhotoURL = "https://api.pexels.com/v1/search"
)

// PexelsClient searches the Pexels stock library. Requests authenticate
// with the API key in the Authorization header.
type PexelsClient struct {
	apiKey  string
	perPage int
	client  *http.Client
	limiter *rateLimiter
}

func NewPexelsClient(apiKey string, perPage int, client *http.Client, perHour int) *PexelsClient {
	return &PexelsClient{
		apiKey:  apiKey,
		perPage: perPage,
		client:  client,
		limiter: newRateLimiter(perHour),
	}
}

func (p *PexelsClient) Name() string { return "pexels" }

func (p *PexelsClient) Available() bool { return p.apiKey != "" }

func (p *PexelsClient) Search(ctx context.Context, query string, kind models.MediaKind, portrait bool) ([]Result, error) {
	if !p.limiter.allow() {
		return nil, errRateLimited
	}

	endpoint := pexelsVideoURL
	if kind == models.MediaKindImage {
		endpoint = pexelsPhotoURL
	}
	return p.searchURL(ctx, endpoint, query, kind, portrait)
}

func (p *PexelsClient) searchURL(ctx context.Context, endpoint, query string, kind models.MediaKind, portrait bool) ([]Result, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(p.perPage))
	if portrait {
		params.Set("orientation", "portrait")
	} else {
		params.Set("orientation", "landscape")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pexels returned status %d: %s", resp.StatusCode, string(body))
	}

	if kind == models.MediaKindImage {
		return parsePexelsPhotos(resp.Body)
	}
	return parsePexelsVideos(resp.Body)
}

type pexelsVideoFile struct {
	Link    string `json:"link"`
	Quality string `json:"quality"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type pexelsVideo struct {
	ID         int64             `json:"id"`
	Duration   float64           `json:"duration"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsVideoResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

// parsePexelsVideos picks the hd rendition of each hit when one exists,
// falling back to the first listed file.
func parsePexelsVideos(r io.Reader) ([]Result, error) {
	var payload pexelsVideoResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode pexels response: %w", err)
	}

	results := make([]Result, 0, len(payload.Videos))
	for _, v := range payload.Videos {
		if len(v.VideoFiles) == 0 {
			continue
		}
		file := v.VideoFiles[0]
		for _, f := range v.VideoFiles {
			if f.Quality == "hd" {
				file = f
				break
			}
		}
		results = append(results, Result{
			ID:          v.ID,
			DownloadURL: file.Link,
			DurationSec: v.Duration,
			Width:       file.Width,
			Height:      file.Height,
		})
	}
	return results, nil
}

type pexelsPhoto struct {
	ID  int64 `json:"id"`
	Src struct {
		Large2x string `json:"large2x"`
		Large   string `json:"large"`
	} `json:"src"`
}

type pexelsPhotoResponse struct {
	Photos []pexelsPhoto `json:"photos"`
}

func parsePexelsPhotos(r io.Reader) ([]Result, error) {
	var payload pexelsPhotoResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode pexels response: %w", err)
	}

	results := make([]Result, 0, len(payload.Photos))
	for _, p := range payload.Photos {
		link := p.Src.Large2x
		if link == "" {
			link = p.Src.Large
		}
		if link == "" {
			continue
		}
		results = append(results, Result{ID: p.ID, DownloadURL: link})
	}
	return results, nil
}
