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
	pixabayVideoURL = "https://pixabay.com/api/videos/"
	pixabayImageURL = "https://pixabay.com/api/"
)

// PixabayClient searches the Pixabay stock library. The API key travels as a
// query parameter.
type PixabayClient struct {
	apiKey  string
	perPage int
	client  *http.Client
	limiter *rateLimiter
}

func NewPixabayClient(apiKey string, perPage int, client *http.Client, perHour int) *PixabayClient {
	return &PixabayClient{
		apiKey:  apiKey,
		perPage: perPage,
		client:  client,
		limiter: newRateLimiter(perHour),
	}
}

func (p *PixabayClient) Name() string { return "pixabay" }

func (p *PixabayClient) Available() bool { return p.apiKey != "" }

func (p *PixabayClient) Search(ctx context.Context, query string, kind models.MediaKind, portrait bool) ([]Result, error) {
	if !p.limiter.allow() {
		return nil, errRateLimited
	}

	endpoint := pixabayVideoURL
	if kind == models.MediaKindImage {
		endpoint = pixabayImageURL
	}
	return p.searchURL(ctx, endpoint, query, kind, portrait)
}

func (p *PixabayClient) searchURL(ctx context.Context, endpoint, query string, kind models.MediaKind, portrait bool) ([]Result, error) {
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(p.perPage))
	params.Set("safesearch", "true")
	if portrait {
		params.Set("orientation", "vertical")
	} else {
		params.Set("orientation", "horizontal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pixabay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pixabay returned status %d: %s", resp.StatusCode, string(body))
	}

	if kind == models.MediaKindImage {
		return parsePixabayImages(resp.Body)
	}
	return parsePixabayVideos(resp.Body)
}

type pixabayRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pixabayVideoHit struct {
	ID       int64   `json:"id"`
	Duration float64 `json:"duration"`
	Videos   struct {
		Medium pixabayRendition `json:"medium"`
		Small  pixabayRendition `json:"small"`
	} `json:"videos"`
}

type pixabayVideoResponse struct {
	Hits []pixabayVideoHit `json:"hits"`
}

func parsePixabayVideos(r io.Reader) ([]Result, error) {
	var payload pixabayVideoResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode pixabay response: %w", err)
	}

	results := make([]Result, 0, len(payload.Hits))
	for _, h := range payload.Hits {
		rendition := h.Videos.Medium
		if rendition.URL == "" {
			rendition = h.Videos.Small
		}
		if rendition.URL == "" {
			continue
		}
		results = append(results, Result{
			ID:          h.ID,
			DownloadURL: rendition.URL,
			DurationSec: h.Duration,
			Width:       rendition.Width,
			Height:      rendition.Height,
		})
	}
	return results, nil
}

type pixabayImageHit struct {
	ID            int64  `json:"id"`
	LargeImageURL string `json:"largeImageURL"`
}

type pixabayImageResponse struct {
	Hits []pixabayImageHit `json:"hits"`
}

func parsePixabayImages(r io.Reader) ([]Result, error) {
	var payload pixabayImageResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode pixabay response: %w", err)
	}

	results := make([]Result, 0, len(payload.Hits))
	for _, h := range payload.Hits {
		if h.LargeImageURL == "" {
			continue
		}
		results = append(results, Result{ID: h.ID, DownloadURL: h.LargeImageURL})
	}
	return results, nil
}
