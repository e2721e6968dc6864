package fetch

import (
	"context"
	"image"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/urbancanopy/canopy-cli/internal/config"
)

// SatelliteFetcher downloads satellite imagery tiles from the Static Maps
// API, with rate limiting and retry on transient failures.
type SatelliteFetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	maxRetries int
}

// NewSatellite builds a satellite imagery fetcher from configuration.
func NewSatellite(cfg config.FetchConfig) *SatelliteFetcher {
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &SatelliteFetcher{
		client:     &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		baseURL:    cfg.StaticMapsURL,
		apiKey:     cfg.StaticMapsKey,
		maxRetries: retries,
	}
}

// Fetch downloads the satellite image centered at (lat, lon) matching the
// grid configuration. The returned image has grid.Width x grid.Height pixels
// at scale 1, or twice that at scale 2; the detector resamples if needed.
func (f *SatelliteFetcher) Fetch(ctx context.Context, lat, lon float64, grid config.GridConfig) (image.Image, error) {
	if f.apiKey == "" {
		return nil, eris.New("fetch: static maps API key not configured")
	}

	q := url.Values{}
	q.Set("center", strconv.FormatFloat(lat, 'f', 6, 64)+","+strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("zoom", strconv.Itoa(grid.Zoom))
	q.Set("size", strconv.Itoa(grid.Width)+"x"+strconv.Itoa(grid.Height))
	q.Set("scale", strconv.Itoa(grid.Scale))
	q.Set("maptype", "satellite")
	q.Set("key", f.apiKey)
	reqURL := f.baseURL + "?" + q.Encode()

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limiter wait")
		}

		img, err := f.fetchOnce(ctx, reqURL)
		if err == nil {
			return img, nil
		}
		lastErr = err
		zap.L().Warn("fetch: satellite download failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		backoff(ctx, attempt)
	}
	return nil, eris.Wrap(lastErr, "fetch: satellite retries exhausted")
}

func (f *SatelliteFetcher) fetchOnce(ctx context.Context, reqURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("static maps returned status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "decode image")
	}
	return img, nil
}

func backoff(ctx context.Context, attempt int) {
	d := time.Duration(float64(time.Second) * math.Pow(2, float64(attempt)))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
