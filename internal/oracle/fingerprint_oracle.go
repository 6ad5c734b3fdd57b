package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tunevault/tunevault/internal/ratelimit"
)

// AcousticFingerprintOracle is an HTTP-backed FingerprintOracle, shaped
// after AcoustID-style "submit fingerprint + duration, get back scored
// recording/release handles" APIs (spec §6).
type AcousticFingerprintOracle struct {
	client  *httpClient
	baseURL string
	apiKey  string
}

// NewAcousticFingerprintOracle constructs a rate-limited fingerprint
// oracle client.
func NewAcousticFingerprintOracle(baseURL, apiKey string, limiter *ratelimit.Limiter) *AcousticFingerprintOracle {
	return &AcousticFingerprintOracle{
		client:  newHTTPClient("fingerprint-oracle", limiter),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type fingerprintLookupResponse struct {
	Results []struct {
		Score     float64  `json:"score"`
		Recording string   `json:"recording_id"`
		Releases  []string `json:"release_handles"`
	} `json:"results"`
}

// Lookup queries the oracle for the top five matches (spec §4.3 step 1).
func (o *AcousticFingerprintOracle) Lookup(ctx context.Context, fingerprint string, duration float64) ([]LookupResult, error) {
	u := fmt.Sprintf("%s/lookup?client=%s&meta=releases&fingerprint=%s&duration=%d",
		o.baseURL, url.QueryEscape(o.apiKey), url.QueryEscape(fingerprint), int(duration+0.5))

	body, err := o.client.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp fingerprintLookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	const maxMatches = 5
	out := make([]LookupResult, 0, min(len(resp.Results), maxMatches))
	for i, r := range resp.Results {
		if i >= maxMatches {
			break
		}
		out = append(out, LookupResult{Score: r.Score, RecordingID: r.Recording, ReleaseHandles: r.Releases})
	}
	return out, nil
}
