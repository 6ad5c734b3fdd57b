package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tunevault/tunevault/internal/ratelimit"
)

// CoverArtArchiveOracle is an HTTP-backed CoverArtOracle (spec §6).
type CoverArtArchiveOracle struct {
	client  *httpClient
	baseURL string
}

func NewCoverArtArchiveOracle(baseURL string, limiter *ratelimit.Limiter) *CoverArtArchiveOracle {
	return &CoverArtArchiveOracle{client: newHTTPClient("coverart-oracle", limiter), baseURL: baseURL}
}

type coverArtResponse struct {
	Images []struct {
		Image string `json:"image"`
		Front bool   `json:"front"`
	} `json:"images"`
}

// Art resolves a release handle to an image handle, or "" if no cover art
// is available (spec §6).
func (o *CoverArtArchiveOracle) Art(ctx context.Context, releaseHandle string) (string, error) {
	u := fmt.Sprintf("%s/release/%s", o.baseURL, releaseHandle)
	body, err := o.client.get(ctx, u)
	if err != nil {
		if pe, ok := err.(*PermanentError); ok && pe.StatusCode == 404 {
			return "", nil // no cover art is not a failure
		}
		return "", err
	}

	var resp coverArtResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	for _, img := range resp.Images {
		if img.Front {
			return img.Image, nil
		}
	}
	if len(resp.Images) > 0 {
		return resp.Images[0].Image, nil
	}
	return "", nil
}
