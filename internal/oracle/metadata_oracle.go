package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tunevault/tunevault/internal/ratelimit"
)

// ReleaseMetadataOracle is an HTTP-backed MetadataOracle that enriches a
// release handle into artist/album/year/track listing (spec §6).
type ReleaseMetadataOracle struct {
	client  *httpClient
	baseURL string
	token   string
}

func NewReleaseMetadataOracle(baseURL, token string, limiter *ratelimit.Limiter) *ReleaseMetadataOracle {
	return &ReleaseMetadataOracle{
		client:  newHTTPClient("metadata-oracle", limiter),
		baseURL: baseURL,
		token:   token,
	}
}

type releaseResponse struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Date   string `json:"date"` // "YYYY" or "YYYY-MM-DD"
	Media  []struct {
		Tracks []struct {
			Position int     `json:"position"`
			Title    string  `json:"title"`
			Length   float64 `json:"length"` // seconds
		} `json:"tracks"`
	} `json:"media"`
}

// Release enriches a release handle (spec §4.3 step 2).
func (o *ReleaseMetadataOracle) Release(ctx context.Context, handle string) (ReleaseInfo, error) {
	u := fmt.Sprintf("%s/release/%s?inc=recordings&fmt=json", o.baseURL, url.PathEscape(handle))
	body, err := o.client.get(ctx, u)
	if err != nil {
		return ReleaseInfo{}, err
	}

	var r releaseResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return ReleaseInfo{}, err
	}

	info := ReleaseInfo{Artist: r.Artist, Album: r.Title, Year: parseYear(r.Date)}
	for _, media := range r.Media {
		for _, t := range media.Tracks {
			info.Tracks = append(info.Tracks, TrackInfo{Position: t.Position, Title: t.Title, Duration: t.Length})
		}
	}
	return info, nil
}

func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year := 0
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}
