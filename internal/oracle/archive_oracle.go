package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tunevault/tunevault/internal/ratelimit"
)

// ArchiveSearchOracle is an HTTP-backed ArchiveOracle, used both as a
// structured-query-first lookup for known mixes/compilations and as a last-
// resort fallback (spec §4.3 step 3).
type ArchiveSearchOracle struct {
	client  *httpClient
	baseURL string
}

func NewArchiveSearchOracle(baseURL string, limiter *ratelimit.Limiter) *ArchiveSearchOracle {
	return &ArchiveSearchOracle{client: newHTTPClient("archive-oracle", limiter), baseURL: baseURL}
}

type archiveSearchResponse struct {
	Hits []struct {
		Handle string  `json:"handle"`
		Title  string  `json:"title"`
		Artist string  `json:"artist"`
		Score  float64 `json:"score"`
	} `json:"hits"`
}

// Search issues a structured query (spec §4.3 step 3).
func (o *ArchiveSearchOracle) Search(ctx context.Context, query string) ([]SearchCandidate, error) {
	u := fmt.Sprintf("%s/search?q=%s", o.baseURL, url.QueryEscape(query))
	body, err := o.client.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp archiveSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	out := make([]SearchCandidate, len(resp.Hits))
	for i, h := range resp.Hits {
		out[i] = SearchCandidate{Handle: h.Handle, Title: h.Title, Artist: h.Artist, Score: h.Score}
	}
	return out, nil
}

// Release enriches an archive handle into full metadata, reusing the same
// response shape as the metadata oracle (spec §6: "archive oracle:
// release(handle) -> structured metadata").
func (o *ArchiveSearchOracle) Release(ctx context.Context, handle string) (ReleaseInfo, error) {
	u := fmt.Sprintf("%s/metadata/%s", o.baseURL, url.PathEscape(handle))
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
