// Package resolver implements the Metadata Resolver (spec §4.3): oracle
// fan-out, response caching, a known-mix fallback chain, and fuzzy
// synthesis when every oracle comes up empty.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/tunevault/tunevault/internal/apperrors"
	"github.com/tunevault/tunevault/internal/cache"
	"github.com/tunevault/tunevault/internal/fingerprint"
	"github.com/tunevault/tunevault/internal/fuzzy"
	"github.com/tunevault/tunevault/internal/logging"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/oracle"
	"github.com/tunevault/tunevault/internal/ratelimit"
)

const (
	serviceFingerprint = "fingerprint"
	serviceMetadata    = "metadata"
	serviceCoverArt    = "coverart"
	serviceArchive     = "archive"

	// maxFingerprintMatches caps the fingerprint oracle lookup at the top
	// five matches (spec §4.3 step 1).
	maxFingerprintMatches = 5
)

// knownMixChapter matches titles/filenames belonging to the well-known
// long-running chapter-numbered mix series (spec §4.3 step 3); titles like
// "Continuum Mix - Chapter 214" or "chapter 214" trigger the structured
// archive query path instead of the fallback-only path.
var knownMixChapter = regexp.MustCompile(`(?i)\bchapter\s*0*(\d{1,3})\b`)

// Resolver resolves a Track's candidate identities. Failed oracle calls are
// treated as empty results rather than fatal errors: a resolution is never
// "failed", only empty (spec §4.3 step 4 exists precisely to handle this).
type Resolver struct {
	Fingerprint oracle.FingerprintOracle
	Metadata    oracle.MetadataOracle
	CoverArt    oracle.CoverArtOracle
	Archive     oracle.ArchiveOracle

	Cache   *cache.Cache
	Limiter *ratelimit.Limiter
	Log     *logging.Logger
}

// Resolve implements the spec §4.3 algorithm. fpOutcome is the Fingerprint
// Stage's outcome for this track; fingerprint lookup is only attempted when
// it carried a usable fingerprint.
func (r *Resolver) Resolve(ctx context.Context, track *model.Track, fpOutcome fingerprint.Outcome) ([]model.MatchCandidate, error) {
	var candidates []model.MatchCandidate

	if fpOutcome == fingerprint.OutcomeOK && track.Fingerprint != nil {
		candidates = r.fromFingerprint(ctx, track)
	}

	r.enrichWithMetadata(ctx, track, candidates)

	if r.Archive != nil {
		if query, isKnownMix := knownMixQuery(track); isKnownMix {
			archiveCandidates := r.fromArchiveSearch(ctx, track, query)
			candidates = append(candidates, archiveCandidates...)
		} else if len(candidates) == 0 {
			if query := fallbackQuery(track); query != "" {
				candidates = append(candidates, r.fromArchiveSearch(ctx, track, query)...)
			}
		}
	}

	if len(candidates) == 0 {
		candidates = append(candidates, synthesizeFallback(track))
	}

	model.SortCandidates(candidates)
	return candidates, nil
}

// knownMixQuery reports whether track looks like an entry in the
// chapter-numbered mix series and, if so, the structured query to use.
func knownMixQuery(track *model.Track) (string, bool) {
	subject := track.Tags.Title
	if subject == "" {
		subject = track.FilenameStem()
	}
	m := knownMixChapter.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	return fmt.Sprintf("chapter %s", m[1]), true
}

// fallbackQuery builds a free-text query from whatever tags are present,
// used only when the fingerprint/metadata steps produced nothing.
func fallbackQuery(track *model.Track) string {
	if track.Tags.Artist != "" && track.Tags.Title != "" {
		return track.Tags.Artist + " " + track.Tags.Title
	}
	if track.Tags.Title != "" {
		return track.Tags.Title
	}
	if track.Tags.Artist != "" {
		return track.Tags.Artist
	}
	return track.FilenameStem()
}

func (r *Resolver) fromFingerprint(ctx context.Context, track *model.Track) []model.MatchCandidate {
	results, err := r.lookupFingerprint(ctx, track.Fingerprint.Value, track.Fingerprint.Duration)
	if err != nil {
		r.warn("fingerprint lookup failed", err)
		return nil
	}
	if len(results) > maxFingerprintMatches {
		results = results[:maxFingerprintMatches]
	}

	out := make([]model.MatchCandidate, 0, len(results))
	for _, res := range results {
		c := model.MatchCandidate{
			FingerprintSimilarity: res.Score,
			Provenance:            model.ProvenanceFingerprintOracle,
		}
		if len(res.ReleaseHandles) > 0 {
			c.ReleaseID = res.ReleaseHandles[0]
		}
		out = append(out, c)
	}
	return out
}

// enrichWithMetadata fills in artist/album/year/track position and cover
// art for every candidate that holds a release handle (spec §4.3 step 2),
// mutating candidates in place.
func (r *Resolver) enrichWithMetadata(ctx context.Context, track *model.Track, candidates []model.MatchCandidate) {
	if r.Metadata == nil {
		return
	}
	for i := range candidates {
		if candidates[i].ReleaseID == "" {
			continue
		}
		release, err := r.releaseMetadata(ctx, candidates[i].ReleaseID)
		if err != nil {
			r.warn("metadata release lookup failed", err)
			continue
		}
		applyRelease(&candidates[i], track, release)

		if r.CoverArt != nil {
			if art, err := r.coverArt(ctx, candidates[i].ReleaseID); err == nil {
				candidates[i].CoverArtID = art
			}
		}
	}
}

func applyRelease(c *model.MatchCandidate, track *model.Track, release oracle.ReleaseInfo) {
	c.Artist = release.Artist
	c.Album = release.Album
	c.Year = release.Year
	c.ArtistSimilarity = fuzzy.Similarity(release.Artist, track.Tags.Artist)

	subject := track.Tags.Title
	if subject == "" {
		subject = track.FilenameStem()
	}

	best := -1
	bestSim := -1.0
	for i, t := range release.Tracks {
		sim := fuzzy.Similarity(t.Title, subject)
		if sim > bestSim {
			bestSim, best = sim, i
		}
	}
	if best >= 0 {
		t := release.Tracks[best]
		c.Title = t.Title
		c.TrackNumber = t.Position
		c.TitleSimilarity = bestSim
		if track.Duration > 0 {
			c.DurationDelta = track.Duration - t.Duration
		}
	}
}

func (r *Resolver) fromArchiveSearch(ctx context.Context, track *model.Track, query string) []model.MatchCandidate {
	hits, err := r.archiveSearch(ctx, query)
	if err != nil {
		r.warn("archive search failed", err)
		return nil
	}

	out := make([]model.MatchCandidate, 0, len(hits))
	for _, hit := range hits {
		c := model.MatchCandidate{
			ReleaseID:        hit.Handle,
			Artist:           hit.Artist,
			Title:            hit.Title,
			Provenance:       model.ProvenanceArchiveOracle,
			TitleSimilarity:  fuzzy.Similarity(hit.Title, track.Tags.Title),
			ArtistSimilarity: fuzzy.Similarity(hit.Artist, track.Tags.Artist),
		}
		out = append(out, c)
	}
	r.enrichWithMetadata(ctx, track, out)
	return out
}

// synthesizeFallback builds the single low-confidence candidate from
// existing tags and the fuzzy-normalized filename when every oracle came
// up empty (spec §4.3 step 4). Its fingerprint factor is zero, which caps
// the aggregate score at 60 even though title/artist self-similarity is
// trivially 1.0 and its duration delta is left at zero.
func synthesizeFallback(track *model.Track) model.MatchCandidate {
	title := track.Tags.Title
	if title == "" {
		title = fuzzy.Normalize(track.FilenameStem())
	}
	return model.MatchCandidate{
		Artist:           track.Tags.Artist,
		Title:            title,
		Album:            track.Tags.Album,
		Year:             track.Tags.Year,
		TrackNumber:      track.Tags.TrackNumber,
		DiscNumber:       track.Tags.DiscNumber,
		Provenance:       model.ProvenanceTagFallback,
		TitleSimilarity:  1,
		ArtistSimilarity: 1,
	}
}

func (r *Resolver) warn(msg string, err error) {
	if r.Log != nil {
		r.Log.Warn(msg, "error", err)
	}
}

// --- cached, rate-limited oracle calls ---

func (r *Resolver) lookupFingerprint(ctx context.Context, fp string, duration float64) ([]oracle.LookupResult, error) {
	key := cache.Key("fingerprint", "lookup", fp, fmt.Sprintf("%.2f", duration))
	if raw, negative, ok := r.Cache.Get(key); ok {
		if negative {
			return nil, nil
		}
		var results []oracle.LookupResult
		if err := json.Unmarshal(raw, &results); err != nil {
			return nil, nil
		}
		return results, nil
	}

	if err := r.Limiter.Acquire(ctx, serviceFingerprint); err != nil {
		return nil, err
	}
	results, err := r.Fingerprint.Lookup(ctx, fp, duration)
	if err != nil {
		r.cacheIfPermanent(key, err)
		return nil, err
	}
	r.cacheJSON(key, results, len(results) == 0)
	return results, nil
}

func (r *Resolver) releaseMetadata(ctx context.Context, handle string) (oracle.ReleaseInfo, error) {
	key := cache.Key("metadata", "release", handle)
	if raw, negative, ok := r.Cache.Get(key); ok {
		if negative {
			return oracle.ReleaseInfo{}, errNegativeCache
		}
		var info oracle.ReleaseInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return oracle.ReleaseInfo{}, err
		}
		return info, nil
	}

	if err := r.Limiter.Acquire(ctx, serviceMetadata); err != nil {
		return oracle.ReleaseInfo{}, err
	}
	info, err := r.Metadata.Release(ctx, handle)
	if err != nil {
		r.cacheIfPermanent(key, err)
		return oracle.ReleaseInfo{}, err
	}
	r.cacheJSON(key, info, false)
	return info, nil
}

func (r *Resolver) coverArt(ctx context.Context, handle string) (string, error) {
	key := cache.Key("coverart", "art", handle)
	if raw, negative, ok := r.Cache.Get(key); ok {
		if negative {
			return "", nil
		}
		var art string
		_ = json.Unmarshal(raw, &art)
		return art, nil
	}

	if err := r.Limiter.Acquire(ctx, serviceCoverArt); err != nil {
		return "", err
	}
	art, err := r.CoverArt.Art(ctx, handle)
	if err != nil {
		r.cacheIfPermanent(key, err)
		return "", err
	}
	r.cacheJSON(key, art, art == "")
	return art, nil
}

func (r *Resolver) archiveSearch(ctx context.Context, query string) ([]oracle.SearchCandidate, error) {
	key := cache.Key("archive", "search", query)
	if raw, negative, ok := r.Cache.Get(key); ok {
		if negative {
			return nil, nil
		}
		var hits []oracle.SearchCandidate
		if err := json.Unmarshal(raw, &hits); err != nil {
			return nil, nil
		}
		return hits, nil
	}

	if err := r.Limiter.Acquire(ctx, serviceArchive); err != nil {
		return nil, err
	}
	hits, err := r.Archive.Search(ctx, query)
	if err != nil {
		r.cacheIfPermanent(key, err)
		return nil, err
	}
	r.cacheJSON(key, hits, len(hits) == 0)
	return hits, nil
}

// cacheIfPermanent writes a negative cache entry for non-retryable failures
// (spec §4.3: "permanent failures ... are cached as negatives"); transient
// failures are not cached since the oracle HTTP client already retried
// them internally.
func (r *Resolver) cacheIfPermanent(key string, err error) {
	var perm *oracle.PermanentError
	if errors.As(err, &perm) {
		_ = r.Cache.Put(key, []byte("null"), true)
	}
}

func (r *Resolver) cacheJSON(key string, value any, negative bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = r.Cache.Put(key, raw, negative)
}

var errNegativeCache = apperrors.Newf("negative cache hit").Component("resolver").Category(apperrors.CategoryCache).Build()
