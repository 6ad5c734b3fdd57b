package pipeline

import (
	"time"

	"github.com/tunevault/tunevault/internal/cache"
	"github.com/tunevault/tunevault/internal/conf"
	"github.com/tunevault/tunevault/internal/fingerprint"
	"github.com/tunevault/tunevault/internal/ledger"
	"github.com/tunevault/tunevault/internal/oracle"
	"github.com/tunevault/tunevault/internal/organizer"
	"github.com/tunevault/tunevault/internal/ratelimit"
	"github.com/tunevault/tunevault/internal/resolver"
	"github.com/tunevault/tunevault/internal/store"
)

// Build wires a Pipeline from Settings alone: it opens the embedded
// database, constructs the rate limiter, cache, oracle clients, and the
// organizer/resolver/fingerprint stage that feed it. Callers own the
// returned Store's lifetime and must Close it.
func Build(settings *conf.Settings) (*Pipeline, *store.Store, error) {
	st, err := store.Open(settings)
	if err != nil {
		return nil, nil, err
	}

	limiter := ratelimit.New(map[string]float64{
		"fingerprint": settings.RateLimit.FingerprintOraclePerSecond,
		"metadata":    settings.RateLimit.MetadataOraclePerSecond,
		"coverart":    settings.RateLimit.MetadataOraclePerSecond,
		"archive":     settings.RateLimit.ArchiveOraclePerSecond,
	})

	c := cache.New(st,
		time.Duration(settings.Cache.PositiveTTLDays)*24*time.Hour,
		time.Duration(settings.Cache.NegativeTTLHours)*time.Hour,
	)

	ldg := ledger.New(st)
	org := organizer.New(settings, ldg, nil)

	res := &resolver.Resolver{
		Fingerprint: oracle.NewAcousticFingerprintOracle(settings.Oracles.FingerprintBaseURL, settings.Oracles.FingerprintAPIKey, limiter),
		Metadata:    oracle.NewReleaseMetadataOracle(settings.Oracles.MetadataBaseURL, settings.Oracles.MetadataToken, limiter),
		CoverArt:    oracle.NewCoverArtArchiveOracle(settings.Oracles.CoverArtBaseURL, limiter),
		Archive:     oracle.NewArchiveSearchOracle(settings.Oracles.ArchiveBaseURL, limiter),
		Cache:       c,
		Limiter:     limiter,
	}

	stage := &fingerprint.Stage{
		Extractor:   &fingerprint.CommandExtractor{BinaryPath: settings.Batch.FingerprintBinary},
		WorkerCount: settings.Batch.WorkerCount,
	}

	return New(settings, st, ldg, org, res, stage), st, nil
}
