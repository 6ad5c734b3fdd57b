package conf

import "runtime"

// Defaults returns Settings populated with the defaults named in spec §4.1.
func Defaults() *Settings {
	s := &Settings{}
	s.Batch.AutoApplyThreshold = 90
	s.Batch.ReviewThreshold = 70
	s.Batch.WorkerCount = defaultWorkerCount()
	s.Batch.FolderTemplate = "{artist}/{album} ({year})"
	s.Batch.FileTemplate = "{track:02d} - {title}"
	s.Batch.SkipShortDurationSeconds = 10
	s.Batch.FingerprintBinary = "fpcalc"

	s.Store.Driver = "sqlite"
	s.Store.DSN = "tunevault.db"

	s.RateLimit.FingerprintOraclePerSecond = 1
	s.RateLimit.MetadataOraclePerSecond = 1
	s.RateLimit.ArchiveOraclePerSecond = 1

	s.Cache.PositiveTTLDays = 30
	s.Cache.NegativeTTLHours = 24

	s.Oracles.FingerprintBaseURL = "https://api.acoustid.org/v2"
	s.Oracles.MetadataBaseURL = "https://musicbrainz.org/ws/2"
	s.Oracles.CoverArtBaseURL = "https://coverartarchive.org"
	s.Oracles.ArchiveBaseURL = "https://archive.org/advancedsearch"

	return s
}

func defaultWorkerCount() int {
	n := (runtime.NumCPU() + 1) / 2
	if n < 1 {
		n = 1
	}
	return n
}
