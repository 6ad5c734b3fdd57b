// Package conf holds the typed configuration record for a batch run
// (spec §4.1, §6) plus validation of the safety invariants checked at batch
// start (spec §7: "Invalid configuration ... fail-fast at batch start; no
// mutations performed").
package conf

import (
	"fmt"

	"github.com/spf13/viper"
)

// Settings is the single typed configuration record. Unknown keys in a
// loaded config file are rejected (see Load), matching the "reject unknown
// keys at load" design note (spec §9).
type Settings struct {
	Debug bool

	Batch struct {
		DryRun                   bool
		AutoApplyThreshold       int // 0..100, default 90
		ReviewThreshold          int // 0..100, default 70
		WorkerCount              int // default ceil(cores/2)
		KeepOriginals            bool
		LibraryRoot              string
		BackupRoot               string
		FolderTemplate           string // default "{artist}/{album} ({year})"
		FileTemplate             string // default "{track:02d} - {title}"
		SkipShortDurationSeconds float64 // default 10
		FingerprintBinary        string // default "fpcalc"
	}

	Store struct {
		Driver string // "sqlite" or "mysql"
		DSN    string // file path for sqlite, DSN for mysql
	}

	RateLimit struct {
		FingerprintOraclePerSecond float64
		MetadataOraclePerSecond    float64
		ArchiveOraclePerSecond     float64
	}

	Cache struct {
		PositiveTTLDays int // default 30
		NegativeTTLHours int // default 24
	}

	Oracles struct {
		FingerprintAPIKey string
		MetadataToken     string

		FingerprintBaseURL string
		MetadataBaseURL    string
		CoverArtBaseURL    string
		ArchiveBaseURL     string
	}
}

// Load reads configuration from file+env via viper into Settings, applying
// defaults first and rejecting unknown keys (spec §9).
func Load(path string) (*Settings, error) {
	s := Defaults()

	v := viper.New()
	v.SetEnvPrefix("TUNEVAULT")
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("conf: read config: %w", err)
		}
		if err := v.UnmarshalExact(s); err != nil {
			return nil, fmt.Errorf("conf: unmarshal config (unknown key?): %w", err)
		}
	}

	if key := v.GetString("oracles.fingerprintapikey"); key != "" {
		s.Oracles.FingerprintAPIKey = key
	}
	if tok := v.GetString("oracles.metadatatoken"); tok != "" {
		s.Oracles.MetadataToken = tok
	}

	return s, nil
}
