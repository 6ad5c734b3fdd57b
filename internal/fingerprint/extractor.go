// Package fingerprint implements the Fingerprint Stage (spec §4.2): a
// bounded-parallel pool that invokes an external acoustic-fingerprint
// extractor with cooperative, non-blocking cancellation.
package fingerprint

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tunevault/tunevault/internal/model"
)

// Outcome classifies the result of extracting one file (spec §4.2).
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeShortAudio
	OutcomeDecodeError
	OutcomeToolMissing
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeShortAudio:
		return "short_audio"
	case OutcomeDecodeError:
		return "decode_error"
	case OutcomeToolMissing:
		return "tool_missing"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the per-file outcome of Extract.
type Result struct {
	Outcome     Outcome
	Fingerprint *model.Fingerprint // non-nil only when Outcome == OutcomeOK
}

// Exit codes distinguished by the external extractor (spec §4.2: "one code
// maps to short_audio ... another to decode_error").
const (
	exitShortAudio  = 2
	exitDecodeError = 3
)

// Extractor invokes the external fingerprint extraction tool (spec §6:
// "Fingerprint extractor: extract(path) -> {fingerprint, duration} |
// exit-code-short | exit-code-decode-error | tool-missing").
type Extractor interface {
	Extract(ctx context.Context, path string) Result
}

// CommandExtractor shells out to a binary (conventionally "fpcalc"-shaped:
// prints "FINGERPRINT=...\nDURATION=...\n" to stdout) on path.
type CommandExtractor struct {
	BinaryPath string
}

// Extract runs the external tool. A missing binary is reported as
// OutcomeToolMissing so the caller can degrade the whole batch to
// tag-based resolution (spec §4.2).
func (e *CommandExtractor) Extract(ctx context.Context, path string) Result {
	if _, err := exec.LookPath(e.BinaryPath); err != nil {
		return Result{Outcome: OutcomeToolMissing}
	}

	cmd := exec.CommandContext(ctx, e.BinaryPath, path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			switch exitErr.ExitCode() {
			case exitShortAudio:
				return Result{Outcome: OutcomeShortAudio}
			case exitDecodeError:
				return Result{Outcome: OutcomeDecodeError}
			}
		}
		return Result{Outcome: OutcomeDecodeError}
	}

	fp, duration, ok := parseOutput(stdout.String())
	if !ok {
		return Result{Outcome: OutcomeDecodeError}
	}
	return Result{Outcome: OutcomeOK, Fingerprint: &model.Fingerprint{Value: fp, Duration: duration}}
}

func parseOutput(out string) (fingerprint string, duration float64, ok bool) {
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "FINGERPRINT="):
			fingerprint = strings.TrimPrefix(line, "FINGERPRINT=")
		case strings.HasPrefix(line, "DURATION="):
			if d, err := strconv.ParseFloat(strings.TrimPrefix(line, "DURATION="), 64); err == nil {
				duration = d
			}
		}
	}
	return fingerprint, duration, fingerprint != ""
}
