// Package pipeline implements the Pipeline Orchestrator (spec §4.1): scan
// with resume, the parallel Fingerprint Stage, and the sequential
// resolve/score/apply walk, all sampling a cooperative pause/cancel latch
// at every suspension point (spec §5).
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tunevault/tunevault/internal/apperrors"
	"github.com/tunevault/tunevault/internal/conf"
	"github.com/tunevault/tunevault/internal/fingerprint"
	"github.com/tunevault/tunevault/internal/ledger"
	"github.com/tunevault/tunevault/internal/logging"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/organizer"
	"github.com/tunevault/tunevault/internal/resolver"
	"github.com/tunevault/tunevault/internal/scorer"
	"github.com/tunevault/tunevault/internal/store"
)

// audioExtensions gates phase 1's directory scan (spec §4.1 phase 1).
var audioExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".m4a": true, ".ogg": true,
	".wav": true, ".aac": true, ".wma": true, ".opus": true,
}

// Summary is run_batch's return value (spec §4.1, §7).
type Summary struct {
	BatchID   string
	Cancelled bool

	Scanned   int
	Skipped   int // already terminal from a prior run of this batch
	Applied   int
	Review    int
	Manual    int
	Unmatched int
	Failed    int

	ErrorsByCategory    map[apperrors.Category]int
	ToolMissingAdvisory bool
}

// Pipeline wires the Fingerprint Stage, Metadata Resolver, Confidence
// Scorer, and Safe Organizer into one orchestrated batch run.
type Pipeline struct {
	Settings  *conf.Settings
	Store     *store.Store
	Ledger    *ledger.Ledger
	Organizer *organizer.Organizer
	Resolver  *resolver.Resolver
	Stage     *fingerprint.Stage
	Log       *logging.Logger

	paused    atomic.Bool
	cancelled atomic.Bool
	broadcast broadcaster
}

// New builds a Pipeline from its collaborators.
func New(settings *conf.Settings, st *store.Store, ldg *ledger.Ledger, org *organizer.Organizer, res *resolver.Resolver, stage *fingerprint.Stage) *Pipeline {
	return &Pipeline{
		Settings: settings, Store: st, Ledger: ldg, Organizer: org, Resolver: res, Stage: stage,
		Log: logging.Module("pipeline"),
	}
}

// Pause holds dispatch at the next suspension point without discarding any
// in-flight or already-applied work (spec §5).
func (p *Pipeline) Pause() { p.paused.Store(true) }

// Resume releases a paused run.
func (p *Pipeline) Resume() { p.paused.Store(false) }

// Cancel requests non-blocking teardown: an in-progress Organizer.Apply
// call finishes atomically, then the run stops before starting the next
// track (spec §5: "an in-progress apply completes atomically... then the
// pipeline stops").
func (p *Pipeline) Cancel() { p.cancelled.Store(true) }

// Subscribe registers sink to receive every emitted ProgressEvent.
func (p *Pipeline) Subscribe(sink func(ProgressEvent)) { p.broadcast.subscribe(sink) }

func (p *Pipeline) checkLatch() (paused bool, cancelled bool) {
	return p.paused.Load(), p.cancelled.Load()
}

// waitWhilePaused blocks the caller on the pause latch, returning true if
// cancellation arrived while waiting.
func (p *Pipeline) waitWhilePaused() (cancelled bool) {
	for {
		paused, cancelled := p.checkLatch()
		if cancelled {
			return true
		}
		if !paused {
			return false
		}
		time.Sleep(pausePollInterval)
	}
}

const pausePollInterval = 50 * time.Millisecond

// RunBatch executes run_batch(batch_id, roots, options) (spec §4.1): scan
// with resume, fingerprint in parallel, then resolve/score/apply
// sequentially per track.
func (p *Pipeline) RunBatch(ctx context.Context, batchID string, roots []string) (Summary, error) {
	log := p.Log.WithContext(logging.ContextWithBatchID(ctx, batchID))
	summary := Summary{BatchID: batchID, ErrorsByCategory: map[apperrors.Category]int{}}

	tracks, skipped, err := p.scan(batchID, roots)
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(tracks) + skipped
	summary.Skipped = skipped
	log.Info("scan complete", "found", len(tracks), "skipped_resumed", skipped)

	if cancelled := p.waitWhilePaused(); cancelled {
		summary.Cancelled = true
		return summary, nil
	}
	if p.cancelled.Load() {
		summary.Cancelled = true
		return summary, nil
	}

	fpResults := p.runFingerprintStage(ctx, tracks, log, &summary)

	if p.cancelled.Load() {
		summary.Cancelled = true
		return summary, nil
	}

	resolved := p.resolveAll(ctx, tracks, fpResults, log, &summary)
	if p.cancelled.Load() {
		summary.Cancelled = true
		return summary, nil
	}

	populateAlbumConsistency(resolved)

	p.classifyAndApply(batchID, resolved, log, &summary)
	return summary, nil
}

// scan enumerates audio files under roots and drops ones already terminal
// for batchID (spec §4.1 phase 1: resume support).
func (p *Pipeline) scan(batchID string, roots []string) ([]*model.Track, int, error) {
	terminal, err := p.Store.TerminalPaths(batchID)
	if err != nil {
		return nil, 0, err
	}

	var tracks []*model.Track
	skipped := 0
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if !audioExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			if terminal[path] {
				skipped++
				return nil
			}
			tracks = append(tracks, &model.Track{
				BatchID:    batchID,
				SourcePath: path,
				Size:       info.Size(),
				Container:  strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
				State:      model.StatePending,
			})
			return nil
		})
		if err != nil {
			return nil, 0, apperrors.New(err).Component("pipeline").Category(apperrors.CategoryIO).
				Context("root", root).Build()
		}
	}
	return tracks, skipped, nil
}

// runFingerprintStage drives phase 2 (spec §4.2) and emits throttled
// progress events for it.
func (p *Pipeline) runFingerprintStage(ctx context.Context, tracks []*model.Track, log *logging.Logger, summary *Summary) map[*model.Track]fingerprint.Result {
	if len(tracks) == 0 {
		return nil
	}
	th := newThrottler(len(tracks))
	results := p.Stage.Run(ctx, tracks, p.checkLatch, func(completed, total int) {
		if th.shouldEmit(completed) {
			p.broadcast.emit(ProgressEvent{
				Phase: "fingerprint", Completed: completed, Total: total,
				ETAHint: th.etaHint(completed),
			})
		}
	})

	for _, tr := range tracks {
		res, ok := results[tr]
		if !ok {
			continue // dropped by cancellation; stays StatePending for resume
		}
		if res.Outcome == fingerprint.OutcomeToolMissing {
			if !summary.ToolMissingAdvisory {
				log.Warn("fingerprint tool missing, degrading batch to tag-based resolution")
			}
			summary.ToolMissingAdvisory = true
		}
		if res.Outcome == fingerprint.OutcomeOK {
			tr.Fingerprint = res.Fingerprint
			tr.Duration = res.Fingerprint.Duration
		}
		tr.State = model.StateFingerprinted
	}
	return results
}

// resolveAll drives phase 3's resolution half (spec §4.3) sequentially, one
// track at a time, so oracle calls respect the resolver's own rate limits.
// It is split from scoring/apply because album consistency (spec §4.4)
// needs every track's provisional top candidate before any track can be
// finally scored.
func (p *Pipeline) resolveAll(ctx context.Context, tracks []*model.Track, fpResults map[*model.Track]fingerprint.Result, log *logging.Logger, summary *Summary) []*model.Track {
	var resolved []*model.Track
	th := newThrottler(len(tracks))

	for i, tr := range tracks {
		if tr.State != model.StateFingerprinted {
			continue // cancelled before fingerprinting reached this track
		}
		if cancelled := p.waitWhilePaused(); cancelled {
			break
		}
		if p.cancelled.Load() {
			break
		}

		outcome := fingerprint.OutcomeCancelled
		if res, ok := fpResults[tr]; ok {
			outcome = res.Outcome
		}

		candidates, err := p.Resolver.Resolve(ctx, tr, outcome)
		if err != nil {
			tr.State = model.StateFailed
			tr.LastErr = err.Error()
			recordError(summary, err)
			log.Error("resolve failed", "path", tr.SourcePath, "error", err)
			_ = p.Store.SaveTrack(tr)
			continue
		}

		tr.Result = &model.MatchResult{Candidates: candidates, Chosen: -1}
		tr.State = model.StateResolved
		resolved = append(resolved, tr)

		if th.shouldEmit(i + 1) {
			p.broadcast.emit(ProgressEvent{
				Phase: "resolve", Completed: i + 1, Total: len(tracks),
				ETAHint: th.etaHint(i + 1), CurrentPath: tr.SourcePath,
			})
		}
	}
	return resolved
}

// populateAlbumConsistency fills in AlbumConsistency for every resolved
// track's candidates, comparing each track against the provisional top
// candidate (index 0, already ordered by provenance/title similarity
// before scoring — see model.SortCandidates) of every other track in the
// batch (spec §4.4, Open Question (a)).
func populateAlbumConsistency(tracks []*model.Track) {
	tops := make([]model.MatchCandidate, 0, len(tracks))
	for _, tr := range tracks {
		if len(tr.Result.Candidates) > 0 {
			tops = append(tops, tr.Result.Candidates[0])
		}
	}

	for i, tr := range tracks {
		others := make([]model.MatchCandidate, 0, len(tops))
		for j, top := range tops {
			if j != i {
				others = append(others, top)
			}
		}
		scorer.PopulateAlbumConsistency(tr.Result.Candidates, others)
	}
}

// classifyAndApply drives phase 3's score/classify/mutate half (spec
// §4.4, §4.5) sequentially, one track at a time, sampling the pause/cancel
// latch between tracks.
func (p *Pipeline) classifyAndApply(batchID string, tracks []*model.Track, log *logging.Logger, summary *Summary) {
	thresholds := scorer.Thresholds{AutoApply: p.Settings.Batch.AutoApplyThreshold, Review: p.Settings.Batch.ReviewThreshold}
	th := newThrottler(len(tracks))

	for i, tr := range tracks {
		if cancelled := p.waitWhilePaused(); cancelled {
			summary.Cancelled = true
			return
		}
		if p.cancelled.Load() {
			summary.Cancelled = true
			return
		}

		for c := range tr.Result.Candidates {
			tr.Result.Candidates[c].Score = scorer.Score(tr.Result.Candidates[c], tr)
		}
		model.SortCandidates(tr.Result.Candidates)

		if len(tr.Result.Candidates) == 0 {
			tr.Result.Tier = model.TierUnmatched
			tr.Result.Chosen = -1
		} else {
			tr.Result.Chosen = 0
			tr.Result.Aggregate = tr.Result.Candidates[0].Score
			tr.Result.Tier = scorer.Classify(tr.Result.Aggregate, thresholds)
		}
		tr.State = model.StateClassified

		p.mutateOrQueue(batchID, tr, log, summary)
		_ = p.Store.SaveTrack(tr)

		if th.shouldEmit(i + 1) {
			p.broadcast.emit(ProgressEvent{
				Phase: "classify", Completed: i + 1, Total: len(tracks),
				ETAHint: th.etaHint(i + 1), CurrentPath: tr.SourcePath,
				LastOutcome: string(tr.Result.Tier),
			})
		}
	}
}

// mutateOrQueue applies the classification outcome (spec §4.4): auto_apply
// moves the file now, review/manual leave it in place for the review
// queue (distinguished by Result.Tier), unmatched leaves it untouched.
func (p *Pipeline) mutateOrQueue(batchID string, tr *model.Track, log *logging.Logger, summary *Summary) {
	switch tr.Result.Tier {
	case model.TierAutoApply:
		chosen := tr.Result.ChosenCandidate()
		if _, err := p.Organizer.Apply(batchID, tr, *chosen); err != nil {
			tr.State = model.StateFailed
			tr.LastErr = err.Error()
			recordError(summary, err)
			summary.Failed++
			log.Error("apply failed", "path", tr.SourcePath, "error", err)
			return
		}
		tr.State = model.StateApplied
		summary.Applied++
	case model.TierReview:
		tr.State = model.StateQueuedForReview
		summary.Review++
	case model.TierManual:
		tr.State = model.StateQueuedForReview
		summary.Manual++
	default:
		tr.State = model.StateUnmatched
		summary.Unmatched++
	}
}

func recordError(summary *Summary, err error) {
	if cat, ok := apperrors.CategoryOf(err); ok {
		summary.ErrorsByCategory[cat]++
	} else {
		summary.ErrorsByCategory[apperrors.CategoryIO]++
	}
}
