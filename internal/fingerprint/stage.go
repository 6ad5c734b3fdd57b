package fingerprint

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tunevault/tunevault/internal/model"
)

// pausePollInterval is how often a blocked dispatch loop re-checks the
// pause/cancel latch (spec §5: "suspension points are sampled, not
// interrupt-driven").
const pausePollInterval = 50 * time.Millisecond

// CancelCheck reports the orchestrator's current suspension state: paused
// means hold dispatch but keep already-scheduled work intact; cancelled
// means tear down without waiting on in-flight work (spec §4.2/§5).
type CancelCheck func() (paused bool, cancelled bool)

// ProgressFunc is called after every completed extraction whose result is
// kept; extractions discarded due to cancellation do not report progress.
// The orchestrator is responsible for
// throttling before forwarding to subscribers (spec §4.1).
type ProgressFunc func(completed, total int)

// Stage runs fingerprint extraction for a batch of tracks through a bounded
// pool of workers.
type Stage struct {
	Extractor   Extractor
	WorkerCount int
}

// Run extracts fingerprints for tracks, honoring workerCount concurrency.
// On cancellation it stops dispatching new work immediately and returns
// without waiting for in-flight extractions to finish (spec §4.2: "the
// stage requests non-blocking teardown"); those in-flight goroutines keep
// running in the background but their results are discarded.
//
// The returned map contains an entry only for tracks whose outcome was
// accepted before cancellation; tracks skipped by cancellation are absent
// and remain in model.StatePending for a future resume.
func (s *Stage) Run(ctx context.Context, tracks []*model.Track, check CancelCheck, progress ProgressFunc) map[*model.Track]Result {
	workers := s.WorkerCount
	if workers < 1 {
		workers = 1
	}

	results := make(map[*model.Track]Result, len(tracks))
	var mu sync.Mutex
	var accepting atomic.Bool
	accepting.Store(true)

	var completed int32
	total := len(tracks)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, tr := range tracks {
		for {
			paused, cancelled := check()
			if cancelled {
				accepting.Store(false)
				// Drop all remaining, not-yet-dispatched tracks without
				// waiting for already-launched goroutines.
				return results
			}
			if !paused {
				break
			}
			waitTick()
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(tr *model.Track) {
			defer wg.Done()
			defer func() { <-sem }()

			res := s.Extractor.Extract(ctx, tr.SourcePath)

			if !accepting.Load() {
				return
			}
			mu.Lock()
			results[tr] = res
			mu.Unlock()

			n := atomic.AddInt32(&completed, 1)
			if progress != nil {
				progress(int(n), total)
			}
		}(tr)
	}

	// Every track was dispatched without hitting cancellation; this is the
	// happy path, so draining fully is correct (not a teardown).
	wg.Wait()
	return results
}

// waitTick backs off briefly while paused.
func waitTick() {
	time.Sleep(pausePollInterval)
}
