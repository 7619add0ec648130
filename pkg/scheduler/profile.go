package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/log"
)

// profileKey identifies one (action implementation, worker) pairing whose
// historical execution time feeds the implementation score.
type profileKey struct {
	impl     string
	workerID string
}

type profileEntry struct {
	avgMillis float64
	samples   int
	updatedAt time.Time
}

// ProfileTable is the rolling (implementation, worker) execution-time
// statistics consulted by implementationScore. Entries untouched for
// longer than maxAge are pruned by a robfig/cron job, adopted from the
// anhnv24810310060 orchestrator example's use of cron for periodic
// maintenance rather than a bare ticker.
type ProfileTable struct {
	mu      sync.Mutex
	entries map[profileKey]*profileEntry
	maxAge  time.Duration
	logger  zerolog.Logger

	cronRunner *cron.Cron
}

// NewProfileTable creates an empty table that prunes entries older than
// maxAge.
func NewProfileTable(maxAge time.Duration) *ProfileTable {
	return &ProfileTable{
		entries: make(map[profileKey]*profileEntry),
		maxAge:  maxAge,
		logger:  log.WithComponent("scheduler.profile"),
	}
}

// Record folds one observed execution duration into the rolling average
// for (impl, workerID).
func (p *ProfileTable) Record(impl, workerID string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := profileKey{impl: impl, workerID: workerID}
	e, ok := p.entries[key]
	if !ok {
		e = &profileEntry{}
		p.entries[key] = e
	}
	const alpha = 0.2 // exponential moving average weight for new samples
	ms := float64(d.Milliseconds())
	if e.samples == 0 {
		e.avgMillis = ms
	} else {
		e.avgMillis = alpha*ms + (1-alpha)*e.avgMillis
	}
	e.samples++
	e.updatedAt = time.Now()
}

// AverageMillis returns the rolling average duration for (impl, workerID),
// and whether any samples have been recorded yet.
func (p *ProfileTable) AverageMillis(impl, workerID string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[profileKey{impl: impl, workerID: workerID}]
	if !ok {
		return 0, false
	}
	return e.avgMillis, true
}

func (p *ProfileTable) decay() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.maxAge)
	pruned := 0
	for k, e := range p.entries {
		if e.updatedAt.Before(cutoff) {
			delete(p.entries, k)
			pruned++
		}
	}
	if pruned > 0 {
		p.logger.Debug().Int("pruned", pruned).Msg("pruned stale implementation profiles")
	}
}

// StartDecayJob schedules the periodic prune on the given cron spec (e.g.
// "0 */15 * * * *" for every 15 minutes) and returns a stop function.
func (p *ProfileTable) StartDecayJob(spec string) (stop func(), err error) {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, p.decay); err != nil {
		return nil, err
	}
	c.Start()
	p.cronRunner = c
	return func() { c.Stop() }, nil
}
