package scheduler

import "github.com/fluxrun/fluxrun/pkg/types"

// FIFOPolicy scores by submission priority, resource headroom and observed
// implementation speed; it ignores data locality and lookahead entirely,
// the simplest of the available scheduling strategies.
type FIFOPolicy struct {
	profiles *ProfileTable
}

// NewFIFOPolicy creates a FIFOPolicy backed by profiles for its
// implementation score.
func NewFIFOPolicy(profiles *ProfileTable) *FIFOPolicy {
	return &FIFOPolicy{profiles: profiles}
}

func (p *FIFOPolicy) Name() string { return "fifo" }

func (p *FIFOPolicy) Score(action *types.Task, worker *WorkerView, impl types.ImplementationCandidate) types.Score {
	return types.Score{
		Priority:            action.Priority,
		DataLocalityScore:   0,
		ResourceScore:       resourceScore(worker, impl),
		ImplementationScore: implementationScore(p.profiles, impl.Name, worker.Node.ID),
	}
}

func (p *FIFOPolicy) OnActionReady(action *types.Task) {}

func (p *FIFOPolicy) OnActionEnd(action *types.Task, result types.Result) {}

// resourceScore rewards workers with more headroom relative to the
// candidate's footprint, so placement spreads load rather than packing the
// first worker that fits.
func resourceScore(w *WorkerView, impl types.ImplementationCandidate) int {
	cpuHeadroom := w.Node.Resources.CPUs - w.UsedCPUs - impl.CPUs
	memHeadroom := w.Node.Resources.MemoryMB - w.UsedMemoryMB - impl.MemoryMB
	if cpuHeadroom < 0 {
		cpuHeadroom = 0
	}
	if memHeadroom < 0 {
		memHeadroom = 0
	}
	return cpuHeadroom*1000 + memHeadroom
}

// implementationScore rewards implementations with a faster observed
// average on this worker; unobserved pairings score neutrally so they are
// tried rather than starved out.
func implementationScore(profiles *ProfileTable, impl, workerID string) int {
	if profiles == nil {
		return 0
	}
	avg, ok := profiles.AverageMillis(impl, workerID)
	if !ok || avg <= 0 {
		return 0
	}
	// invert so lower latency scores higher; clamp to a bounded range.
	score := int(100000 / avg)
	if score > 1000 {
		score = 1000
	}
	return score
}
