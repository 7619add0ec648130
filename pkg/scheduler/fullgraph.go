package scheduler

import "github.com/fluxrun/fluxrun/pkg/types"

// FullGraphPolicy extends DataLocalityPolicy with one level of lookahead:
// it additionally rewards placing an action on a worker that its
// successors will later want data from, via the optional
// SuccessorLocalityHint supplied by the task analyser side.
type FullGraphPolicy struct {
	profiles *ProfileTable
	hint     SuccessorLocalityHint
}

// NewFullGraphPolicy creates a FullGraphPolicy. hint may be nil, in which
// case it behaves identically to DataLocalityPolicy.
func NewFullGraphPolicy(profiles *ProfileTable, hint SuccessorLocalityHint) *FullGraphPolicy {
	return &FullGraphPolicy{profiles: profiles, hint: hint}
}

func (p *FullGraphPolicy) Name() string { return "full-graph" }

func (p *FullGraphPolicy) Score(action *types.Task, worker *WorkerView, impl types.ImplementationCandidate) types.Score {
	locality := localDataCount(action, worker)
	if p.hint != nil {
		if sites := p.hint.SuccessorDataSites(action.ID); sites[worker.Node.ID] {
			locality++
		}
	}
	return types.Score{
		Priority:            action.Priority,
		DataLocalityScore:   locality,
		ResourceScore:       resourceScore(worker, impl),
		ImplementationScore: implementationScore(p.profiles, impl.Name, worker.Node.ID),
	}
}

func (p *FullGraphPolicy) OnActionReady(action *types.Task) {}

func (p *FullGraphPolicy) OnActionEnd(action *types.Task, result types.Result) {}
