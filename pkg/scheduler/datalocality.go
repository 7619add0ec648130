package scheduler

import "github.com/fluxrun/fluxrun/pkg/types"

// DataLocalityPolicy extends FIFO ordering with a data-locality term: a
// worker that already holds one of the action's read parameters scores
// higher than one that would need a transfer.
type DataLocalityPolicy struct {
	profiles *ProfileTable
}

// NewDataLocalityPolicy creates a DataLocalityPolicy backed by profiles.
func NewDataLocalityPolicy(profiles *ProfileTable) *DataLocalityPolicy {
	return &DataLocalityPolicy{profiles: profiles}
}

func (p *DataLocalityPolicy) Name() string { return "data-locality" }

func (p *DataLocalityPolicy) Score(action *types.Task, worker *WorkerView, impl types.ImplementationCandidate) types.Score {
	return types.Score{
		Priority:            action.Priority,
		DataLocalityScore:   localDataCount(action, worker),
		ResourceScore:       resourceScore(worker, impl),
		ImplementationScore: implementationScore(p.profiles, impl.Name, worker.Node.ID),
	}
}

func (p *DataLocalityPolicy) OnActionReady(action *types.Task) {}

func (p *DataLocalityPolicy) OnActionEnd(action *types.Task, result types.Result) {}

// localDataCount counts how many of action's non-write parameters are
// already resident on worker, per its LocalData advertisement.
func localDataCount(action *types.Task, worker *WorkerView) int {
	count := 0
	for _, p := range action.Params {
		if p.DID == 0 || p.Direction == types.W {
			continue
		}
		if worker.Node.LocalData != nil && worker.Node.LocalData[p.DID] {
			count++
		}
	}
	return count
}
