package scheduler

import "github.com/fluxrun/fluxrun/pkg/types"

// Policy scores (action, worker, implementation) triples for placement and
// observes readiness/completion events so it can keep whatever statistics
// its scoring depends on.
type Policy interface {
	Name() string
	Score(action *types.Task, worker *WorkerView, impl types.ImplementationCandidate) types.Score
	OnActionReady(action *types.Task)
	OnActionEnd(action *types.Task, result types.Result)
}

// SuccessorLocalityHint lets a Policy look one level ahead into the task
// analyser's dependency wiring without the scheduler package importing
// taskanalyser. FullGraphPolicy uses it when set; it is optional and may
// be nil.
type SuccessorLocalityHint interface {
	// SuccessorDataSites returns, for a task id, the set of worker ids
	// already holding data that task's successors will need to read.
	SuccessorDataSites(taskID string) map[string]bool
}

// NewPolicy constructs a named policy, defaulting to FIFO for an unknown
// name so a typo'd config never blocks startup.
func NewPolicy(name string, profiles *ProfileTable, hint SuccessorLocalityHint) Policy {
	switch name {
	case "data-locality":
		return NewDataLocalityPolicy(profiles)
	case "full-graph":
		return NewFullGraphPolicy(profiles, hint)
	default:
		return NewFIFOPolicy(profiles)
	}
}
