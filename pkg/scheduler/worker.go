package scheduler

import (
	"time"

	"github.com/fluxrun/fluxrun/pkg/types"
)

// WorkerView is the scheduler's bookkeeping record for one worker.
type WorkerView struct {
	Node           types.Node
	UsedCPUs       int
	UsedMemoryMB   int
	Running        map[string]bool // task id -> present
	CancelDeadline time.Time       // set when a task placed here is cancelled
}

// Fits reports whether impl's resource footprint fits in the worker's
// remaining capacity.
func (w *WorkerView) Fits(impl types.ImplementationCandidate) bool {
	return w.UsedCPUs+impl.CPUs <= w.Node.Resources.CPUs &&
		w.UsedMemoryMB+impl.MemoryMB <= w.Node.Resources.MemoryMB
}

func (w *WorkerView) reserve(impl types.ImplementationCandidate, taskID string) {
	w.UsedCPUs += impl.CPUs
	w.UsedMemoryMB += impl.MemoryMB
	w.Running[taskID] = true
}

func (w *WorkerView) release(impl types.ImplementationCandidate, taskID string) {
	w.UsedCPUs -= impl.CPUs
	w.UsedMemoryMB -= impl.MemoryMB
	if w.UsedCPUs < 0 {
		w.UsedCPUs = 0
	}
	if w.UsedMemoryMB < 0 {
		w.UsedMemoryMB = 0
	}
	delete(w.Running, taskID)
}
