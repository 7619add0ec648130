package types

import "time"

// WorkerStatus is the scheduler's view of worker reachability.
type WorkerStatus string

const (
	WorkerUp          WorkerStatus = "up"
	WorkerDraining    WorkerStatus = "draining"
	WorkerUnreachable WorkerStatus = "unreachable"
	WorkerRemoved     WorkerStatus = "removed"
)

// WorkerResources is a worker's advertised capacity, consumed by the
// scheduler's resource scoring and by admission of new placements.
type WorkerResources struct {
	CPUs     int
	MemoryMB int
}

// Node describes one worker process registered with the runtime.
type Node struct {
	ID            string
	Address       string
	Kind          string
	Resources     WorkerResources
	Status        WorkerStatus
	LastHeartbeat time.Time
	LocalData     map[DID]bool
}
