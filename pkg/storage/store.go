package storage

import "fmt"

// Location is where a PSCO's current replica lives.
type Location struct {
	PSCOID string
	Host   string
}

// Backend is the Storage collaborator interface.
type Backend interface {
	Init(cfgPath string) error
	Finish() error
	GetByID(pscoID string) (Location, error)
	NewReplica(pscoID, host string) error
	NewVersion(pscoID string) (string, error)
}

// New returns a BoltPSCOStore rooted at cfgPath, or a NoopBackend when
// cfgPath is empty: absence of storage configuration disables PSCO
// support silently rather than erroring.
func New(cfgPath string) (Backend, error) {
	if cfgPath == "" {
		return &NoopBackend{}, nil
	}
	b := &BoltPSCOStore{}
	if err := b.Init(cfgPath); err != nil {
		return nil, fmt.Errorf("open psco store at %s: %w", cfgPath, err)
	}
	return b, nil
}
