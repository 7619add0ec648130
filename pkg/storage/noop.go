package storage

import "github.com/fluxrun/fluxrun/pkg/types"

// NoopBackend implements Backend with a non-retriable error from
// GetByID, NewReplica and NewVersion (Init and Finish return nil), so a
// worker with no storage.configPath set simply cannot resolve PSCO
// parameters rather than silently corrupting state.
type NoopBackend struct{}

func (n *NoopBackend) Init(cfgPath string) error { return nil }
func (n *NoopBackend) Finish() error             { return nil }

func (n *NoopBackend) GetByID(pscoID string) (Location, error) {
	return Location{}, types.ErrStorageBackend
}

func (n *NoopBackend) NewReplica(pscoID, host string) error {
	return types.ErrStorageBackend
}

func (n *NoopBackend) NewVersion(pscoID string) (string, error) {
	return "", types.ErrStorageBackend
}
