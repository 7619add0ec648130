package datamanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/metrics"
	"github.com/fluxrun/fluxrun/pkg/storage"
	"github.com/fluxrun/fluxrun/pkg/transfer"
	"github.com/fluxrun/fluxrun/pkg/types"
)

type registerEntry struct {
	mu  sync.Mutex
	reg types.Register
}

// transferState tracks one in-flight fetch so duplicate requests for the
// same renaming attach as waiters instead of issuing a second transfer.
type transferState struct {
	done chan struct{}
	err  error
}

// Manager is the Worker Data Manager (component A), one per worker
// process.
type Manager struct {
	workerID string
	workDir  string

	mapMu     sync.RWMutex
	registers map[types.DataInstanceID]*registerEntry

	inFlightMu sync.Mutex
	inFlight   map[types.DataInstanceID]*transferState

	transferProvider transfer.Provider
	storageBackend   storage.Backend
	allowNonAtomic   bool

	bindingMu    sync.Mutex
	bindingCache map[types.DataInstanceID]any

	logger zerolog.Logger
}

// New creates a Manager for workerID, rooted at workDir for FILE-typed
// parameters.
func New(workerID, workDir string, tp transfer.Provider, sb storage.Backend, allowNonAtomicMove bool) *Manager {
	return &Manager{
		workerID:         workerID,
		workDir:          workDir,
		registers:        make(map[types.DataInstanceID]*registerEntry),
		inFlight:         make(map[types.DataInstanceID]*transferState),
		transferProvider: tp,
		storageBackend:   sb,
		allowNonAtomic:   allowNonAtomicMove,
		bindingCache:     make(map[types.DataInstanceID]any),
		logger:           log.WithComponent("datamanager").With().Str("worker_id", workerID).Logger(),
	}
}

// localPath returns the on-disk path this worker uses for a FILE/
// BINDING_OBJECT renaming.
func (m *Manager) localPath(renaming types.DataInstanceID) string {
	return filepath.Join(m.workDir, string(renaming))
}

// LocalPath exposes localPath's convention to callers outside the package
// (the worker agent needs it to compute a fetch's sourcePath under a
// shared-workDir single-host deployment).
func (m *Manager) LocalPath(renaming types.DataInstanceID) string {
	return m.localPath(renaming)
}

func (m *Manager) entry(renaming types.DataInstanceID, create bool) (*registerEntry, bool) {
	m.mapMu.RLock()
	e, ok := m.registers[renaming]
	m.mapMu.RUnlock()
	if ok || !create {
		return e, ok
	}

	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	if e, ok := m.registers[renaming]; ok {
		return e, true
	}
	e = &registerEntry{reg: types.Register{Renaming: renaming}}
	m.registers[renaming] = e
	return e, false
}

// FetchParam ensures param's renaming is resident locally, fetching it
// from sourceAddr if it is not already present. Concurrent callers asking
// for the same renaming collapse onto a single transfer.
func (m *Manager) FetchParam(ctx context.Context, param types.Parameter, renaming types.DataInstanceID, sourceAddr, sourcePath string) error {
	if param.IsCollection() {
		var manifest strings.Builder
		for i, sub := range param.SubParams {
			subRenaming := types.DataInstanceID(fmt.Sprintf("%s_%d", renaming, i))
			if err := m.FetchParam(ctx, *sub, subRenaming, sourceAddr, sourcePath); err != nil {
				return err
			}
			fmt.Fprintf(&manifest, "%d %s\n", int(sub.TypeTag), subRenaming)
		}
		manifestPath := m.localPath(renaming) + ".manifest"
		if err := m.atomicWrite(manifestPath, []byte(manifest.String())); err != nil {
			return fmt.Errorf("%w: write manifest %s: %v", types.ErrTransfer, manifestPath, err)
		}
		e, _ := m.entry(renaming, true)
		e.mu.Lock()
		e.reg.FilePaths = []string{manifestPath}
		e.reg.Refcount++
		e.mu.Unlock()
		return nil
	}

	if e, ok := m.entry(renaming, false); ok {
		e.mu.Lock()
		e.reg.Refcount++
		e.mu.Unlock()
		return nil
	}

	state, isLeader := m.claimTransfer(renaming)
	if !isLeader {
		<-state.done
		if state.err != nil {
			return state.err
		}
		if e, ok := m.entry(renaming, false); ok {
			e.mu.Lock()
			e.reg.Refcount++
			e.mu.Unlock()
		}
		return nil
	}

	err := m.doFetch(ctx, param, renaming, sourceAddr, sourcePath)
	state.err = err
	close(state.done)

	m.inFlightMu.Lock()
	delete(m.inFlight, renaming)
	m.inFlightMu.Unlock()

	return err
}

func (m *Manager) claimTransfer(renaming types.DataInstanceID) (*transferState, bool) {
	m.inFlightMu.Lock()
	defer m.inFlightMu.Unlock()

	if s, ok := m.inFlight[renaming]; ok {
		return s, false
	}
	s := &transferState{done: make(chan struct{})}
	m.inFlight[renaming] = s
	return s, true
}

func (m *Manager) doFetch(ctx context.Context, param types.Parameter, renaming types.DataInstanceID, sourceAddr, sourcePath string) error {
	metrics.TransfersInFlight.Inc()
	defer metrics.TransfersInFlight.Dec()

	handler, ok := handlerTable[param.TypeTag]
	if !ok {
		return fmt.Errorf("%w: no fetch handler for type %s", types.ErrTransfer, param.TypeTag)
	}
	if err := handler(ctx, m, param, renaming, sourceAddr, sourcePath); err != nil {
		return err
	}

	e, _ := m.entry(renaming, true)
	e.mu.Lock()
	e.reg.Refcount++
	e.mu.Unlock()
	return nil
}

// LoadParam returns the resident value for renaming: the register's first
// local file path when it has one (a stored FILE, a collection manifest),
// otherwise its in-memory Value (including a binding object served from
// the binding cache).
func (m *Manager) LoadParam(renaming types.DataInstanceID) (any, error) {
	e, ok := m.entry(renaming, false)
	if !ok {
		return nil, fmt.Errorf("%w: renaming %s not resident", types.ErrUnknownData, renaming)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.reg.FilePaths) > 0 {
		return e.reg.FilePaths[0], nil
	}
	return e.reg.Value, nil
}

// StoreParam records a produced value under renaming, persisting to disk
// for FILE-typed parameters and to the storage backend for PSCO.
func (m *Manager) StoreParam(param types.Parameter, renaming types.DataInstanceID, value any) error {
	e, _ := m.entry(renaming, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	switch param.TypeTag {
	case types.FILE, types.BINDING_OBJECT:
		path := m.localPath(renaming)
		data, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("%w: FILE store expects []byte value", types.ErrTransfer)
		}
		if err := m.atomicWrite(path, data); err != nil {
			return fmt.Errorf("%w: write %s: %v", types.ErrTransfer, path, err)
		}
		e.reg.FilePaths = []string{path}
	case types.PSCO:
		pscoID := string(renaming)
		if _, err := m.storageBackend.NewVersion(pscoID); err != nil {
			return fmt.Errorf("%w: %v", types.ErrStorageBackend, err)
		}
		if err := m.storageBackend.NewReplica(pscoID, m.workerID); err != nil {
			return fmt.Errorf("%w: %v", types.ErrStorageBackend, err)
		}
		e.reg.StorageID = pscoID
	default:
		e.reg.Value = value
	}
	return nil
}

// atomicWrite writes data to path via a temp-file-then-rename, which is
// atomic on the same filesystem. If the rename fails across filesystem
// boundaries and allowNonAtomic is set, it falls back to a direct write
// with a logged warning.
func (m *Manager) atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		if !m.allowNonAtomic {
			os.Remove(tmp)
			return err
		}
		m.logger.Warn().Err(err).Str("path", path).Msg("atomic rename failed, falling back to non-atomic write")
		os.Remove(tmp)
		return os.WriteFile(path, data, 0o644)
	}
	return nil
}

// materializeFile makes renaming resident at dest from a sourcePath already
// local to this worker: copies when preserve is true, otherwise moves
// (rename, falling back to copy-then-remove across filesystem boundaries).
func (m *Manager) materializeFile(sourcePath, dest string, preserve bool) error {
	if preserve {
		data, err := os.ReadFile(sourcePath)
		if err != nil {
			return fmt.Errorf("%w: read source %s: %v", types.ErrTransfer, sourcePath, err)
		}
		return m.atomicWrite(dest, data)
	}

	if err := os.Rename(sourcePath, dest); err == nil {
		return nil
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("%w: read source %s: %v", types.ErrTransfer, sourcePath, err)
	}
	if err := m.atomicWrite(dest, data); err != nil {
		return err
	}
	if err := os.Remove(sourcePath); err != nil {
		m.logger.Warn().Err(err).Str("path", sourcePath).Msg("failed to remove consumed source")
	}
	return nil
}

// materializeFromRegister clones an already-resident register's value into
// renaming's own register, preserving or consuming the source renaming's
// register per preserve.
func (m *Manager) materializeFromRegister(src *registerEntry, renaming types.DataInstanceID, preserve bool) error {
	src.mu.Lock()
	value := src.reg.Value
	filePaths := append([]string(nil), src.reg.FilePaths...)
	storageID := src.reg.StorageID
	srcRenaming := src.reg.Renaming
	src.mu.Unlock()

	e, _ := m.entry(renaming, true)
	e.mu.Lock()
	e.reg.Value = value
	e.reg.FilePaths = filePaths
	e.reg.StorageID = storageID
	e.mu.Unlock()

	if !preserve {
		m.mapMu.Lock()
		delete(m.registers, srcRenaming)
		m.mapMu.Unlock()
	}
	return nil
}

// BindBindingObject caches value in-process under renaming, so a later
// fetch for the same renaming (e.g. a task chained within the same worker)
// is served from memory instead of round-tripping through a file.
func (m *Manager) BindBindingObject(renaming types.DataInstanceID, value any) {
	m.bindingMu.Lock()
	defer m.bindingMu.Unlock()
	m.bindingCache[renaming] = value
}

func (m *Manager) bindingCacheGet(renaming types.DataInstanceID) (any, bool) {
	m.bindingMu.Lock()
	defer m.bindingMu.Unlock()
	v, ok := m.bindingCache[renaming]
	return v, ok
}

// RemoveObsoletes drops local registers (and FILE-backed data) for
// renamings no longer reachable from any live data version.
func (m *Manager) RemoveObsoletes(renamings []types.DataInstanceID) {
	for _, renaming := range renamings {
		m.mapMu.Lock()
		e, ok := m.registers[renaming]
		if ok {
			delete(m.registers, renaming)
		}
		m.mapMu.Unlock()
		if !ok {
			continue
		}
		e.mu.Lock()
		for _, p := range e.reg.FilePaths {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				m.logger.Warn().Err(err).Str("path", p).Msg("failed to remove obsolete file")
			}
		}
		e.mu.Unlock()
	}
}

// GetObject returns the register for renaming, if resident.
func (m *Manager) GetObject(renaming types.DataInstanceID) (types.Register, bool) {
	e, ok := m.entry(renaming, false)
	if !ok {
		return types.Register{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg, true
}
