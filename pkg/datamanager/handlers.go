package datamanager

import (
	"context"
	"fmt"
	"os"

	"github.com/fluxrun/fluxrun/pkg/types"
)

// fetchHandler resolves one parameter's renaming onto the local worker.
// Dispatch is table-driven by types.TypeTag (Design Notes "polymorphism
// over parameter kinds") instead of a type switch scattered through the
// call sites.
type fetchHandler func(ctx context.Context, m *Manager, param types.Parameter, renaming types.DataInstanceID, sourceAddr, sourcePath string) error

var handlerTable = map[types.TypeTag]fetchHandler{
	types.FILE:           fetchFile,
	types.BINDING_OBJECT: fetchBindingObject,
	types.OBJECT:         fetchViaProvider,
	types.PRIMITIVE:      fetchViaProvider,
	types.PSCO:           fetchPSCO,
	types.EXTERNAL_PSCO:  fetchPSCO,
	types.STREAM:         fetchStream,
}

// fetchFile resolves a FILE parameter: a no-op if dest is already resident,
// else a local copy/move from sourcePath when that names a file already on
// this worker, else a transfer from sourceAddr.
func fetchFile(ctx context.Context, m *Manager, param types.Parameter, renaming types.DataInstanceID, sourceAddr, sourcePath string) error {
	dest := m.localPath(renaming)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	if sourcePath != "" && sourcePath != dest {
		if _, err := os.Stat(sourcePath); err == nil {
			return m.materializeFile(sourcePath, dest, param.PreserveSource)
		}
	}
	if m.transferProvider == nil {
		return fmt.Errorf("%w: no transfer provider configured", types.ErrTransfer)
	}
	return m.transferProvider.AskForTransfer(ctx, param, renaming, sourcePath, dest, noopListener{})
}

// fetchBindingObject resolves a BINDING_OBJECT parameter through the strict
// fallback order: in-process binding cache, a register already resident
// under sourcePath's renaming (copied or moved per param.PreserveSource), a
// file already local at sourcePath, and finally the transfer provider.
func fetchBindingObject(ctx context.Context, m *Manager, param types.Parameter, renaming types.DataInstanceID, sourceAddr, sourcePath string) error {
	if value, ok := m.bindingCacheGet(types.DataInstanceID(sourcePath)); ok {
		m.BindBindingObject(renaming, value)
		e, _ := m.entry(renaming, true)
		e.mu.Lock()
		e.reg.Value = value
		e.mu.Unlock()
		return nil
	}

	if src, ok := m.entry(types.DataInstanceID(sourcePath), false); ok {
		return m.materializeFromRegister(src, renaming, param.PreserveSource)
	}

	dest := m.localPath(renaming)
	if sourcePath != "" && sourcePath != dest {
		if _, err := os.Stat(sourcePath); err == nil {
			return m.materializeFile(sourcePath, dest, param.PreserveSource)
		}
	}

	if m.transferProvider == nil {
		return fmt.Errorf("%w: no transfer provider configured", types.ErrTransfer)
	}
	return m.transferProvider.AskForTransfer(ctx, param, renaming, sourcePath, dest, noopListener{})
}

// fetchViaProvider resolves an OBJECT/PRIMITIVE parameter: a local register
// clone when sourcePath already names a resident renaming, else a transfer.
func fetchViaProvider(ctx context.Context, m *Manager, param types.Parameter, renaming types.DataInstanceID, sourceAddr, sourcePath string) error {
	if src, ok := m.entry(types.DataInstanceID(sourcePath), false); ok {
		return m.materializeFromRegister(src, renaming, param.PreserveSource)
	}
	if m.transferProvider == nil {
		return fmt.Errorf("%w: no transfer provider configured", types.ErrTransfer)
	}
	return m.transferProvider.AskForTransfer(ctx, param, renaming, sourcePath, "", noopListener{})
}

// fetchPSCO resolves a PSCO/EXTERNAL_PSCO parameter by reference through
// the storage backend rather than moving bytes: the register only records
// which storage id backs it.
func fetchPSCO(ctx context.Context, m *Manager, param types.Parameter, renaming types.DataInstanceID, sourceAddr, sourcePath string) error {
	if m.storageBackend == nil {
		return fmt.Errorf("%w: no storage backend configured", types.ErrStorageBackend)
	}
	loc, err := m.storageBackend.GetByID(string(renaming))
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrStorageBackend, err)
	}
	e, _ := m.entry(renaming, true)
	e.mu.Lock()
	e.reg.StorageID = loc.PSCOID
	e.mu.Unlock()
	return nil
}

// fetchStream is a reference-only no-op: concrete stream transports are
// not implemented here.
func fetchStream(ctx context.Context, m *Manager, param types.Parameter, renaming types.DataInstanceID, sourceAddr, sourcePath string) error {
	return nil
}

type noopListener struct{}

func (noopListener) FetchedValue(types.DataInstanceID)                          {}
func (noopListener) ErrorFetchingValue(types.DataInstanceID, types.FailureClass) {}
