package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/metrics"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// Listener is notified when an asked-for transfer completes or fails. A
// single renaming may have several listeners attached if more than one
// waiter asked for the same in-flight transfer (the data manager's
// at-most-one-in-flight-transfer rule).
type Listener interface {
	FetchedValue(renaming types.DataInstanceID)
	ErrorFetchingValue(renaming types.DataInstanceID, class types.FailureClass)
}

// Provider pulls a parameter's value onto a worker from its source.
type Provider interface {
	AskForTransfer(ctx context.Context, param types.Parameter, renaming types.DataInstanceID, sourcePath string, destPath string, l Listener) error
}

// LocalProvider copies or hard-links between local filesystem paths, for
// single-host deployments and tests that exercise real file I/O.
type LocalProvider struct {
	logger zerolog.Logger
}

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{logger: log.WithComponent("transfer")}
}

// AskForTransfer moves or copies sourcePath to destPath, notifying l on
// completion. When param.PreserveSource is false the source is consumed: a
// rename is attempted first, falling back to copy-then-remove if sourcePath
// and destPath straddle filesystems. When true the source is left in place
// and a plain copy is made.
func (p *LocalProvider) AskForTransfer(ctx context.Context, param types.Parameter, renaming types.DataInstanceID, sourcePath, destPath string, l Listener) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.TransferDuration, param.TypeTag.String())

	if sourcePath == "" {
		l.ErrorFetchingValue(renaming, types.FailureFatal)
		return types.ErrNoSources
	}

	if sourcePath == destPath {
		// Shared-workDir single-host deployments resolve source and dest
		// to the same path; opening both would truncate the only copy.
		l.FetchedValue(renaming)
		return nil
	}

	if !param.PreserveSource {
		if err := os.Rename(sourcePath, destPath); err == nil {
			l.FetchedValue(renaming)
			return nil
		}
		p.logger.Warn().Str("source", sourcePath).Str("dest", destPath).
			Msg("rename failed, falling back to copy-then-remove")
	}

	n, err := p.copyFile(sourcePath, destPath)
	if err != nil {
		l.ErrorFetchingValue(renaming, types.FailureRetriable)
		return err
	}

	if !param.PreserveSource {
		if err := os.Remove(sourcePath); err != nil {
			p.logger.Warn().Str("source", sourcePath).Err(err).Msg("failed to remove consumed source")
		}
	}

	metrics.TransferBytesTotal.WithLabelValues(param.TypeTag.String()).Add(float64(n))
	l.FetchedValue(renaming)
	return nil
}

func (p *LocalProvider) copyFile(sourcePath, destPath string) (int64, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("%w: open source %s: %v", types.ErrTransfer, sourcePath, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("%w: create dest %s: %v", types.ErrTransfer, destPath, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return 0, fmt.Errorf("%w: copy %s -> %s: %v", types.ErrTransfer, sourcePath, destPath, err)
	}
	return n, nil
}

// InMemoryProvider serves values already resident in a shared fixture map,
// used by unit tests that exercise the data manager/scheduler wiring
// without needing a real filesystem.
type InMemoryProvider struct {
	mu     sync.Mutex
	values map[types.DataInstanceID]any
}

// NewInMemoryProvider creates an InMemoryProvider seeded with values.
func NewInMemoryProvider(values map[types.DataInstanceID]any) *InMemoryProvider {
	if values == nil {
		values = make(map[types.DataInstanceID]any)
	}
	return &InMemoryProvider{values: values}
}

// Put seeds or overwrites a renaming's in-memory value.
func (p *InMemoryProvider) Put(renaming types.DataInstanceID, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[renaming] = value
}

// AskForTransfer looks up renaming in the fixture map; sourcePath/destPath
// are ignored.
func (p *InMemoryProvider) AskForTransfer(ctx context.Context, param types.Parameter, renaming types.DataInstanceID, sourcePath, destPath string, l Listener) error {
	p.mu.Lock()
	value, ok := p.values[renaming]
	p.mu.Unlock()

	if !ok {
		l.ErrorFetchingValue(renaming, types.FailureFatal)
		return types.ErrNoSources
	}
	l.FetchedValue(renaming)
	_ = value
	return nil
}
