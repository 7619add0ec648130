package dip

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/metrics"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// WaitTicket identifies one blocking wait registered against a DID, so a
// caller can later wait on that same registration via
// WaitForDataReadyToDelete. FindWaitedConcurrent does not consult it.
type WaitTicket uint64

type waiter struct {
	ticket WaitTicket
	done   chan struct{}
}

type dataEntry struct {
	did            types.DID
	curVersion     int
	versions       map[int]*types.DataVersion
	commutativeBag []types.DataInstanceID
	concurrentSet  map[types.DataInstanceID]bool
	waiters        []waiter
	deleted        bool
}

// Provider is the Data Info Provider (component B). One Provider serves one
// running application.
type Provider struct {
	mu        sync.Mutex
	logger    zerolog.Logger
	data      map[types.DID]*dataEntry
	didSeq    atomic.Uint64
	ticketSeq atomic.Uint64
}

// New creates an empty Provider.
func New() *Provider {
	return &Provider{
		logger: log.WithComponent("dip"),
		data:   make(map[types.DID]*dataEntry),
	}
}

// NewDID allocates the next process-unique data identifier and seeds its
// version-0 entry.
func (p *Provider) NewDID() types.DID {
	p.mu.Lock()
	defer p.mu.Unlock()

	did := types.DID(p.didSeq.Add(1))
	p.data[did] = &dataEntry{
		did:           did,
		versions:      map[int]*types.DataVersion{0: {DID: did, Version: 0}},
		concurrentSet: make(map[types.DataInstanceID]bool),
	}
	metrics.DataVersionsTotal.Inc()
	return did
}

// RegisterAccess resolves one task parameter's access into the renaming(s)
// it should read from and/or write to. read is nil for a pure W access;
// write is nil for a pure R access. invalidated is set whenever this
// access retires a version outright (W, RW): it names that version's
// renaming so the caller can find any other task still reading it and
// order this access after them, since advancing curVersion here does not
// itself wait for existing readers to drain.
func (p *Provider) RegisterAccess(app string, acc types.Access) (read, write, invalidated *types.DataInstanceID, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.data[acc.DID]
	if !ok || e.deleted {
		return nil, nil, nil, types.ErrUnknownData
	}

	switch acc.Mode {
	case types.R:
		cur := e.versions[e.curVersion]
		cur.Readers++
		dii := types.NewDataInstanceID(acc.DID, e.curVersion)
		return &dii, nil, nil, nil

	case types.RW:
		cur := e.versions[e.curVersion]
		cur.Readers++
		readDII := types.NewDataInstanceID(acc.DID, e.curVersion)
		writeDII := p.allocateNextVersion(e)
		return &readDII, &writeDII, &readDII, nil

	case types.W:
		oldDII := types.NewDataInstanceID(acc.DID, e.curVersion)
		writeDII := p.allocateNextVersion(e)
		return nil, &writeDII, &oldDII, nil

	case types.C:
		cur := e.versions[e.curVersion]
		readDII := types.NewDataInstanceID(acc.DID, e.curVersion)
		n := len(e.concurrentSet)
		writeDII := types.DataInstanceID(fmt.Sprintf("%s_c%d", readDII, n))
		for e.concurrentSet[writeDII] {
			n++
			writeDII = types.DataInstanceID(fmt.Sprintf("%s_c%d", readDII, n))
		}
		e.concurrentSet[writeDII] = true
		_ = cur
		return &readDII, &writeDII, nil, nil

	case types.M:
		base := types.NewDataInstanceID(acc.DID, e.curVersion+1)
		writeDII := types.DataInstanceID(fmt.Sprintf("%s_m%d", base, len(e.commutativeBag)))
		e.commutativeBag = append(e.commutativeBag, writeDII)
		return nil, &writeDII, nil, nil

	default:
		return nil, nil, nil, types.ErrDependency
	}
}

// allocateNextVersion invalidates the current version and creates the next
// one. The predecessor stays alive (its Readers count is preserved) until
// FinishAccess drains its last reader.
func (p *Provider) allocateNextVersion(e *dataEntry) types.DataInstanceID {
	if cur, ok := e.versions[e.curVersion]; ok {
		cur.Invalidated = true
	}
	e.curVersion++
	e.versions[e.curVersion] = &types.DataVersion{DID: e.did, Version: e.curVersion}
	metrics.DIIAllocationsTotal.Inc()
	return types.NewDataInstanceID(e.did, e.curVersion)
}

// DataHasBeenAccessed reports whether did has any recorded version beyond
// its initial allocation.
func (p *Provider) DataHasBeenAccessed(did types.DID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.data[did]
	return ok && e.curVersion > 0
}

// FinishAccess retires one outstanding access. Idempotent: finishing a
// renaming twice is logged at debug and otherwise a no-op.
func (p *Provider) FinishAccess(dii types.DataInstanceID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.data {
		if e.concurrentSet[dii] {
			delete(e.concurrentSet, dii)
			if len(e.concurrentSet) == 0 {
				p.allocateNextVersion(e)
			}
			p.wakeWaiters(e)
			return nil
		}
		if p.drainCommutativeBag(e, dii) {
			if len(e.commutativeBag) == 0 {
				p.allocateNextVersion(e)
			}
			p.wakeWaiters(e)
			return nil
		}
		for v, dv := range e.versions {
			if types.NewDataInstanceID(e.did, v) == dii {
				if dv.Readers > 0 {
					dv.Readers--
				}
				if dv.Readers == 0 && dv.Invalidated {
					delete(e.versions, v)
				}
				p.wakeWaiters(e)
				return nil
			}
		}
	}
	p.logger.Debug().Str("dii", string(dii)).Msg("finish access on unknown or already-finished renaming")
	return nil
}

// drainCommutativeBag removes dii from e's pending commutative writers, if
// present, reporting whether it was found there. The last writer to drain
// the bag is responsible for advancing the version (see FinishAccess), so
// the final version seen by readers is the same regardless of which order
// the commutative writers actually completed in.
func (p *Provider) drainCommutativeBag(e *dataEntry, dii types.DataInstanceID) bool {
	for i, pending := range e.commutativeBag {
		if pending == dii {
			e.commutativeBag = append(e.commutativeBag[:i], e.commutativeBag[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteData removes a DID's bookkeeping entirely. Legal only once every
// outstanding access has finished.
func (p *Provider) DeleteData(did types.DID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.data[did]
	if !ok {
		return types.ErrUnknownData
	}
	for _, dv := range e.versions {
		if dv.Readers > 0 {
			return types.ErrDependency
		}
	}
	if len(e.concurrentSet) > 0 || len(e.commutativeBag) > 0 {
		return types.ErrDependency
	}
	e.deleted = true
	delete(p.data, did)
	metrics.DataVersionsTotal.Dec()
	return nil
}

// BlockDataAndGetResultFile registers a blocking wait for did's current
// version to become free of in-flight writers and returns the renaming the
// caller should read once woken, along with a ticket identifying this wait.
func (p *Provider) BlockDataAndGetResultFile(did types.DID) (types.DataInstanceID, WaitTicket, error) {
	p.mu.Lock()

	e, ok := p.data[did]
	if !ok || e.deleted {
		p.mu.Unlock()
		return "", 0, types.ErrUnknownData
	}

	ticket := WaitTicket(p.ticketSeq.Add(1))
	if len(e.concurrentSet) == 0 && len(e.commutativeBag) == 0 {
		dii := types.NewDataInstanceID(did, e.curVersion)
		p.mu.Unlock()
		return dii, ticket, nil
	}

	done := make(chan struct{})
	e.waiters = append(e.waiters, waiter{ticket: ticket, done: done})
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	dii := types.NewDataInstanceID(did, e.curVersion)
	return dii, ticket, nil
}

// WaitForDataReadyToDelete blocks until a prior BlockDataAndGetResultFile
// ticket's wait has been satisfied, then is a precondition check for
// DeleteData; it does not itself delete the data.
func (p *Provider) WaitForDataReadyToDelete(did types.DID, t WaitTicket) error {
	p.mu.Lock()
	e, ok := p.data[did]
	if !ok {
		p.mu.Unlock()
		return types.ErrUnknownData
	}
	for _, w := range e.waiters {
		if w.ticket == t {
			p.mu.Unlock()
			<-w.done
			return nil
		}
	}
	p.mu.Unlock()
	return nil
}

// FindWaitedConcurrent reports whether did currently has concurrent (C)
// writers in flight. It returns at once: it does not block until those
// writers finish, and the ticket t is not consulted.
func (p *Provider) FindWaitedConcurrent(did types.DID, t WaitTicket) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.data[did]
	if !ok {
		return false
	}
	return len(e.concurrentSet) > 0
}

func (p *Provider) wakeWaiters(e *dataEntry) {
	if len(e.concurrentSet) > 0 || len(e.commutativeBag) > 0 {
		return
	}
	for _, w := range e.waiters {
		close(w.done)
	}
	e.waiters = nil
}
