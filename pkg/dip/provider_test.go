package dip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxrun/fluxrun/pkg/types"
)

func TestRegisterAccessReadWrite(t *testing.T) {
	p := New()
	did := p.NewDID()

	read, write, invalidated, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.W})
	require.NoError(t, err)
	assert.Nil(t, read)
	require.NotNil(t, write)
	assert.Equal(t, types.NewDataInstanceID(did, 1), *write)
	require.NotNil(t, invalidated)
	assert.Equal(t, types.NewDataInstanceID(did, 0), *invalidated)

	require.NoError(t, p.FinishAccess(*write))

	read, write, invalidated, err = p.RegisterAccess("app1", types.Access{DID: did, Mode: types.R})
	require.NoError(t, err)
	require.NotNil(t, read)
	assert.Nil(t, write)
	assert.Nil(t, invalidated)
	assert.Equal(t, types.NewDataInstanceID(did, 1), *read)
}

func TestRegisterAccessUnknownDID(t *testing.T) {
	p := New()
	_, _, _, err := p.RegisterAccess("app1", types.Access{DID: types.DID(999), Mode: types.R})
	assert.ErrorIs(t, err, types.ErrUnknownData)
}

func TestRegisterAccessRWReportsInvalidatedVersion(t *testing.T) {
	p := New()
	did := p.NewDID()

	read, write, invalidated, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.RW})
	require.NoError(t, err)
	require.NotNil(t, read)
	require.NotNil(t, write)
	require.NotNil(t, invalidated)
	assert.Equal(t, *read, *invalidated)
	assert.NotEqual(t, *read, *write)
}

func TestFinishAccessIdempotent(t *testing.T) {
	p := New()
	did := p.NewDID()
	_, write, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.W})
	require.NoError(t, err)

	require.NoError(t, p.FinishAccess(*write))
	require.NoError(t, p.FinishAccess(*write)) // idempotent, no panic
}

func TestDeleteDataRejectsWhileReaders(t *testing.T) {
	p := New()
	did := p.NewDID()
	_, write, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.W})
	require.NoError(t, err)
	require.NoError(t, p.FinishAccess(*write))

	read, _, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.R})
	require.NoError(t, err)

	assert.ErrorIs(t, p.DeleteData(did), types.ErrDependency)

	require.NoError(t, p.FinishAccess(*read))
	assert.NoError(t, p.DeleteData(did))
}

func TestConcurrentWritersDrainBeforeWake(t *testing.T) {
	p := New()
	did := p.NewDID()

	_, w1, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.C})
	require.NoError(t, err)
	_, w2, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.C})
	require.NoError(t, err)
	assert.NotEqual(t, *w1, *w2)

	done := make(chan struct{})
	go func() {
		_, _, _ = p.BlockDataAndGetResultFile(did)
		close(done)
	}()

	require.NoError(t, p.FinishAccess(*w1))
	select {
	case <-done:
		t.Fatal("waiter woke before all concurrent writers finished")
	default:
	}

	require.NoError(t, p.FinishAccess(*w2))
	<-done
}

func TestCommutativeBagFIFO(t *testing.T) {
	p := New()
	did := p.NewDID()

	_, m1, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.M})
	require.NoError(t, err)
	_, m2, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.M})
	require.NoError(t, err)
	assert.NotEqual(t, *m1, *m2)

	require.NoError(t, p.FinishAccess(*m1))
	require.NoError(t, p.FinishAccess(*m2))

	read, _, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.R})
	require.NoError(t, err)
	assert.Equal(t, types.NewDataInstanceID(did, 1), *read)
}

func TestCommutativeWritesAdvanceVersionOnceRegardlessOfOrder(t *testing.T) {
	p := New()
	did := p.NewDID()

	_, m1, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.M})
	require.NoError(t, err)
	_, m2, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.M})
	require.NoError(t, err)
	_, m3, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.M})
	require.NoError(t, err)

	// finish out of submission order
	require.NoError(t, p.FinishAccess(*m2))
	require.NoError(t, p.FinishAccess(*m3))
	require.NoError(t, p.FinishAccess(*m1))

	read, _, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.R})
	require.NoError(t, err)
	assert.Equal(t, types.NewDataInstanceID(did, 1), *read)
}

func TestBlockDataAndGetResultFileWaitsForCommutativeDrain(t *testing.T) {
	p := New()
	did := p.NewDID()

	_, m1, _, err := p.RegisterAccess("app1", types.Access{DID: did, Mode: types.M})
	require.NoError(t, err)

	done := make(chan types.DataInstanceID, 1)
	go func() {
		dii, _, _ := p.BlockDataAndGetResultFile(did)
		done <- dii
	}()

	select {
	case <-done:
		t.Fatal("waiter woke before the commutative writer finished")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, p.FinishAccess(*m1))

	select {
	case dii := <-done:
		assert.Equal(t, types.NewDataInstanceID(did, 1), dii)
	case <-time.After(time.Second):
		t.Fatal("waiter never woke after commutative writer finished")
	}
}
