package ime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerRecordAndRelease(t *testing.T) {
	var l Ledger

	assert.True(t, l.RecordForwarded(keyA))
	assert.True(t, l.RecordConsumed(keyS))
	assert.False(t, l.RecordForwarded(keyS), "key already consumed")
	assert.False(t, l.RecordConsumed(keyA), "key already forwarded")

	assert.Equal(t, Forwarded, l.Release(keyA))
	assert.Equal(t, Consumed, l.Release(keyS))
	assert.Equal(t, Unknown, l.Release(keyA))

	forwarded, consumed := l.Len()
	assert.Zero(t, forwarded)
	assert.Zero(t, consumed)
}

func TestLedgerReleaseUnknown(t *testing.T) {
	var l Ledger
	assert.Equal(t, Unknown, l.Release(keyD))
	assert.False(t, l.Holds(keyD))
}

func TestLedgerDrainKeepsPressOrder(t *testing.T) {
	var l Ledger
	for _, k := range []Key{keyD, keyA, keyS} {
		l.RecordForwarded(k)
	}
	l.RecordConsumed(keyC)
	l.Release(keyA)

	assert.Equal(t, []Key{keyD, keyS}, l.DrainForwarded())
	assert.Empty(t, l.DrainForwarded())

	_, consumed := l.Len()
	assert.Equal(t, 1, consumed)
	l.DropConsumed()
	_, consumed = l.Len()
	assert.Zero(t, consumed)
}

func TestOwnerString(t *testing.T) {
	assert.Equal(t, "forwarded", Forwarded.String())
	assert.Equal(t, "consumed", Consumed.String())
	assert.Equal(t, "unknown", Unknown.String())
}
