package stomp

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestTransactionTableBeginEndLifecycle(t *testing.T) {
	tt := newTransactionTable()
	assert.Check(t, !tt.isOpen("tx-1"))

	assert.NilError(t, tt.begin("tx-1"))
	assert.Check(t, tt.isOpen("tx-1"))

	err := tt.begin("tx-1")
	assert.Check(t, err != nil)

	assert.NilError(t, tt.end("tx-1"))
	assert.Check(t, !tt.isOpen("tx-1"))

	err = tt.end("tx-1")
	assert.Check(t, err != nil)
}

func TestTransactionTableResetClosesAll(t *testing.T) {
	tt := newTransactionTable()
	assert.NilError(t, tt.begin("tx-1"))
	assert.NilError(t, tt.begin("tx-2"))
	tt.reset()
	assert.Check(t, !tt.isOpen("tx-1"))
	assert.Check(t, !tt.isOpen("tx-2"))
}
