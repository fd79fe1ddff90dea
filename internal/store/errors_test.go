package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreErrorFormatsContext(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStoreError("answer_sheet", "create", "failed to insert sheet", cause)

	assert.Equal(t,
		"create operation on answer_sheet failed: failed to insert sheet: connection reset",
		err.Error())

	withoutCause := NewStoreError("grading_result", "get", "failed to read result", nil)
	assert.Equal(t,
		"get operation on grading_result failed: failed to read result",
		withoutCause.Error())
}

func TestStoreErrorPreservesWrappedChain(t *testing.T) {
	err := NewStoreError("answer_sheet", "get", "failed to read sheet", ErrSheetNotFound)

	assert.ErrorIs(t, err, ErrSheetNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFoundError(err))

	var storeErr *StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "answer_sheet", storeErr.Entity)
	assert.Equal(t, "get", storeErr.Operation)
}

func TestEntitySentinelsMapToGenericErrors(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrSheetNotFound))
	assert.True(t, IsNotFoundError(ErrResultNotFound))
	assert.True(t, IsNotFoundError(ErrSnapshotNotFound))
	assert.True(t, IsDuplicateError(ErrResultExists))
	assert.True(t, IsDuplicateError(ErrSnapshotExists))
	assert.False(t, IsNotFoundError(ErrStaleStatus))
	assert.False(t, IsDuplicateError(ErrTransactionFailed))
}
