package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := New(TypeConflict, "registered as %s", "INT").WithTable("default/t").WithField("price").WithDoc(2)

	assert.True(t, errors.Is(err, ErrTypeConflict))
	assert.False(t, errors.Is(err, ErrDimensionMismatch))
	assert.Equal(t, "type_conflict table=default/t field=price doc=2: registered as INT", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := fmt.Errorf("saving: %w", Wrap(SnapshotIOError, cause, "write tables.meta"))

	require.True(t, errors.Is(err, ErrSnapshotIO))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, SnapshotIOError, KindOf(err))
	assert.True(t, IsSnapshotError(err))
}

func TestScopedCopiesDoNotMutateOriginal(t *testing.T) {
	base := New(DimensionMismatch, "want 3")
	scoped := base.WithField("v")

	assert.Empty(t, base.Field)
	assert.Equal(t, "v", scoped.Field)
	assert.Equal(t, "v", FieldOf(scoped))
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsValueShape(New(VectorAfterFreeze, "")))
	assert.True(t, IsValueShape(New(EncodingError, "")))
	assert.False(t, IsValueShape(New(NoDimensionMatch, "")))
	assert.True(t, IsEngineError(New(EngineAddFailed, "")))
	assert.True(t, IsNotFound(New(TableNotFound, "")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
