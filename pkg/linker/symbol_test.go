package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTableDefineStrongOverridesWeak(t *testing.T) {
	st := NewSymbolTable()
	require.NoError(t, st.Define("foo", StrengthWeak, nil, nil, 1, true, uint8(0)))
	require.NoError(t, st.Define("foo", StrengthStrong, nil, nil, 2, true, uint8(0)))

	sym, ok := st.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, StrengthStrong, sym.Strength)
	assert.Equal(t, uint64(2), sym.Value)
}

func TestSymbolTableWeakNeverOverridesStrong(t *testing.T) {
	st := NewSymbolTable()
	require.NoError(t, st.Define("foo", StrengthStrong, nil, nil, 1, true, uint8(0)))
	require.NoError(t, st.Define("foo", StrengthWeak, nil, nil, 2, true, uint8(0)))

	sym, ok := st.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, StrengthStrong, sym.Strength)
	assert.Equal(t, uint64(1), sym.Value)
}

func TestSymbolTableDuplicateStrongIsError(t *testing.T) {
	st := NewSymbolTable()
	require.NoError(t, st.Define("foo", StrengthStrong, nil, nil, 1, true, uint8(0)))
	err := st.Define("foo", StrengthStrong, nil, nil, 2, true, uint8(0))
	assert.ErrorIs(t, err, ErrDuplicateSymbol)
}

func TestSymbolTableUnresolvedNames(t *testing.T) {
	st := NewSymbolTable()
	st.Reference("foo", false)
	st.Reference("bar", true)
	require.NoError(t, st.Define("bar", StrengthStrong, nil, nil, 0, true, uint8(0)))

	assert.Equal(t, []string{"foo"}, st.UnresolvedNames())
}

func TestSymbolTableFinalizeWeakUndefResolvesToZero(t *testing.T) {
	st := NewSymbolTable()
	st.Reference("optional_hook", true)

	require.NoError(t, st.Finalize())

	sym, ok := st.Lookup("optional_hook")
	require.True(t, ok)
	assert.True(t, sym.Absolute)
	assert.Equal(t, uint64(0), sym.Value)

	addr, err := sym.Address()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), addr)
}

func TestSymbolTableFinalizeStrongUndefIsError(t *testing.T) {
	st := NewSymbolTable()
	st.Reference("missing", false)

	err := st.Finalize()
	assert.ErrorIs(t, err, ErrUnresolvedSymbol)
}

func TestSymbolTableNamesPreservesInsertionOrder(t *testing.T) {
	st := NewSymbolTable()
	st.Reference("c", false)
	st.Reference("a", false)
	st.Reference("b", false)

	assert.Equal(t, []string{"c", "a", "b"}, st.Names())
}

func TestSymbolAddressAbsolute(t *testing.T) {
	sym := &Symbol{Absolute: true, Value: 0x1234}
	addr, err := sym.Address()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), addr)
}

func TestSymbolAddressSectionNotLaidOutIsError(t *testing.T) {
	sym := &Symbol{Section: &InputSection{name: ".text"}}
	_, err := sym.Address()
	assert.Error(t, err)
}
