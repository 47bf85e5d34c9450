package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stringRepr string

func (s stringRepr) Name() string            { return "string_repr" }
func (s stringRepr) String() string          { return string(s) }
func (s stringRepr) Materialize(_ string) error { return nil }

type intRepr int

func (n intRepr) Name() string              { return "int_repr" }
func (n intRepr) String() string            { return "" }
func (n intRepr) Materialize(_ string) error { return nil }

func TestHarvestIRInsertIsCopyOnWrite(t *testing.T) {
	ir := NewHarvestIR()
	id := NewID()

	next := ir.insert(id, stringRepr("hello"))

	require.False(t, ir.Contains(id), "original snapshot must be unaffected by insert")
	require.True(t, next.Contains(id))
	require.Equal(t, 0, ir.Len())
	require.Equal(t, 1, next.Len())
}

func TestHarvestIRIterAscendingOrder(t *testing.T) {
	ir := NewHarvestIR()
	ids := NewIDs(3)
	for _, id := range ids {
		ir = ir.insert(id, stringRepr("x"))
	}

	pairs := ir.Iter()
	require.Len(t, pairs, 3)
	for i := 1; i < len(pairs); i++ {
		require.Less(t, pairs[i-1].ID, pairs[i].ID)
	}
}

func TestByTypeFiltersByDynamicType(t *testing.T) {
	ir := NewHarvestIR()
	strID := NewID()
	intID := NewID()
	ir = ir.insert(strID, stringRepr("a"))
	ir = ir.insert(intID, intRepr(1))

	strs := ByType[stringRepr](ir)
	require.Len(t, strs, 1)
	require.Equal(t, strID, strs[0].ID)

	ints := ByType[intRepr](ir)
	require.Len(t, ints, 1)
	require.Equal(t, intID, ints[0].ID)
}

func TestByTypeOnNilIR(t *testing.T) {
	var ir *HarvestIR
	require.Nil(t, ByType[stringRepr](ir))
	require.Nil(t, ir.Iter())
	require.Equal(t, 0, ir.Len())
}
