package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedArbiter(t *testing.T, n int) (*Arbiter, []ID) {
	t.Helper()
	a := NewArbiter()
	edit, err := a.NewEdit(map[ID]struct{}{})
	require.NoError(t, err)

	ids := make([]ID, n)
	for i := range ids {
		ids[i] = edit.AddRepresentation(stringRepr("seed"))
	}
	require.NoError(t, a.Apply(edit))
	return a, ids
}

func TestNewEditUnknownIDTakesPriorityOverInUse(t *testing.T) {
	a, ids := seedArbiter(t, 1)
	known := ids[0]
	unknown := ID(999999)

	// Mark known busy via a first edit.
	_, err := a.NewEdit(map[ID]struct{}{known: {}})
	require.NoError(t, err)

	_, err = a.NewEdit(map[ID]struct{}{known: {}, unknown: {}})
	require.ErrorIs(t, err, ErrUnknownID, "unknown id must be reported even when another requested id is also busy")
}

func TestNewEditIDInUse(t *testing.T) {
	a, ids := seedArbiter(t, 1)
	known := ids[0]

	_, err := a.NewEdit(map[ID]struct{}{known: {}})
	require.NoError(t, err)

	_, err = a.NewEdit(map[ID]struct{}{known: {}})
	require.ErrorIs(t, err, ErrIDInUse)
}

func TestApplyRejectsWrongArbiter(t *testing.T) {
	a1 := NewArbiter()
	a2 := NewArbiter()

	edit, err := a1.NewEdit(map[ID]struct{}{})
	require.NoError(t, err)

	err = a2.Apply(edit)
	require.ErrorIs(t, err, ErrWrongArbiter)
}

func TestApplyCommitsNewRepresentations(t *testing.T) {
	a := NewArbiter()
	edit, err := a.NewEdit(map[ID]struct{}{})
	require.NoError(t, err)

	id := edit.AddRepresentation(stringRepr("value"))
	require.NoError(t, a.Apply(edit))

	snap := a.Snapshot()
	rep, ok := snap.Get(id)
	require.True(t, ok)
	require.Equal(t, "value", rep.String())
}

func TestDiscardReleasesWithoutCommitting(t *testing.T) {
	a, ids := seedArbiter(t, 1)
	known := ids[0]

	edit, err := a.NewEdit(map[ID]struct{}{known: {}})
	require.NoError(t, err)
	require.NoError(t, edit.WriteID(known, stringRepr("should not land")))
	edit.Discard()

	// released ids are immediately available again.
	_, err = a.NewEdit(map[ID]struct{}{known: {}})
	require.NoError(t, err)

	snap := a.Snapshot()
	rep, ok := snap.Get(known)
	require.True(t, ok)
	require.Equal(t, "seed", rep.String(), "discarded edit must not have committed its pending write")
}

func TestDiscardIsIdempotent(t *testing.T) {
	a := NewArbiter()
	edit, err := a.NewEdit(map[ID]struct{}{})
	require.NoError(t, err)
	edit.Discard()
	require.NotPanics(t, func() { edit.Discard() })
}

func TestWriteIDRejectsIDOutsideEdit(t *testing.T) {
	a := NewArbiter()
	edit, err := a.NewEdit(map[ID]struct{}{})
	require.NoError(t, err)

	err = edit.WriteID(ID(12345), stringRepr("x"))
	require.True(t, errors.Is(err, ErrNotWritable))
}
