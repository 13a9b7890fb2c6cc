package keystore

import (
	"math/rand"
	"testing"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/stretchr/testify/require"
)

func newTestKeystore() *Keystore {
	return New(rand.New(rand.NewSource(1)))
}

func TestPutAndGet(t *testing.T) {
	k := newTestKeystore()
	key := format.NewStringKey("name")
	entry := &Entry{Value: "alice", Offset: 10, Length: 20}

	k.Put(key, entry)
	require.Equal(t, 1, k.Len())

	got, ok := k.Get(key)
	require.True(t, ok)
	require.Equal(t, entry, got)
}

func TestMixedKeyOrdering(t *testing.T) {
	k := newTestKeystore()
	k.Put(format.NewStringKey("b"), &Entry{})
	k.Put(format.NewUintKey(5), &Entry{})
	k.Put(format.NewStringKey("a"), &Entry{})
	k.Put(format.NewUintKey(1), &Entry{})

	var order []string
	k.Range(func(key format.Key, _ *Entry) bool {
		order = append(order, key.String())
		return true
	})

	require.Equal(t, []string{"1", "5", "a", "b"}, order)
}

func TestDeleteIncrementsDeletedFrames(t *testing.T) {
	k := newTestKeystore()
	key := format.NewStringKey("gone")
	k.Put(key, &Entry{})

	require.Equal(t, 0, k.DeletedFrames())
	require.True(t, k.Delete(key))
	require.Equal(t, 1, k.DeletedFrames())
	require.Equal(t, 0, k.Len())

	require.False(t, k.Delete(key))
	require.Equal(t, 1, k.DeletedFrames(), "deleting an already-absent key must not double count")
}

func TestApplyTombstoneCountsEvenWhenAbsent(t *testing.T) {
	k := newTestKeystore()
	key := format.NewStringKey("ghost")

	k.ApplyTombstone(key)
	require.Equal(t, 1, k.DeletedFrames())
	require.Equal(t, 0, k.Len())
}

func TestResetDeletedFrames(t *testing.T) {
	k := newTestKeystore()
	k.Put(format.NewStringKey("x"), &Entry{})
	k.Delete(format.NewStringKey("x"))
	require.Equal(t, 1, k.DeletedFrames())

	k.ResetDeletedFrames()
	require.Equal(t, 0, k.DeletedFrames())
}

func TestNextAutoKeyIncrements(t *testing.T) {
	k := newTestKeystore()
	require.Equal(t, uint32(0), k.NextAutoKey())
	require.Equal(t, uint32(1), k.NextAutoKey())
	require.Equal(t, uint32(2), k.NextAutoKey())
}

func TestGetAtFollowsComparatorOrder(t *testing.T) {
	k := newTestKeystore()
	k.Put(format.NewUintKey(3), &Entry{Value: "three"})
	k.Put(format.NewUintKey(1), &Entry{Value: "one"})
	k.Put(format.NewStringKey("z"), &Entry{Value: "zee"})

	key, entry, ok := k.GetAt(0)
	require.True(t, ok)
	require.Equal(t, format.NewUintKey(1), key)
	require.Equal(t, "one", entry.Value)

	_, _, ok = k.GetAt(3)
	require.False(t, ok)
}
