package box

import (
	"testing"
	"time"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/stretchr/testify/require"
)

func TestTxCommitAppliesStagedWritesAtomically(t *testing.T) {
	cfg := testConfig(t)
	b := openTestBox(t, cfg, "b1", false).(*eagerBox)

	ch, err := b.Watch(nil)
	require.NoError(t, err)

	tx := b.Begin()
	tx.Put(format.NewStringKey("a"), "1")
	tx.Put(format.NewStringKey("b"), "2")
	require.NoError(t, tx.Commit())

	require.Equal(t, "1", b.Get(format.NewStringKey("a"), nil))
	require.Equal(t, "2", b.Get(format.NewStringKey("b"), nil))

	for _, wantKey := range []string{"a", "b"} {
		select {
		case ev := <-ch:
			require.Equal(t, wantKey, ev.Key.String())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for commit event")
		}
	}
}

func TestTxGetSeesOwnStagedWritesBeforeCommit(t *testing.T) {
	cfg := testConfig(t)
	b := openTestBox(t, cfg, "b1", false).(*eagerBox)

	tx := b.Begin()
	tx.Put(format.NewStringKey("a"), "staged")
	require.Equal(t, "staged", tx.Get(format.NewStringKey("a"), nil))
	require.NoError(t, tx.Rollback())

	require.Nil(t, b.Get(format.NewStringKey("a"), nil))
}

func TestTxRollbackDiscardsStagedWrites(t *testing.T) {
	cfg := testConfig(t)
	b := openTestBox(t, cfg, "b1", false).(*eagerBox)

	tx := b.Begin()
	tx.Put(format.NewStringKey("a"), "staged")
	tx.Rollback()

	require.Nil(t, b.Get(format.NewStringKey("a"), nil))
	require.Equal(t, 0, b.keystore.Len())
}

func TestTxDeleteOfUnknownKeyIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	b := openTestBox(t, cfg, "b1", false).(*eagerBox)

	tx := b.Begin()
	tx.Delete(format.NewStringKey("ghost"))
	require.NoError(t, tx.Commit())

	require.Equal(t, 0, b.keystore.Len())
}

func TestTxDeleteOfKeyStagedEarlierInSameTx(t *testing.T) {
	cfg := testConfig(t)
	b := openTestBox(t, cfg, "b1", false).(*eagerBox)

	tx := b.Begin()
	tx.Put(format.NewStringKey("a"), "1")
	tx.Delete(format.NewStringKey("a"))
	require.NoError(t, tx.Commit())

	require.Nil(t, b.Get(format.NewStringKey("a"), nil))
}

func TestTxCommitWithNoStagedWritesIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	b := openTestBox(t, cfg, "b1", false).(*eagerBox)

	tx := b.Begin()
	require.NoError(t, tx.Commit())
	require.Equal(t, 0, b.keystore.Len())
}

func TestOverlappingTransactionsSerialize(t *testing.T) {
	cfg := testConfig(t)
	b := openTestBox(t, cfg, "b1", false).(*eagerBox)

	tx1 := b.Begin()
	tx1.Put(format.NewStringKey("a"), "1")

	started := make(chan struct{})
	committed := make(chan struct{})
	go func() {
		close(started)
		tx2 := b.Begin() // blocks until tx1 finishes
		tx2.Put(format.NewStringKey("b"), "2")
		require.NoError(t, tx2.Commit())
		close(committed)
	}()

	<-started
	select {
	case <-committed:
		t.Fatal("second transaction committed before the first finished")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, tx1.Commit())

	select {
	case <-committed:
	case <-time.After(time.Second):
		t.Fatal("second transaction never completed after the first released the lock")
	}

	require.Equal(t, "1", b.Get(format.NewStringKey("a"), nil))
	require.Equal(t, "2", b.Get(format.NewStringKey("b"), nil))
}
