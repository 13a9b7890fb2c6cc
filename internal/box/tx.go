package box

import (
	"fmt"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/jassi-singh/hivebox/internal/hiveerr"
	"github.com/jassi-singh/hivebox/internal/keystore"
	"github.com/jassi-singh/hivebox/internal/notify"
)

// Transactor is implemented by every non-transactional box variant, letting
// callers batch several mutations into one disk write via Begin/Commit
// instead of one WriteFrames call per Put/Delete.
type Transactor interface {
	Begin() *Tx
}

// stagedWrite is one buffered mutation, in the order it was issued; Commit
// replays that order for both the batched frame write and the notify
// fan-out, the same ordering core.putAll/deleteAll give a plain batch.
type stagedWrite struct {
	key     format.Key
	value   any
	deleted bool
}

// Tx buffers Put/Delete calls against a box in a shadow index and a pending
// frame list, flushing them as a single batched WriteFrames on Commit. It
// generalizes core.put/delete's write-through pattern — disk first, then
// keystore — to a multi-operation unit: nothing reaches the backend or the
// parent keystore until Commit succeeds. Begin takes the box's mutex for the
// transaction's entire lifetime, so overlapping transactions (and ordinary
// Put/Get calls) on the same box serialize behind it, per SPEC_FULL.md §5.
type Tx struct {
	core *core

	// shadow overlays the parent keystore for Get during the transaction;
	// pending is the same writes in issue order, replayed at Commit.
	shadow  map[string]stagedWrite
	pending []stagedWrite

	done bool
}

// Begin starts a transaction against b. The caller must call Commit or
// Rollback exactly once to release the box's mutex.
func (b *eagerBox) Begin() *Tx { return b.core.begin() }

// Begin starts a transaction against b. The caller must call Commit or
// Rollback exactly once to release the box's mutex.
func (b *lazyBox) Begin() *Tx { return b.core.begin() }

func (c *core) begin() *Tx {
	c.mu.Lock()
	return &Tx{core: c, shadow: make(map[string]stagedWrite)}
}

// Get reads tx's own staged writes first, falling back to the box's
// already-committed state for keys the transaction hasn't touched.
func (tx *Tx) Get(key format.Key, def any) any {
	if sw, ok := tx.shadow[key.String()]; ok {
		if sw.deleted {
			return def
		}
		return sw.value
	}

	entry, ok := tx.core.keystore.Get(key)
	if !ok {
		return def
	}
	value, err := tx.core.readValue(key, entry)
	if err != nil {
		return def
	}
	return value
}

// Put stages a write, visible to subsequent Get calls in the same
// transaction but invisible to other boxes/watchers until Commit.
func (tx *Tx) Put(key format.Key, value any) {
	sw := stagedWrite{key: key, value: value}
	tx.shadow[key.String()] = sw
	tx.pending = append(tx.pending, sw)
}

// Delete stages a tombstone for key if it is live — either already on disk
// or from an earlier Put staged in this same transaction — mirroring
// core.delete's no-op-on-unknown-key rule.
func (tx *Tx) Delete(key format.Key) {
	if sw, ok := tx.shadow[key.String()]; ok && sw.deleted {
		return
	}
	if _, staged := tx.shadow[key.String()]; !staged && !tx.core.keystore.Contains(key) {
		return
	}
	del := stagedWrite{key: key, deleted: true}
	tx.shadow[key.String()] = del
	tx.pending = append(tx.pending, del)
}

// Commit encodes every staged write into one batched WriteFrames call, then
// applies it to the parent keystore and notifier in staging order, and
// releases the box's mutex. A transaction with no staged writes is a no-op.
func (tx *Tx) Commit() error {
	defer tx.finish()

	if tx.done {
		return fmt.Errorf("box %q: transaction already finished", tx.core.name)
	}
	if tx.core.closed {
		return fmt.Errorf("box %q: %w", tx.core.name, hiveerr.ErrBoxClosed)
	}
	if len(tx.pending) == 0 {
		return nil
	}

	frames := make([][]byte, len(tx.pending))
	for i, sw := range tx.pending {
		var (
			frame []byte
			err   error
		)
		if sw.deleted {
			frame, err = tx.core.encodeTombstone(sw.key)
		} else {
			frame, err = tx.core.encodeFrame(sw.key, sw.value)
		}
		if err != nil {
			return fmt.Errorf("box: encode staged frame for key %s: %w", sw.key, err)
		}
		frames[i] = frame
	}

	offsets, err := tx.core.backend.WriteFrames(frames)
	if err != nil {
		return fmt.Errorf("box: commit %d staged frames: %w", len(frames), err)
	}

	for i, sw := range tx.pending {
		if sw.deleted {
			tx.core.keystore.Delete(sw.key)
			tx.core.notifier.Publish(notify.Event{Key: sw.key, Deleted: true})
			continue
		}
		tx.core.keystore.Put(sw.key, &keystore.Entry{
			Value:  tx.core.cachedValue(sw.value),
			Offset: offsets[i],
			Length: uint32(len(frames[i])),
		})
		tx.core.notifier.Publish(notify.Event{Key: sw.key, Value: sw.value})
	}
	tx.core.maybeCompact()
	return nil
}

// Rollback discards every staged write and releases the box's mutex without
// touching the backend, keystore, or notifier. It always returns nil.
func (tx *Tx) Rollback() error {
	tx.finish()
	return nil
}

func (tx *Tx) finish() {
	if tx.done {
		return
	}
	tx.done = true
	tx.core.mu.Unlock()
}
