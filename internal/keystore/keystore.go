// Package keystore presents the storage backend's append-only log as an
// ordered in-memory map, per SPEC_FULL.md §3/§4.F. It wraps
// internal/skiplist with the frame key type and the per-entry metadata
// (cached value, on-disk offset/length) a box needs for eager and lazy
// reads.
package keystore

import (
	"math/rand"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/jassi-singh/hivebox/internal/skiplist"
)

// Entry is the in-memory metadata kept per live key. Value is populated for
// eager boxes and left nil for lazy ones, which re-read Offset/Length from
// the backend on every Get.
type Entry struct {
	Value  any
	Offset int64
	Length uint32
}

// Keystore is the ordered index from format.Key to *Entry, plus the
// bookkeeping the box state machine needs: a running tombstone count (for
// the compaction strategy) and an auto-incrementing integer key generator.
type Keystore struct {
	list          *skiplist.SkipList[format.Key, *Entry]
	deletedFrames int
	nextAutoKey   uint32
}

func compareKeys(a, b format.Key) int { return a.Compare(b) }

// New returns an empty keystore. rng seeds the underlying skip list's level
// coin; pass a deterministic source in tests, nil in production.
func New(rng *rand.Rand) *Keystore {
	return &Keystore{
		list: skiplist.New[format.Key, *Entry](compareKeys, true, rng),
	}
}

// Len returns the number of live keys.
func (k *Keystore) Len() int { return k.list.Len() }

// DeletedFrames returns the number of tombstone frames observed since the
// last compaction (or open, if none has run).
func (k *Keystore) DeletedFrames() int { return k.deletedFrames }

// Get returns the entry for key, if present.
func (k *Keystore) Get(key format.Key) (*Entry, bool) { return k.list.Get(key) }

// GetAt returns the 0-indexed index-th (key, entry) in comparator order.
func (k *Keystore) GetAt(index int) (format.Key, *Entry, bool) { return k.list.GetAt(index) }

// Contains reports whether key is live.
func (k *Keystore) Contains(key format.Key) bool { return k.list.Contains(key) }

// Put inserts or overwrites key's entry.
func (k *Keystore) Put(key format.Key, entry *Entry) { k.list.Insert(key, entry) }

// Delete removes key from the live index, as applied when a box writes a
// tombstone frame for a key it already holds. Returns whether key was
// present.
func (k *Keystore) Delete(key format.Key) bool {
	ok := k.list.Delete(key)
	if ok {
		k.deletedFrames++
	}
	return ok
}

// ApplyTombstone mirrors Delete but is used by the recovery scanner
// (internal/scanio), which counts every on-disk tombstone frame toward the
// deleted counter even if the key had already been removed earlier in the
// same scan (e.g. two tombstones for the same key).
func (k *Keystore) ApplyTombstone(key format.Key) {
	k.list.Delete(key)
	k.deletedFrames++
}

// Range calls fn for every live (key, entry) in ascending comparator order.
func (k *Keystore) Range(fn func(key format.Key, entry *Entry) bool) { k.list.Range(fn) }

// NextAutoKey returns the next unused auto-generated integer key and
// advances the generator. Callers (Box.putAuto-style helpers) still have to
// check the key isn't already taken by an explicitly-inserted integer key.
func (k *Keystore) NextAutoKey() uint32 {
	key := k.nextAutoKey
	k.nextAutoKey++
	return key
}

// ResetDeletedFrames clears the tombstone counter, called after a
// compaction that physically removed every on-disk tombstone.
func (k *Keystore) ResetDeletedFrames() { k.deletedFrames = 0 }
