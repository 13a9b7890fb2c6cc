// Package box implements the user-facing key-value container described in
// SPEC_FULL.md §4.I: eager and lazy variants sharing a core, plus a
// transactional decorator. It generalizes the teacher's KVEngine
// (internal/engine/engine.go) — Get/Put/Delete/Close plus a startup
// recovery scan — into an interface with write-through semantics, batched
// mutations, change notification, and compaction.
package box

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jassi-singh/hivebox/internal/config"
	"github.com/jassi-singh/hivebox/internal/crypto"
	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/jassi-singh/hivebox/internal/hiveerr"
	"github.com/jassi-singh/hivebox/internal/keystore"
	"github.com/jassi-singh/hivebox/internal/notify"
	"github.com/jassi-singh/hivebox/internal/scanio"
	"github.com/jassi-singh/hivebox/internal/storage"
)

// KV is one entry of an ordered batch passed to PutAll — a plain slice
// rather than a Go map, since maps have no iteration order and SPEC_FULL.md
// requires PutAll's change events to follow the caller's given order.
type KV struct {
	Key   format.Key
	Value any
}

// Options configures a box at Open time.
type Options struct {
	// Lazy boxes keep only (offset, length) per key and re-read values from
	// disk on every Get; eager boxes cache the decoded value in memory.
	Lazy bool

	// CompactionStrategy is consulted after every successful mutation with
	// the number of live keys plus the tombstone frames counted since the
	// last compaction (or open), and that tombstone count. Overwritten
	// (shadowed) frames are not counted. A nil strategy never triggers
	// automatic compaction.
	CompactionStrategy func(totalFrames, deletedFrames int) bool

	// CrashRecovery, when true, truncates the log to the last valid frame
	// on a corrupt/truncated tail instead of failing Open with
	// ErrCorruptBox.
	CrashRecovery bool

	// EncryptionKey, when non-empty, AES-256-CBC-encrypts every value and
	// seeds frame CRCs with the key's own CRC. It must be 32 bytes; any
	// other non-empty length makes Open fail.
	EncryptionKey []byte
}

// DefaultCompactionStrategy returns a strategy that triggers once the
// fraction of deleted frames reaches ratio, matching the
// COMPACTION_DELETED_RATIO config knob.
func DefaultCompactionStrategy(ratio float64) func(totalFrames, deletedFrames int) bool {
	return func(totalFrames, deletedFrames int) bool {
		if totalFrames == 0 {
			return false
		}
		return float64(deletedFrames)/float64(totalFrames) >= ratio
	}
}

// Box is the operation set every box variant (eager, lazy, transactional)
// implements.
type Box interface {
	Get(key format.Key, def any) any
	GetAt(index int, def any) any
	Put(key format.Key, value any) error
	PutAll(pairs []KV) error
	Delete(key format.Key) error
	DeleteAll(keys []format.Key) error
	Clear() (int, error)
	Compact() error
	// Values and ToMap snapshot every live value in the box. Lazy boxes
	// reject both with ErrUnsupportedOperation rather than re-reading the
	// entire log from disk on every call.
	Values() ([]any, error)
	ToMap() (map[string]any, error)
	Watch(key *format.Key) (<-chan notify.Event, error)
	Close() error
	DeleteFromDisk() error
}

// core holds the state and mutation logic shared by the eager and lazy
// variants. Its exported-looking methods are not exported themselves;
// eagerBox/lazyBox expose the Box interface and differ only in how they
// read a value back (cached vs. re-read from disk).
type core struct {
	name     string
	backend  *storage.Backend
	keystore *keystore.Keystore
	notifier *notify.Notifier
	registry format.AdapterLookup
	enc      format.Encryptor

	opts Options

	// readValue recovers a key's current value for compaction: eagerBox
	// reads it straight from the cache, lazyBox re-reads and decodes it
	// from the backend. Set once by Open, just after construction.
	readValue func(key format.Key, entry *keystore.Entry) (any, error)

	// closed guards against operations after Close; mu is the per-box
	// mutex serializing every mutation and the compaction it may trigger,
	// per SPEC_FULL.md §5.
	mu     sync.Mutex
	closed bool
}

// Open initializes a box named name under cfg.DATA_DIR: acquires the
// backend's lock, replays its log into a fresh keystore (eager or lazy per
// opts.Lazy), and returns the Box implementation matching that mode.
func Open(cfg *config.Config, registry format.AdapterLookup, name string, opts Options) (Box, error) {
	backend, err := storage.Open(cfg, name)
	if err != nil {
		return nil, err
	}

	var enc format.Encryptor
	if len(opts.EncryptionKey) > 0 {
		cipher, err := crypto.New(opts.EncryptionKey)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("box: init encryption: %w", err)
		}
		enc = cipher
	}

	ks := keystore.New(nil)
	reader, err := backend.Reader()
	if err != nil {
		backend.Close()
		return nil, err
	}

	var recovery int64
	if opts.Lazy {
		recovery, err = scanio.ScanLazy(reader, registry, enc, ks)
	} else {
		recovery, err = scanio.ScanEager(reader, registry, enc, ks)
	}
	reader.Close()
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("box: scan log: %w", err)
	}

	if recovery != -1 {
		if !opts.CrashRecovery {
			backend.Close()
			return nil, fmt.Errorf("box %q: corrupt tail at offset %d: %w", name, recovery, hiveerr.ErrCorruptBox)
		}
		slog.Warn("box: truncating to last valid frame", "box", name, "offset", recovery)
		if err := backend.TruncateTo(recovery); err != nil {
			backend.Close()
			return nil, fmt.Errorf("box: truncate corrupt tail: %w", err)
		}
	}

	c := &core{
		name:     name,
		backend:  backend,
		keystore: ks,
		notifier: notify.New(),
		registry: registry,
		enc:      enc,
		opts:     opts,
	}

	slog.Info("box: opened", "box", name, "keys", ks.Len(), "lazy", opts.Lazy)

	if opts.Lazy {
		lb := &lazyBox{core: c}
		c.readValue = lb.readValue
		return lb, nil
	}
	eb := &eagerBox{core: c}
	c.readValue = eb.readValue
	return eb, nil
}

func (c *core) encodeFrame(key format.Key, value any) ([]byte, error) {
	return format.Encode(&format.Frame{Key: key, Value: value}, c.registry, c.enc)
}

func (c *core) encodeTombstone(key format.Key) ([]byte, error) {
	return format.Encode(format.NewTombstone(key), c.registry, c.enc)
}

// put is the shared Put implementation: write-through then keystore update.
func (c *core) put(key format.Key, value any) error {
	if c.closed {
		return fmt.Errorf("box %q: %w", c.name, hiveerr.ErrBoxClosed)
	}

	frame, err := c.encodeFrame(key, value)
	if err != nil {
		return fmt.Errorf("box: encode frame for key %s: %w", key, err)
	}

	offsets, err := c.backend.WriteFrames([][]byte{frame})
	if err != nil {
		return fmt.Errorf("box: write frame for key %s: %w", key, err)
	}

	c.keystore.Put(key, &keystore.Entry{Value: c.cachedValue(value), Offset: offsets[0], Length: uint32(len(frame))})
	c.notifier.Publish(notify.Event{Key: key, Value: value})
	c.maybeCompact()
	return nil
}

// cachedValue returns value for an eager box (Lazy == false) or nil for a
// lazy one, which re-reads values from disk on every Get instead of holding
// them in memory.
func (c *core) cachedValue(value any) any {
	if c.opts.Lazy {
		return nil
	}
	return value
}

// putAll batches every pair into a single backend write, then applies
// keystore updates and notifications in the caller's given order.
func (c *core) putAll(pairs []KV) error {
	if c.closed {
		return fmt.Errorf("box %q: %w", c.name, hiveerr.ErrBoxClosed)
	}
	if len(pairs) == 0 {
		return nil
	}

	frames := make([][]byte, len(pairs))
	for i, kv := range pairs {
		frame, err := c.encodeFrame(kv.Key, kv.Value)
		if err != nil {
			return fmt.Errorf("box: encode frame for key %s: %w", kv.Key, err)
		}
		frames[i] = frame
	}

	offsets, err := c.backend.WriteFrames(frames)
	if err != nil {
		return fmt.Errorf("box: write %d frames: %w", len(frames), err)
	}

	for i, kv := range pairs {
		c.keystore.Put(kv.Key, &keystore.Entry{Value: c.cachedValue(kv.Value), Offset: offsets[i], Length: uint32(len(frames[i]))})
		c.notifier.Publish(notify.Event{Key: kv.Key, Value: kv.Value})
	}
	c.maybeCompact()
	return nil
}

// delete tombstones key only if it is currently present — an unknown key is
// a no-op, per SPEC_FULL.md §9.
func (c *core) delete(key format.Key) error {
	if c.closed {
		return fmt.Errorf("box %q: %w", c.name, hiveerr.ErrBoxClosed)
	}
	if !c.keystore.Contains(key) {
		return nil
	}

	frame, err := c.encodeTombstone(key)
	if err != nil {
		return fmt.Errorf("box: encode tombstone for key %s: %w", key, err)
	}
	if _, err := c.backend.WriteFrames([][]byte{frame}); err != nil {
		return fmt.Errorf("box: write tombstone for key %s: %w", key, err)
	}

	c.keystore.Delete(key)
	c.notifier.Publish(notify.Event{Key: key, Deleted: true})
	c.maybeCompact()
	return nil
}

// deleteAll tombstones only the keys that are present, in the caller's
// given order, as a single batched write.
func (c *core) deleteAll(keys []format.Key) error {
	if c.closed {
		return fmt.Errorf("box %q: %w", c.name, hiveerr.ErrBoxClosed)
	}

	present := make([]format.Key, 0, len(keys))
	for _, k := range keys {
		if c.keystore.Contains(k) {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		return nil
	}

	frames := make([][]byte, len(present))
	for i, k := range present {
		frame, err := c.encodeTombstone(k)
		if err != nil {
			return fmt.Errorf("box: encode tombstone for key %s: %w", k, err)
		}
		frames[i] = frame
	}
	if _, err := c.backend.WriteFrames(frames); err != nil {
		return fmt.Errorf("box: write %d tombstones: %w", len(frames), err)
	}

	for _, k := range present {
		c.keystore.Delete(k)
		c.notifier.Publish(notify.Event{Key: k, Deleted: true})
	}
	c.maybeCompact()
	return nil
}

// clear truncates the log and empties the keystore, publishing a deleted
// event for every key that was live beforehand.
func (c *core) clear() (int, error) {
	if c.closed {
		return 0, fmt.Errorf("box %q: %w", c.name, hiveerr.ErrBoxClosed)
	}

	var removed []format.Key
	c.keystore.Range(func(key format.Key, _ *keystore.Entry) bool {
		removed = append(removed, key)
		return true
	})

	if err := c.backend.Clear(); err != nil {
		return 0, fmt.Errorf("box: clear log: %w", err)
	}
	c.keystore = keystore.New(nil)

	for _, k := range removed {
		c.notifier.Publish(notify.Event{Key: k, Deleted: true})
	}
	return len(removed), nil
}

// compact asks the backend to rewrite the log with only the current live
// frames, then updates each surviving key's offset/length.
func (c *core) compact(readValue func(key format.Key, entry *keystore.Entry) (any, error)) error {
	if c.closed {
		return fmt.Errorf("box %q: %w", c.name, hiveerr.ErrBoxClosed)
	}

	type liveKey struct {
		key   format.Key
		entry *keystore.Entry
	}
	var live []liveKey
	c.keystore.Range(func(key format.Key, entry *keystore.Entry) bool {
		live = append(live, liveKey{key, entry})
		return true
	})

	frames := make([][]byte, len(live))
	for i, lk := range live {
		value, err := readValue(lk.key, lk.entry)
		if err != nil {
			return fmt.Errorf("box: read value for key %s before compaction: %w", lk.key, err)
		}
		frame, err := c.encodeFrame(lk.key, value)
		if err != nil {
			return fmt.Errorf("box: encode frame for key %s during compaction: %w", lk.key, err)
		}
		frames[i] = frame
		lk.entry.Value = c.cachedValue(value)
	}

	offsets, err := c.backend.Compact(frames)
	if err != nil {
		return fmt.Errorf("box: compact: %w", err)
	}

	for i, lk := range live {
		lk.entry.Offset = offsets[i]
		lk.entry.Length = uint32(len(frames[i]))
	}
	c.keystore.ResetDeletedFrames()
	return nil
}

// maybeCompact consults the configured CompactionStrategy and runs a
// compaction inline if it fires. It is called with c.mu already held by the
// triggering mutation, so it calls c.compact directly rather than going
// through the public, lock-taking Compact method.
func (c *core) maybeCompact() {
	if c.opts.CompactionStrategy == nil {
		return
	}
	total := c.keystore.Len() + c.keystore.DeletedFrames()
	if !c.opts.CompactionStrategy(total, c.keystore.DeletedFrames()) {
		return
	}
	slog.Info("box: compaction strategy triggered", "box", c.name, "total_frames", total, "deleted_frames", c.keystore.DeletedFrames())
	if err := c.compact(c.readValue); err != nil {
		slog.Error("box: automatic compaction failed", "box", c.name, "error", err)
	}
}

// values snapshots every live value in keystore order. Only meaningful for
// an eager box, whose entries already hold decoded values.
func (c *core) values() ([]any, error) {
	if c.closed {
		return nil, fmt.Errorf("box %q: %w", c.name, hiveerr.ErrBoxClosed)
	}
	out := make([]any, 0, c.keystore.Len())
	c.keystore.Range(func(_ format.Key, entry *keystore.Entry) bool {
		out = append(out, entry.Value)
		return true
	})
	return out, nil
}

// toMap snapshots every live key/value pair keyed by the key's string form.
func (c *core) toMap() (map[string]any, error) {
	if c.closed {
		return nil, fmt.Errorf("box %q: %w", c.name, hiveerr.ErrBoxClosed)
	}
	out := make(map[string]any, c.keystore.Len())
	c.keystore.Range(func(key format.Key, entry *keystore.Entry) bool {
		out[key.String()] = entry.Value
		return true
	})
	return out, nil
}

func (c *core) watch(key *format.Key) (<-chan notify.Event, error) {
	return c.notifier.Watch(key)
}

func (c *core) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.notifier.Close()
	return c.backend.Close()
}

func (c *core) deleteFromDisk() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.notifier.Close()
	return c.backend.DeleteFromDisk()
}
