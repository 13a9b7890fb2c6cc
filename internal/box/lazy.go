package box

import (
	"fmt"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/jassi-singh/hivebox/internal/hiveerr"
	"github.com/jassi-singh/hivebox/internal/keystore"
	"github.com/jassi-singh/hivebox/internal/notify"
)

// lazyBox keeps only (offset, length) per key; every Get/GetAt re-reads and
// decodes the value from the backend.
type lazyBox struct{ *core }

func (b *lazyBox) readValue(key format.Key, entry *keystore.Entry) (any, error) {
	raw, err := b.backend.ReadValue(entry.Offset, entry.Length)
	if err != nil {
		return nil, fmt.Errorf("box: read value for key %s: %w", key, err)
	}
	frame, err := format.Decode(raw, b.registry, b.enc, false)
	if err != nil {
		return nil, fmt.Errorf("box: decode value for key %s: %w", key, err)
	}
	return frame.Value, nil
}

func (b *lazyBox) Get(key format.Key, def any) any {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.keystore.Get(key)
	if !ok {
		return def
	}
	value, err := b.readValue(key, entry)
	if err != nil {
		return def
	}
	return value
}

func (b *lazyBox) GetAt(index int, def any) any {
	b.mu.Lock()
	defer b.mu.Unlock()

	key, entry, ok := b.keystore.GetAt(index)
	if !ok {
		return def
	}
	value, err := b.readValue(key, entry)
	if err != nil {
		return def
	}
	return value
}

func (b *lazyBox) Put(key format.Key, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.put(key, value)
}

func (b *lazyBox) PutAll(pairs []KV) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putAll(pairs)
}

func (b *lazyBox) Delete(key format.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delete(key)
}

func (b *lazyBox) DeleteAll(keys []format.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteAll(keys)
}

func (b *lazyBox) Clear() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clear()
}

func (b *lazyBox) Compact() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compact(b.readValue)
}

// Values is unsupported on a lazy box: every value lives only on disk, so a
// full snapshot would mean re-reading and decoding the entire log.
func (b *lazyBox) Values() ([]any, error) {
	return nil, fmt.Errorf("box %q: %w", b.name, hiveerr.ErrUnsupportedOperation)
}

// ToMap is unsupported on a lazy box for the same reason as Values.
func (b *lazyBox) ToMap() (map[string]any, error) {
	return nil, fmt.Errorf("box %q: %w", b.name, hiveerr.ErrUnsupportedOperation)
}

func (b *lazyBox) Watch(key *format.Key) (<-chan notify.Event, error) {
	return b.watch(key)
}

func (b *lazyBox) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.close()
}

func (b *lazyBox) DeleteFromDisk() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteFromDisk()
}
