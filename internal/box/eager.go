package box

import (
	"github.com/jassi-singh/hivebox/internal/keystore"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/jassi-singh/hivebox/internal/notify"
)

// eagerBox caches every key's decoded value in its keystore entry; Get and
// GetAt never touch the backend.
type eagerBox struct{ *core }

func (b *eagerBox) readValue(_ format.Key, entry *keystore.Entry) (any, error) {
	return entry.Value, nil
}

func (b *eagerBox) Get(key format.Key, def any) any {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.keystore.Get(key)
	if !ok {
		return def
	}
	return entry.Value
}

func (b *eagerBox) GetAt(index int, def any) any {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, entry, ok := b.keystore.GetAt(index)
	if !ok {
		return def
	}
	return entry.Value
}

func (b *eagerBox) Put(key format.Key, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.put(key, value)
}

func (b *eagerBox) PutAll(pairs []KV) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putAll(pairs)
}

func (b *eagerBox) Delete(key format.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delete(key)
}

func (b *eagerBox) DeleteAll(keys []format.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteAll(keys)
}

func (b *eagerBox) Clear() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clear()
}

func (b *eagerBox) Compact() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compact(b.readValue)
}

func (b *eagerBox) Values() ([]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.core.values()
}

func (b *eagerBox) ToMap() (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.core.toMap()
}

func (b *eagerBox) Watch(key *format.Key) (<-chan notify.Event, error) {
	return b.watch(key)
}

func (b *eagerBox) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.close()
}

func (b *eagerBox) DeleteFromDisk() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteFromDisk()
}
