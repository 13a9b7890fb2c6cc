package format

import (
	"fmt"

	"github.com/jassi-singh/hivebox/internal/hiveerr"
	"github.com/jassi-singh/hivebox/internal/xcrc"
)

// Encryptor is the subset of crypto.Cipher the frame codec needs. Kept here
// (instead of importing internal/crypto) so format has no dependency on the
// crypto package; internal/crypto's Cipher satisfies this implicitly.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
	KeyCRC() uint32
}

// Frame is a single self-describing on-disk record: a key, an optional
// value (absent means tombstone), and its on-disk position once written.
type Frame struct {
	Key       Key
	Value     any
	Tombstone bool

	// Offset and Length are populated by the storage backend once the frame
	// is written (or by a scan on open); they carry no meaning before then.
	Offset int64
	Length uint32
}

// NewTombstone builds a deletion marker for key.
func NewTombstone(key Key) *Frame {
	return &Frame{Key: key, Tombstone: true}
}

// Encode serializes f to its on-disk byte representation, per SPEC_FULL.md
// §4.C. When enc is non-nil the value block is AES-encrypted and the frame's
// CRC is seeded with enc.KeyCRC() instead of 0.
func Encode(f *Frame, registry AdapterLookup, enc Encryptor) ([]byte, error) {
	w := NewWriter(registry)
	w.Uint32(0) // length placeholder, patched below

	if err := f.Key.encode(w); err != nil {
		return nil, err
	}

	if !f.Tombstone {
		if enc != nil {
			valueWriter := NewWriter(registry)
			if err := valueWriter.Write(f.Value); err != nil {
				return nil, fmt.Errorf("format: encode value: %w", err)
			}
			ciphertext, err := enc.Encrypt(valueWriter.Bytes())
			if err != nil {
				return nil, fmt.Errorf("format: encrypt value: %w", err)
			}
			w.RawBytes(ciphertext)
		} else if err := w.Write(f.Value); err != nil {
			return nil, fmt.Errorf("format: encode value: %w", err)
		}
	}

	w.Uint32(0) // crc placeholder, patched below

	buf := append([]byte(nil), w.Bytes()...)
	length := uint32(len(buf))
	xcrc.PutUint32LE(buf[0:4], length)

	seed := uint32(0)
	if enc != nil {
		seed = enc.KeyCRC()
	}
	crc := xcrc.Checksum(seed, buf[:length-4])
	xcrc.PutUint32LE(buf[length-4:length], crc)

	return buf, nil
}

// Decode parses one frame out of data (data may hold trailing bytes past the
// frame; only data[:length] is consulted). When lazy is true the value is
// not decoded — the returned Frame carries only Key/Offset/Length, matching
// ScanLazy's contract.
func Decode(data []byte, registry AdapterLookup, enc Encryptor, lazy bool) (*Frame, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("format: frame shorter than header: %w", hiveerr.ErrCorruptFrame)
	}
	length := xcrc.Uint32LE(data[0:4])
	if length < 8 || uint32(len(data)) < length {
		return nil, fmt.Errorf("format: truncated frame (want %d, have %d): %w", length, len(data), hiveerr.ErrCorruptFrame)
	}
	body := data[:length]

	seed := uint32(0)
	if enc != nil {
		seed = enc.KeyCRC()
	}
	wantCRC := xcrc.Uint32LE(body[length-4 : length])
	gotCRC := xcrc.Checksum(seed, body[:length-4])
	if gotCRC != wantCRC {
		return nil, fmt.Errorf("format: crc mismatch (want %#x, got %#x): %w", wantCRC, gotCRC, hiveerr.ErrCorruptFrame)
	}

	r := NewReader(body[4:length-4], registry)
	key, err := decodeKey(r)
	if err != nil {
		return nil, fmt.Errorf("format: decode key: %w", err)
	}

	f := &Frame{Key: key, Length: length}

	if r.Remaining() == 0 {
		f.Tombstone = true
		return f, nil
	}
	if lazy {
		return f, nil
	}

	if enc != nil {
		ciphertext := r.data[r.off:]
		plaintext, err := enc.Decrypt(ciphertext)
		if err != nil {
			return nil, fmt.Errorf("format: decrypt value: %w", err)
		}
		valueReader := NewReader(plaintext, registry)
		v, err := valueReader.Read()
		if err != nil {
			return nil, fmt.Errorf("format: decode value: %w", err)
		}
		f.Value = v
		return f, nil
	}

	v, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("format: decode value: %w", err)
	}
	f.Value = v
	return f, nil
}
