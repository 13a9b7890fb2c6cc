package format

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jassi-singh/hivebox/internal/hiveerr"
)

// Reader views a caller-supplied byte slice through an advancing cursor. It
// mirrors Writer operation-for-operation.
type Reader struct {
	data     []byte
	off      int
	registry AdapterLookup
}

// NewReader returns a Reader over data, dispatching tag >= 32 values through
// registry. registry may be nil if the caller never reads user-defined values.
func NewReader(data []byte, registry AdapterLookup) *Reader {
	return &Reader{data: data, registry: registry}
}

// Offset returns the reader's current cursor position within data.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return fmt.Errorf("format: need %d bytes, have %d: %w", n, r.Remaining(), hiveerr.ErrCorruptFrame)
	}
	return nil
}

func (r *Reader) Byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *Reader) Word() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) Double() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return math.Float64frombits(bits), nil
}

// ReadInt reads a double and truncates it to int64, the historical
// space/time tradeoff the on-disk format inherits (see SPEC_FULL.md §9).
func (r *Reader) ReadInt() (int64, error) {
	v, err := r.Double()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *Reader) String() (string, error) {
	n, err := r.Word()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func (r *Reader) ASCIIString() (string, error) { return r.String() }

func (r *Reader) ByteList() ([]byte, error) {
	n, err := r.Word()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, r.data[r.off:r.off+int(n)])
	r.off += int(n)
	return v, nil
}

func (r *Reader) IntList() ([]int64, error) {
	n, err := r.Word()
	if err != nil {
		return nil, err
	}
	v := make([]int64, n)
	for i := range v {
		if v[i], err = r.ReadInt(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (r *Reader) DoubleList() ([]float64, error) {
	n, err := r.Word()
	if err != nil {
		return nil, err
	}
	v := make([]float64, n)
	for i := range v {
		if v[i], err = r.Double(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (r *Reader) BoolList() ([]bool, error) {
	n, err := r.Word()
	if err != nil {
		return nil, err
	}
	v := make([]bool, n)
	for i := range v {
		if v[i], err = r.Bool(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (r *Reader) StringList() ([]string, error) {
	n, err := r.Word()
	if err != nil {
		return nil, err
	}
	v := make([]string, n)
	for i := range v {
		if v[i], err = r.String(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// List reads a heterogeneous list previously written by Writer.List.
func (r *Reader) List() ([]any, error) {
	n, err := r.Word()
	if err != nil {
		return nil, err
	}
	v := make([]any, n)
	for i := range v {
		if v[i], err = r.Read(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Map reads a string-keyed heterogeneous map previously written by Writer.Map.
func (r *Reader) Map() (map[string]any, error) {
	n, err := r.Word()
	if err != nil {
		return nil, err
	}
	v := make(map[string]any, n)
	for i := uint16(0); i < n; i++ {
		k, err := r.String()
		if err != nil {
			return nil, err
		}
		val, err := r.Read()
		if err != nil {
			return nil, err
		}
		v[k] = val
	}
	return v, nil
}

// Read reads one tagged value, consuming the tag byte from the stream unless
// the caller names a typeID explicitly (for callers that have already read
// the tag themselves; the frame decoder does not, it calls Read()).
func (r *Reader) Read(typeID ...uint8) (any, error) {
	var tag uint8
	if len(typeID) > 0 {
		tag = typeID[0]
	} else {
		b, err := r.Byte()
		if err != nil {
			return nil, err
		}
		tag = b
	}

	switch tag {
	case TagNull:
		return nil, nil
	case TagInt:
		return r.ReadInt()
	case TagDouble:
		return r.Double()
	case TagBool:
		return r.Bool()
	case TagString:
		return r.String()
	case TagByteList:
		return r.ByteList()
	case TagIntList:
		return r.IntList()
	case TagDoubleList:
		return r.DoubleList()
	case TagBoolList:
		return r.BoolList()
	case TagStringList:
		return r.StringList()
	case TagList:
		return r.List()
	case TagMap:
		return r.Map()
	default:
		if tag < UserTypeBase {
			return nil, fmt.Errorf("format: reserved tag %d: %w", tag, hiveerr.ErrUnknownType)
		}
		externalID := tag - UserTypeBase
		if r.registry == nil {
			return nil, fmt.Errorf("format: type %d: %w", externalID, hiveerr.ErrUnknownType)
		}
		adapter, ok := r.registry.Find(externalID)
		if !ok {
			return nil, fmt.Errorf("format: type %d: %w", externalID, hiveerr.ErrUnknownType)
		}
		return adapter.Read(r)
	}
}
