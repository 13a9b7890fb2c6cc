package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jassi-singh/hivebox/internal/hiveerr"
)

// Writer appends a typed binary stream to an expandable buffer. It mirrors
// Reader operation-for-operation so that Reader(Writer(v)) round-trips.
type Writer struct {
	buf      bytes.Buffer
	registry AdapterLookup
}

// NewWriter returns a Writer that dispatches tag >= 32 values through registry.
// registry may be nil if the caller never writes user-defined values.
func NewWriter(registry AdapterLookup) *Writer {
	return &Writer{registry: registry}
}

// Bytes returns the accumulated buffer. The slice is owned by the Writer;
// callers must copy it before reusing the Writer.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

func (w *Writer) Byte(b byte) { w.buf.WriteByte(b) }

// RawBytes appends b verbatim, used by the frame codec to splice in
// already-encrypted ciphertext in place of a plaintext value.
func (w *Writer) RawBytes(b []byte) { w.buf.Write(b) }

func (w *Writer) Word(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Double(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf.Write(b[:])
}

// Int writes an integer through the double round-trip the on-disk format
// historically uses (see "Integer as double" in SPEC_FULL.md §9).
func (w *Writer) Int(v int64) { w.Double(float64(v)) }

func (w *Writer) Bool(v bool) {
	if v {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

// String writes a u16-LE length prefix followed by UTF-8 bytes.
func (w *Writer) String(s string) {
	w.Word(uint16(len(s)))
	w.buf.WriteString(s)
}

// ASCIIString writes a u16-LE length prefix followed by raw ASCII bytes.
func (w *Writer) ASCIIString(s string) {
	w.Word(uint16(len(s)))
	w.buf.WriteString(s)
}

func (w *Writer) ByteList(v []byte) {
	w.Word(uint16(len(v)))
	w.buf.Write(v)
}

func (w *Writer) IntList(v []int64) {
	w.Word(uint16(len(v)))
	for _, e := range v {
		w.Int(e)
	}
}

func (w *Writer) DoubleList(v []float64) {
	w.Word(uint16(len(v)))
	for _, e := range v {
		w.Double(e)
	}
}

func (w *Writer) BoolList(v []bool) {
	w.Word(uint16(len(v)))
	for _, e := range v {
		w.Bool(e)
	}
}

func (w *Writer) StringList(v []string) {
	w.Word(uint16(len(v)))
	for _, e := range v {
		w.String(e)
	}
}

// List writes a heterogeneous list, tagging and dispatching each element
// through Write.
func (w *Writer) List(v []any) error {
	w.Word(uint16(len(v)))
	for _, e := range v {
		if err := w.Write(e); err != nil {
			return err
		}
	}
	return nil
}

// Map writes a string-keyed heterogeneous map, tagging and dispatching each
// value through Write.
func (w *Writer) Map(v map[string]any) error {
	w.Word(uint16(len(v)))
	for k, val := range v {
		w.String(k)
		if err := w.Write(val); err != nil {
			return err
		}
	}
	return nil
}

// Write tags v by its runtime type and dispatches to the matching codec. User
// types not matching a built-in kind are looked up by value in the registry;
// ErrUnknownType is returned when no adapter claims the value.
func (w *Writer) Write(v any) error {
	switch val := v.(type) {
	case nil:
		w.Byte(TagNull)
	case int:
		w.Byte(TagInt)
		w.Int(int64(val))
	case int32:
		w.Byte(TagInt)
		w.Int(int64(val))
	case int64:
		w.Byte(TagInt)
		w.Int(val)
	case uint32:
		w.Byte(TagInt)
		w.Int(int64(val))
	case float64:
		w.Byte(TagDouble)
		w.Double(val)
	case bool:
		w.Byte(TagBool)
		w.Bool(val)
	case string:
		w.Byte(TagString)
		w.String(val)
	case []byte:
		w.Byte(TagByteList)
		w.ByteList(val)
	case []int64:
		w.Byte(TagIntList)
		w.IntList(val)
	case []float64:
		w.Byte(TagDoubleList)
		w.DoubleList(val)
	case []bool:
		w.Byte(TagBoolList)
		w.BoolList(val)
	case []string:
		w.Byte(TagStringList)
		w.StringList(val)
	case []any:
		w.Byte(TagList)
		return w.List(val)
	case map[string]any:
		w.Byte(TagMap)
		return w.Map(val)
	default:
		if w.registry == nil {
			return fmt.Errorf("format: write value of type %T: %w", v, hiveerr.ErrUnknownType)
		}
		adapter, typeID, ok := w.registry.FindByValue(v)
		if !ok {
			return fmt.Errorf("format: write value of type %T: %w", v, hiveerr.ErrUnknownType)
		}
		w.Byte(UserTypeBase + typeID)
		return adapter.Write(w, v)
	}
	return nil
}
