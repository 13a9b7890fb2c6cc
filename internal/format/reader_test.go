package format

import "testing"

func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter(nil)
	w.Byte(7)
	w.Word(1000)
	w.Int32(-5)
	w.Uint32(4000000000)
	w.Double(3.5)
	w.Bool(true)
	w.String("hello")
	w.ASCIIString("world")

	r := NewReader(w.Bytes(), nil)

	if b, err := r.Byte(); err != nil || b != 7 {
		t.Fatalf("Byte = %d, %v, want 7, nil", b, err)
	}
	if v, err := r.Word(); err != nil || v != 1000 {
		t.Fatalf("Word = %d, %v, want 1000, nil", v, err)
	}
	if v, err := r.Int32(); err != nil || v != -5 {
		t.Fatalf("Int32 = %d, %v, want -5, nil", v, err)
	}
	if v, err := r.Uint32(); err != nil || v != 4000000000 {
		t.Fatalf("Uint32 = %d, %v, want 4000000000, nil", v, err)
	}
	if v, err := r.Double(); err != nil || v != 3.5 {
		t.Fatalf("Double = %v, %v, want 3.5, nil", v, err)
	}
	if v, err := r.Bool(); err != nil || !v {
		t.Fatalf("Bool = %v, %v, want true, nil", v, err)
	}
	if v, err := r.String(); err != nil || v != "hello" {
		t.Fatalf("String = %q, %v, want hello, nil", v, err)
	}
	if v, err := r.ASCIIString(); err != nil || v != "world" {
		t.Fatalf("ASCIIString = %q, %v, want world, nil", v, err)
	}
}

func TestShortReadIsCorruptFrame(t *testing.T) {
	r := NewReader([]byte{1, 2}, nil)
	if _, err := r.Uint32(); err == nil {
		t.Fatalf("expected error reading uint32 from 2 bytes")
	}
}

func TestIntRoundTripsThroughDouble(t *testing.T) {
	w := NewWriter(nil)
	w.Int(-12345)
	r := NewReader(w.Bytes(), nil)
	v, err := r.ReadInt()
	if err != nil {
		t.Fatalf("ReadInt: %v", err)
	}
	if v != -12345 {
		t.Fatalf("ReadInt = %d, want -12345", v)
	}
}

func TestListAndMapRoundTrip(t *testing.T) {
	w := NewWriter(nil)
	if err := w.List([]any{int64(1), "two", true, nil}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := w.Map(map[string]any{"x": int64(9)}); err != nil {
		t.Fatalf("Map: %v", err)
	}

	r := NewReader(w.Bytes(), nil)
	list, err := r.List()
	if err != nil {
		t.Fatalf("List decode: %v", err)
	}
	if len(list) != 4 || list[0] != int64(1) || list[1] != "two" || list[2] != true || list[3] != nil {
		t.Fatalf("List decode = %#v", list)
	}

	m, err := r.Map()
	if err != nil {
		t.Fatalf("Map decode: %v", err)
	}
	if m["x"] != int64(9) {
		t.Fatalf("Map decode = %#v", m)
	}
}

func TestReadUnknownTypeWithoutRegistry(t *testing.T) {
	r := NewReader([]byte{40}, nil)
	if _, err := r.Read(); err == nil {
		t.Fatalf("expected ErrUnknownType for tag 40 with nil registry")
	}
}
