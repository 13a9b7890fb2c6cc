package format

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		f    *Frame
	}{
		{"uint key, string value", &Frame{Key: NewUintKey(42), Value: "hello"}},
		{"string key, int value", &Frame{Key: NewStringKey("k1"), Value: int64(7)}},
		{"tombstone", NewTombstone(NewStringKey("k1"))},
		{"list value", &Frame{Key: NewUintKey(1), Value: []any{int64(1), "two", true}}},
		{"map value", &Frame{Key: NewUintKey(2), Value: map[string]any{"a": int64(1)}}},
		{"byte list", &Frame{Key: NewUintKey(3), Value: []byte{1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.f, nil, nil)
			require.NoError(t, err)

			got, err := Decode(data, nil, nil, false)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.f.Key, got.Key); diff != "" {
				t.Fatalf("key mismatch (-want +got):\n%s", diff)
			}
			if tt.f.Tombstone != got.Tombstone {
				t.Fatalf("tombstone = %v, want %v", got.Tombstone, tt.f.Tombstone)
			}
			if !tt.f.Tombstone {
				if diff := cmp.Diff(tt.f.Value, got.Value); diff != "" {
					t.Fatalf("value mismatch (-want +got):\n%s", diff)
				}
			}
			if got.Length != uint32(len(data)) {
				t.Fatalf("Length = %d, want %d", got.Length, len(data))
			}
		})
	}
}

func TestFrameLazyDecodeSkipsValue(t *testing.T) {
	f := &Frame{Key: NewStringKey("k1"), Value: "a fairly long value to make sure skipping works"}
	data, err := Encode(f, nil, nil)
	require.NoError(t, err)

	got, err := Decode(data, nil, nil, true)
	require.NoError(t, err)
	require.Equal(t, f.Key, got.Key)
	require.Nil(t, got.Value)
	require.False(t, got.Tombstone)
}

func TestFrameDecodeCorruptCRC(t *testing.T) {
	f := &Frame{Key: NewUintKey(1), Value: "hi"}
	data, err := Encode(f, nil, nil)
	require.NoError(t, err)

	data[len(data)-1] ^= 0xff

	_, err = Decode(data, nil, nil, false)
	require.Error(t, err)
}

func TestFrameDecodeTruncated(t *testing.T) {
	f := &Frame{Key: NewUintKey(1), Value: "hi"}
	data, err := Encode(f, nil, nil)
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-2], nil, nil, false)
	require.Error(t, err)
}

func TestStringKeyLengthValidation(t *testing.T) {
	_, err := Encode(&Frame{Key: NewStringKey(""), Value: "v"}, nil, nil)
	require.Error(t, err)
}

func TestKeyCompareOrdering(t *testing.T) {
	if NewUintKey(5).Compare(NewStringKey("a")) >= 0 {
		t.Fatalf("uint keys must sort before string keys")
	}
	if NewUintKey(5).Compare(NewUintKey(10)) >= 0 {
		t.Fatalf("uint keys must compare numerically")
	}
	if NewStringKey("a").Compare(NewStringKey("b")) >= 0 {
		t.Fatalf("string keys must compare by codepoint order")
	}
}
