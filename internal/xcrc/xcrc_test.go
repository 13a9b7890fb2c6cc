package xcrc

import (
	"hash/crc32"
	"testing"
)

func TestChecksumMatchesIEEEAtZeroSeed(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy box")
	got := Checksum(0, data)
	want := crc32.ChecksumIEEE(data)
	if got != want {
		t.Fatalf("Checksum(0, data) = %d, want %d", got, want)
	}
}

func TestChecksumChainsSeed(t *testing.T) {
	data := []byte("frame body")
	a := Checksum(111, data)
	b := Checksum(222, data)
	if a == b {
		t.Fatalf("expected different seeds to produce different checksums")
	}
}

func TestUint32LERoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	PutUint32LE(buf, 0xdeadbeef)
	if got := Uint32LE(buf); got != 0xdeadbeef {
		t.Fatalf("Uint32LE = %#x, want %#x", got, 0xdeadbeef)
	}
}
