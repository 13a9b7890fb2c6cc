package crypto

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	key := make([]byte, keySize)
	_, _ = r.Read(key)
	return key
}

func testRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewWithRand(testKey(1), testRand(2))
	require.NoError(t, err)

	plaintext := []byte("the hive stores append-only frames")
	ciphertext, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	got, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	require.True(t, bytes.Equal(plaintext, got))
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	c1, err := NewWithRand(testKey(1), testRand(2))
	require.NoError(t, err)
	c2, err := NewWithRand(testKey(99), testRand(2))
	require.NoError(t, err)

	ciphertext, err := c1.Encrypt([]byte("secret value"))
	require.NoError(t, err)

	_, err = c2.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestKeyCRCDiffersPerKey(t *testing.T) {
	c1, err := NewWithRand(testKey(1), testRand(2))
	require.NoError(t, err)
	c2, err := NewWithRand(testKey(2), testRand(2))
	require.NoError(t, err)

	require.NotEqual(t, c1.KeyCRC(), c2.KeyCRC())
}

func TestNewRejectsWrongKeyLength(t *testing.T) {
	_, err := NewWithRand(make([]byte, 16), testRand(1))
	require.Error(t, err)
}

func TestEmptyPlaintextRoundTrip(t *testing.T) {
	c, err := NewWithRand(testKey(5), testRand(6))
	require.NoError(t, err)

	ciphertext, err := c.Encrypt(nil)
	require.NoError(t, err)

	got, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Len(t, got, 0)
}
