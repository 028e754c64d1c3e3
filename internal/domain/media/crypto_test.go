package media

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMediaKey = bytes.Repeat([]byte{0x42}, 32)

// manualExpand is the textbook extract-then-expand construction
func manualExpand(key []byte, info string) []byte {
	extract := hmac.New(sha256.New, make([]byte, 32))
	extract.Write(key)
	prk := extract.Sum(nil)

	var out, prev []byte
	for i := byte(1); len(out) < expandedKeyLen; i++ {
		h := hmac.New(sha256.New, prk)
		h.Write(prev)
		h.Write([]byte(info))
		h.Write([]byte{i})
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:expandedKeyLen]
}

// encryptForTest produces a payload in the wire layout: ciphertext ‖ tag
func encryptForTest(t *testing.T, plaintext, key []byte, info string) []byte {
	t.Helper()
	require.Zero(t, len(plaintext)%aes.BlockSize)

	keys, err := ExpandKey(key, info)
	require.NoError(t, err)

	block, err := aes.NewCipher(keys.CipherKey)
	require.NoError(t, err)

	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, keys.IV).CryptBlocks(out, plaintext)
	return append(out, bytes.Repeat([]byte{0xAA}, macTagLen)...)
}

func TestExpandKeyMatchesManualConstruction(t *testing.T) {
	want := manualExpand(testMediaKey, LabelImage)

	keys, err := ExpandKey(testMediaKey, LabelImage)
	require.NoError(t, err)

	assert.Equal(t, want[0:16], keys.IV)
	assert.Equal(t, want[16:48], keys.CipherKey)
	assert.Equal(t, want[48:80], keys.MACKey)
}

func TestDecryptRoundTrip(t *testing.T) {
	plaintext := bytes.Repeat([]byte("0123456789abcdef"), 6) // 96 bytes
	payload := encryptForTest(t, plaintext, testMediaKey, LabelImage)
	key := base64.StdEncoding.EncodeToString(testMediaKey)

	got, err := Decrypt(payload, key, LabelImage)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	// deterministic
	again, err := Decrypt(payload, key, LabelImage)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestDecryptLabelMatters(t *testing.T) {
	plaintext := bytes.Repeat([]byte{1}, 32)
	payload := encryptForTest(t, plaintext, testMediaKey, LabelImage)
	key := base64.StdEncoding.EncodeToString(testMediaKey)

	got, err := Decrypt(payload, key, LabelVideo)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, got)
}

func TestDecryptErrors(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(testMediaKey)
	aligned := encryptForTest(t, make([]byte, 32), testMediaKey, LabelImage)

	tests := []struct {
		name    string
		payload []byte
		key     string
	}{
		{"bad base64", aligned, "%%%not-base64"},
		{"empty key", aligned, ""},
		{"tag only", make([]byte, macTagLen), key},
		{"shorter than tag", make([]byte, 4), key},
		{"truncated by one byte", aligned[:len(aligned)-1], key},
		{"truncated by nine bytes", aligned[:len(aligned)-9], key},
		{"extra byte", append(append([]byte{}, aligned...), 0), key},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.payload, tt.key, LabelImage)
			assert.ErrorIs(t, err, ErrDecryption)
		})
	}
}

func TestInfoLabel(t *testing.T) {
	assert.Equal(t, LabelImage, InfoLabel("image"))
	assert.Equal(t, LabelImage, InfoLabel("IMAGE"))
	assert.Equal(t, LabelAudio, InfoLabel("ptt"))
	assert.Equal(t, LabelDocument, InfoLabel("document"))
	assert.Equal(t, "Custom Keys", InfoLabel("Custom Keys"))
}
