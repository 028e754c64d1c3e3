package media

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// ErrDecryption is returned for malformed key material or ciphertext.
var ErrDecryption = errors.New("media decryption failed")

const (
	expandedKeyLen = 112
	macTagLen      = 10
	saltLen        = 32
)

// HKDF info labels of the chat protocol's media classes.
const (
	LabelImage    = "WhatsApp Image Keys"
	LabelVideo    = "WhatsApp Video Keys"
	LabelAudio    = "WhatsApp Audio Keys"
	LabelDocument = "WhatsApp Document Keys"
)

var infoLabels = map[string]string{
	"image":    LabelImage,
	"sticker":  LabelImage,
	"video":    LabelVideo,
	"gif":      LabelVideo,
	"audio":    LabelAudio,
	"ptt":      LabelAudio,
	"document": LabelDocument,
}

// InfoLabel maps an engine message type to its key derivation label.
// Unknown types are returned unchanged so callers may pass a label directly.
func InfoLabel(messageType string) string {
	if label, ok := infoLabels[strings.ToLower(messageType)]; ok {
		return label
	}
	return messageType
}

// MediaKeys is the split expansion of a media key.
type MediaKeys struct {
	IV        []byte
	CipherKey []byte
	// MACKey is derived but not checked against the payload tag
	MACKey []byte
}

// ExpandKey runs HKDF-SHA256 with a 32 byte zero salt over the raw media
// key and splits the 112 byte output.
func ExpandKey(mediaKey []byte, info string) (MediaKeys, error) {
	if len(mediaKey) == 0 {
		return MediaKeys{}, fmt.Errorf("%w: empty media key", ErrDecryption)
	}

	expanded := make([]byte, expandedKeyLen)
	r := hkdf.New(sha256.New, mediaKey, make([]byte, saltLen), []byte(info))
	if _, err := io.ReadFull(r, expanded); err != nil {
		return MediaKeys{}, fmt.Errorf("%w: expand key: %v", ErrDecryption, err)
	}

	return MediaKeys{
		IV:        expanded[0:16],
		CipherKey: expanded[16:48],
		MACKey:    expanded[48:80],
	}, nil
}

// Decrypt recovers a media payload. The trailing 10 byte tag is stripped
// and the remainder decrypted with AES-256-CBC without removing padding.
func Decrypt(encrypted []byte, mediaKeyBase64 string, info string) ([]byte, error) {
	mediaKey, err := base64.StdEncoding.DecodeString(mediaKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: media key is not base64: %v", ErrDecryption, err)
	}

	keys, err := ExpandKey(mediaKey, info)
	if err != nil {
		return nil, err
	}

	if len(encrypted) <= macTagLen {
		return nil, fmt.Errorf("%w: payload of %d bytes has no ciphertext", ErrDecryption, len(encrypted))
	}
	ciphertext := encrypted[:len(encrypted)-macTagLen]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d",
			ErrDecryption, len(ciphertext), aes.BlockSize)
	}

	block, err := aes.NewCipher(keys.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, keys.IV).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}
