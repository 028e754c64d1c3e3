package media

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultExtension = ".jpg"

// Extension picks a file extension from the declared MIME type, then from
// the decrypted bytes, and falls back to .jpg.
func Extension(declared string, data []byte) string {
	base, _, _ := strings.Cut(declared, ";")
	base = strings.ToLower(strings.TrimSpace(base))

	if base != "" {
		if m := mimetype.Lookup(base); m != nil && m.Extension() != "" {
			return m.Extension()
		}
	}

	if len(data) > 0 {
		m := mimetype.Detect(data)
		if strings.HasPrefix(m.String(), "image/") && m.Extension() != "" {
			return m.Extension()
		}
	}

	return defaultExtension
}
