// Package media decrypts inbound chat attachments and relays allow-listed
// group images to object storage and the backend.
//
// Decryption expands the per-message media key with HKDF-SHA256 and runs
// AES-256-CBC over the payload minus its 10 byte tag. Decrypted bytes only
// ever touch disk as a uniquely named temp file that is removed before
// Relay returns.
package media
