package s3

import "strings"

// KeyCodec maps logical paths onto object keys under an optional prefix.
// Object stores have no parent directory semantics, so paths are used as-is
// apart from a leading slash.
type KeyCodec struct {
	prefix string
}

// NewKeyCodec creates a codec, normalizing a non-empty prefix to end in "/"
func NewKeyCodec(prefix string) KeyCodec {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return KeyCodec{prefix: prefix}
}

// Prefix returns the normalized prefix
func (c KeyCodec) Prefix() string {
	return c.prefix
}

// Encode prepends the prefix to path
func (c KeyCodec) Encode(path string) string {
	return c.prefix + strings.TrimPrefix(path, "/")
}

// EncodeDir encodes path as a directory prefix ending in "/". The empty path
// encodes to the bare prefix.
func (c KeyCodec) EncodeDir(path string) string {
	key := c.Encode(path)
	if key != c.prefix && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return key
}

// Decode strips the prefix from key. Keys without the prefix are returned
// unchanged.
func (c KeyCodec) Decode(key string) string {
	return strings.TrimPrefix(key, c.prefix)
}
