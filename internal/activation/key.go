package activation

import "strings"

// Key is an activation-bytes token. The zero value means no key.
type Key string

// IsZero reports whether k represents the absent key.
func (k Key) IsZero() bool {
	return k == ""
}

// Redacted returns a form of k safe for logs and error messages.
func (k Key) Redacted() string {
	if k.IsZero() {
		return "none"
	}
	s := string(k)
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-2)
}

// Keys converts raw strings to keys, dropping blanks.
func Keys(values ...string) []Key {
	out := make([]Key, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, Key(v))
		}
	}
	return out
}
