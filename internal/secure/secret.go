// Package secure holds secret values in memguard locked buffers.
//
// A Secret owns its memory: the plaintext lives in an mlocked region with
// guard pages and is overwritten with zeros by Destroy. Destroy is
// idempotent, so callers defer it unconditionally right after acquiring a
// Secret and may also destroy early once the value has been consumed.
//
// main must call memguard.SafeExit (or Purge) so buffers still alive when the
// process ends are wiped as well.
package secure

import (
	"github.com/awnumar/memguard"
)

// Secret is a scoped secret value.
type Secret struct {
	buf *memguard.LockedBuffer
}

// New moves b into a locked buffer. b is wiped before New returns.
func New(b []byte) *Secret {
	return &Secret{buf: memguard.NewBufferFromBytes(b)}
}

// FromString copies s into a locked buffer. The string itself cannot be
// wiped; use it for test fixtures and values that are already public.
func FromString(s string) *Secret {
	return New([]byte(s))
}

// Bytes returns the plaintext. The slice aliases locked memory and must not
// be retained past Destroy.
func (s *Secret) Bytes() []byte {
	if s == nil || s.buf == nil {
		return nil
	}
	return s.buf.Bytes()
}

// UnsafeString returns the plaintext as a string aliasing locked memory. The
// string is invalid once the Secret is destroyed; copy it with strings.Clone
// to keep it. Secret has no String method, so formatting a
// Secret never prints the value.
func (s *Secret) UnsafeString() string {
	if s == nil || s.buf == nil {
		return ""
	}
	return s.buf.String()
}

// Len returns the length of the plaintext in bytes.
func (s *Secret) Len() int {
	if s == nil || s.buf == nil {
		return 0
	}
	return s.buf.Size()
}

// Alive reports whether the secret has not been destroyed yet.
func (s *Secret) Alive() bool {
	return s != nil && s.buf != nil && s.buf.IsAlive()
}

// Destroy zeroes and releases the plaintext.
func (s *Secret) Destroy() {
	if s == nil || s.buf == nil {
		return
	}
	s.buf.Destroy()
}

// Wipe zeroes b in place. It is for transient buffers that never made it
// into a Secret.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
