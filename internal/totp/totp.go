// Package totp implements time-based one-time passcodes as described in
// RFC 6238, restricted to the parameters watchc uses: HMAC-SHA1, six digits
// and a 30 second time step.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/exp/slices"
)

const (
	// Step is the length of one time step.
	Step = 30 * time.Second

	// Digits is the number of decimal digits of a code.
	Digits = 6

	modulo = 1000000 // 10^Digits
)

// Window holds the codes for the previous, current and next time step.
type Window [3]string

// Code computes the HOTP value (RFC 4226) of secret for counter.
func Code(secret []byte, counter uint64) string {
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], counter)

	h := hmac.New(sha1.New, secret)
	h.Write(buf[:])
	sum := h.Sum(nil)

	// dynamic truncation, see RFC 4226 section 5.3
	off := sum[len(sum)-1] & 0xf
	trunc := (uint32(sum[off])&0x7f)<<24 |
		uint32(sum[off+1])<<16 |
		uint32(sum[off+2])<<8 |
		uint32(sum[off+3])

	return fmt.Sprintf("%0*d", Digits, trunc%modulo)
}

// At returns the code of secret for the time step containing t.
//
// Times before the Unix epoch are clamped to the first time step.
func At(secret []byte, t time.Time) string {
	return Code(secret, counter(t))
}

func counter(t time.Time) uint64 {
	sec := t.Unix()

	if sec < 0 {
		return 0
	}

	return uint64(sec) / uint64(Step/time.Second)
}

// Current computes the window of codes that are acceptable at now.
//
// The window is derived from its inputs only; callers are expected to
// call Current for every verification instead of caching the result.
func Current(secret []byte, now time.Time) Window {
	return Window{
		At(secret, now.Add(-Step)),
		At(secret, now),
		At(secret, now.Add(Step)),
	}
}

// Valid reports whether code matches one of the codes in w exactly.
func (w Window) Valid(code string) bool {
	if len(code) != Digits {
		return false
	}

	return slices.IndexFunc(w[:], func(c string) bool {
		return subtle.ConstantTimeCompare([]byte(c), []byte(code)) == 1
	}) >= 0
}
