package radius

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// NewRequestAuthenticator generates a fresh 16-byte request authenticator
// (RFC 2865 §3: "should be unpredictable and unique over the lifetime of a
// secret"). Used as both the header authenticator of an Access-Request and
// the seed for User-Password obfuscation.
func NewRequestAuthenticator() ([AuthenticatorSize]byte, error) {
	var a [AuthenticatorSize]byte
	if _, err := rand.Read(a[:]); err != nil {
		return a, NewError(KindInvalidInput, fmt.Errorf("radius: generating request authenticator: %w", err))
	}
	return a, nil
}

// SignResponse computes the response authenticator for p (an
// Access-Accept/-Reject/-Challenge being sent in reply to a request whose
// authenticator was requestAuthenticator) and stores it on p.Authenticator.
//
// Per RFC 2865 §3, the digest is computed with the *request* authenticator
// sitting in the response's authenticator slot — not zeros — so the
// sender prepares the packet with that substitution before hashing, then
// overwrites the slot with the digest before emission (spec.md §9).
func SignResponse(p *Packet, requestAuthenticator [AuthenticatorSize]byte, secret string) error {
	p.Authenticator = requestAuthenticator
	encoded, err := p.Encode()
	if err != nil {
		return err
	}
	p.Authenticator = responseDigest(encoded, secret)
	return nil
}

// VerifyResponseAuthenticator checks a received response datagram's
// authenticator against the request authenticator the client recorded and
// the shared secret. raw is the exact bytes as received off the wire.
func VerifyResponseAuthenticator(raw []byte, requestAuthenticator [AuthenticatorSize]byte, secret string) bool {
	if len(raw) < HeaderSize {
		return false
	}
	received := raw[4:20]

	substituted := make([]byte, len(raw))
	copy(substituted, raw)
	copy(substituted[4:20], requestAuthenticator[:])

	expected := responseDigest(substituted, secret)
	return subtle.ConstantTimeCompare(expected[:], received) == 1
}

// responseDigest computes MD5(code || id || length || authSlot || attrs || secret),
// where encoded already has the desired bytes sitting in the authenticator slot.
func responseDigest(encoded []byte, secret string) [AuthenticatorSize]byte {
	h := md5.New()
	h.Write(encoded)
	h.Write([]byte(secret))
	var sum [AuthenticatorSize]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
