package radius

import (
	"crypto/md5"
	"fmt"
)

// EncryptPassword obfuscates a plaintext password per RFC 2865 §5.2.
//
// The password is zero-padded to a multiple of 16 bytes (minimum 16).
// b[0] = MD5(secret || requestAuthenticator); b[i] = MD5(secret || c[i-1])
// for i >= 1. Ciphertext block i = plaintext block i XOR b[i].
func EncryptPassword(password, secret string, requestAuthenticator [AuthenticatorSize]byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, NewError(KindInvalidInput, errPasswordEmpty)
	}
	if len(password) > MaxPasswordLength {
		return nil, NewError(KindInvalidInput, errPasswordTooLong)
	}

	padded := padPassword([]byte(password))
	out := make([]byte, len(padded))

	prev := requestAuthenticator[:]
	for i := 0; i < len(padded); i += 16 {
		hash := md5.New()
		hash.Write([]byte(secret))
		hash.Write(prev)
		b := hash.Sum(nil)

		block := padded[i : i+16]
		cipher := make([]byte, 16)
		for j := 0; j < 16; j++ {
			cipher[j] = block[j] ^ b[j]
		}
		copy(out[i:i+16], cipher)
		prev = cipher
	}

	return out, nil
}

// DecryptPassword reverses EncryptPassword, stripping the trailing zero
// padding from the recovered plaintext.
func DecryptPassword(ciphertext []byte, secret string, requestAuthenticator [AuthenticatorSize]byte) (string, error) {
	if len(ciphertext) == 0 || len(ciphertext)%16 != 0 {
		return "", NewError(KindInvalidInput, fmt.Errorf("radius: password attribute length %d is not a nonzero multiple of 16", len(ciphertext)))
	}

	plain := make([]byte, len(ciphertext))
	prev := requestAuthenticator[:]
	for i := 0; i < len(ciphertext); i += 16 {
		hash := md5.New()
		hash.Write([]byte(secret))
		hash.Write(prev)
		b := hash.Sum(nil)

		block := ciphertext[i : i+16]
		for j := 0; j < 16; j++ {
			plain[i+j] = block[j] ^ b[j]
		}
		prev = block
	}

	// Strip trailing zero padding (RFC 2865 §5.2).
	end := len(plain)
	for end > 0 && plain[end-1] == 0 {
		end--
	}
	return string(plain[:end]), nil
}

// padPassword zero-pads to a multiple of 16 bytes, minimum 16.
func padPassword(password []byte) []byte {
	size := 16
	for size < len(password) {
		size += 16
	}
	padded := make([]byte, size)
	copy(padded, password)
	return padded
}
