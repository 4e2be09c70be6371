package mschap

import (
	"golang.org/x/crypto/md4"
	"unicode/utf16"
)

// NTHash computes the NT-Hash of a password: MD4 over the password encoded
// as UTF-16LE, per RFC 2759 §A.3 (NtPasswordHash).
func NTHash(password string) [16]byte {
	h := md4.New()
	h.Write(utf16LE(password))
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// hashNTHash computes PasswordHashHash: MD4 over the 16-byte NT-Hash, per
// RFC 2759 §A.4 (HashNtPasswordHash).
func hashNTHash(passwordHash [16]byte) [16]byte {
	h := md4.New()
	h.Write(passwordHash[:])
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// utf16LE encodes s as UTF-16, little-endian, with no BOM — the form MS-CHAP
// hashes passwords in.
func utf16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}
