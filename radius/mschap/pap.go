package mschap

import (
	"crypto/md5"
	"crypto/subtle"
)

// DecryptPAP reverses the RFC 2865 §5.2 User-Password encryption: each
// 16-byte ciphertext block is XORed with MD5(secret || previous-block),
// where the first "previous block" is the Request Authenticator. Mirrors
// core/radius_AVP.go's decrypt1, generalized to PAP's fixed secret-keyed
// chain (PAP never salts or tags the first block).
func DecryptPAP(ciphertext []byte, requestAuthenticator [16]byte, secret string) []byte {
	if len(ciphertext)%16 != 0 || len(ciphertext) == 0 {
		return nil
	}
	plain := make([]byte, len(ciphertext))
	prev := requestAuthenticator[:]
	for i := 0; i+16 <= len(ciphertext); i += 16 {
		b := md5Block(secret, prev)
		for j := 0; j < 16; j++ {
			plain[i+j] = ciphertext[i+j] ^ b[j]
		}
		prev = ciphertext[i : i+16]
	}
	return trimTrailingZeros(plain)
}

// EncryptPAP performs the inverse transform, used by tests to build S1/S2
// fixtures and by anything constructing outbound Access-Requests.
func EncryptPAP(password string, requestAuthenticator [16]byte, secret string) []byte {
	padded := []byte(password)
	if len(padded)%16 != 0 {
		padded = append(padded, make([]byte, 16-len(padded)%16)...)
	}
	if len(padded) == 0 {
		padded = make([]byte, 16)
	}
	cipher := make([]byte, len(padded))
	prev := requestAuthenticator[:]
	for i := 0; i+16 <= len(padded); i += 16 {
		b := md5Block(secret, prev)
		for j := 0; j < 16; j++ {
			cipher[i+j] = padded[i+j] ^ b[j]
		}
		prev = cipher[i : i+16]
	}
	return cipher
}

func md5Block(secret string, prev []byte) [16]byte {
	h := md5.New()
	h.Write([]byte(secret))
	h.Write(prev)
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

func trimTrailingZeros(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}

// VerifyPAP decrypts ciphertext and compares it, constant-time, against the
// stored cleartext password.
func VerifyPAP(ciphertext []byte, requestAuthenticator [16]byte, secret, storedPassword string) bool {
	plain := DecryptPAP(ciphertext, requestAuthenticator, secret)
	if plain == nil {
		return false
	}
	a := []byte(storedPassword)
	if len(plain) != len(a) {
		// subtle.ConstantTimeCompare requires equal length; a length
		// mismatch is itself a definitive rejection, not a side channel
		// worth padding away for a password whose length a NAS already
		// revealed in packet size.
		return false
	}
	return subtle.ConstantTimeCompare(plain, a) == 1
}
