// Package mschap implements the PAP, CHAP, MS-CHAP and MS-CHAPv2 credential
// verifiers and the MPPE session-key derivation used on MS-CHAPv2 success,
// per RFC 2865 §5.2, RFC 1994, RFC 2759 and RFC 3079.
package mschap

import "crypto/des"

// expandDESKey turns a 7-byte subkey into an 8-byte DES key by inserting a
// parity bit (left as 0, DES ignores the low bit of each byte anyway) every
// 7 bits, per the standard MS-CHAP key expansion used by both MS-CHAP and
// MS-CHAPv2 (RFC 2759 §A, "ChallengeResponse").
func expandDESKey(s []byte) [8]byte {
	var k [8]byte
	k[0] = s[0]
	k[1] = (s[0] << 7) | (s[1] >> 1)
	k[2] = (s[1] << 6) | (s[2] >> 2)
	k[3] = (s[2] << 5) | (s[3] >> 3)
	k[4] = (s[3] << 4) | (s[4] >> 4)
	k[5] = (s[4] << 3) | (s[5] >> 5)
	k[6] = (s[5] << 2) | (s[6] >> 6)
	k[7] = s[6] << 1
	return k
}

// desEncryptBlock encrypts one 8-byte block with key under ECB (single
// block, so no chaining mode is needed).
func desEncryptBlock(key [8]byte, block [8]byte) [8]byte {
	c, err := des.NewCipher(key[:])
	if err != nil {
		// key is always 8 bytes; NewCipher only fails on wrong key size.
		panic(err)
	}
	var out [8]byte
	c.Encrypt(out[:], block[:])
	return out
}

// ChallengeResponse implements the shared DES-triple construction behind
// both MS-CHAP (RFC 2433/§4.7) and MS-CHAPv2 (RFC 2759 §8.5): pad a 16-byte
// hash to 21 bytes, split into three 7-byte subkeys, and encrypt the 8-byte
// challenge block once under each expanded key, concatenating the three
// ciphertexts into a 24-byte response.
func ChallengeResponse(challenge [8]byte, hash [16]byte) [24]byte {
	var padded [21]byte
	copy(padded[:], hash[:])

	var out [24]byte
	for i := 0; i < 3; i++ {
		key := expandDESKey(padded[i*7 : i*7+7])
		block := desEncryptBlock(key, challenge)
		copy(out[i*8:i*8+8], block[:])
	}
	return out
}
