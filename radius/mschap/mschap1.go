package mschap

import "crypto/subtle"

// VerifyMSCHAP1 checks an MS-CHAP (v1) response, per §4.7: the NT-Response
// is the DES-triple encryption of the 8-byte challenge under the NT-Hash of
// the stored password, padded to 21 bytes.
func VerifyMSCHAP1(challenge [8]byte, ntResponse [24]byte, storedPassword string) bool {
	hash := NTHash(storedPassword)
	expected := ChallengeResponse(challenge, hash)
	return subtle.ConstantTimeCompare(ntResponse[:], expected[:]) == 1
}
