package mschap

import (
	"crypto/md5"
	"crypto/subtle"
)

// VerifyCHAP checks a CHAP-Password attribute (RFC 1994): the first byte is
// the CHAP identifier, the remaining 16 bytes are MD5(id || password ||
// challenge). challenge is the CHAP-Challenge attribute if the NAS sent
// one, else the Request Authenticator (§4.6, §9 Open Question 2).
func VerifyCHAP(chapPassword []byte, challenge []byte, storedPassword string) bool {
	if len(chapPassword) != 17 {
		return false
	}
	id := chapPassword[0]
	response := chapPassword[1:]

	h := md5.New()
	h.Write([]byte{id})
	h.Write([]byte(storedPassword))
	h.Write(challenge)
	expected := h.Sum(nil)

	return subtle.ConstantTimeCompare(response, expected) == 1
}
