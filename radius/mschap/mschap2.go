package mschap

import (
	"crypto/sha1"
	"crypto/subtle"
)

// ChallengeHash implements RFC 2759 §8.2 (ChallengeHash): the first 8 bytes
// of SHA1(peer_challenge || auth_challenge || username). Username is used
// without domain stripping and in UTF-8, per §4.8.
func ChallengeHash(peerChallenge [16]byte, authChallenge [16]byte, username string) [8]byte {
	h := sha1.New()
	h.Write(peerChallenge[:])
	h.Write(authChallenge[:])
	h.Write([]byte(username))
	sum := h.Sum(nil)
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// VerifyMSCHAP2 checks the 24-byte NT-Response against the expected value
// derived from the stored password, per RFC 2759 §8.
func VerifyMSCHAP2(challengeHash [8]byte, ntResponse [24]byte, storedPassword string) bool {
	passwordHash := NTHash(storedPassword)
	var block [8]byte
	copy(block[:], challengeHash[:])
	expected := ChallengeResponse(block, passwordHash)
	return subtle.ConstantTimeCompare(ntResponse[:], expected[:]) == 1
}

// magic constants from RFC 2759 §8.7 and RFC 3079 §3.4.
var (
	magic1 = []byte("Magic server to client signing constant")
	magic2 = []byte("Pad to make it do more than one iteration")

	mppeMasterKeyMagic = []byte("This is the MPPE Master Key")

	// mppeMagicSend/Recv are RFC 3079's Magic2/Magic3, 84 bytes each,
	// named here from the server's point of view: on the server, the
	// send key uses Magic3 and the receive key uses Magic2.
	mppeMagicSend = []byte("On the client side, this is the receive key; on the server side, it is the send key.")
	mppeMagicRecv = []byte("On the client side, this is the send key; on the server side, it is the receive key.")

	// shsPad1/shsPad2 are RFC 3079's fixed padding, applied either side
	// of the 84-byte magic constant in GetAsymmetricStartKey.
	shsPad1 = make([]byte, 40)
	shsPad2 = bytesRepeat(0xF2, 40)
)

func bytesRepeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// AuthenticatorResponse computes the mutual-auth value a peer checks
// against the server's MS-CHAP2-Success attribute, per RFC 2759 §8.7
// exactly: PasswordHashHash (MD4 of the NT-Hash), then a SHA1 digest over
// it, the NT-Response and magic1, then a second SHA1 digest over that,
// ChallengeHash and magic2 — not the single-HMAC shortcut the Rust
// original used (§9 Open Question 1 — the RFC construction is what real
// peers expect).
func AuthenticatorResponse(storedPassword string, ntResponse [24]byte, challengeHash [8]byte) [20]byte {
	passwordHash := NTHash(storedPassword)
	passwordHashHash := hashNTHash(passwordHash)

	digest1 := sha1.New()
	digest1.Write(passwordHashHash[:])
	digest1.Write(ntResponse[:])
	digest1.Write(magic1)
	sum1 := digest1.Sum(nil)

	digest2 := sha1.New()
	digest2.Write(sum1)
	digest2.Write(challengeHash[:])
	digest2.Write(magic2)
	sum2 := digest2.Sum(nil)

	var out [20]byte
	copy(out[:], sum2)
	return out
}

// MPPEMasterKey derives the 16-byte master session key from which the
// send/receive keys are further derived, per RFC 3079 §3.4.
func MPPEMasterKey(storedPassword string, ntResponse [24]byte) [16]byte {
	passwordHash := NTHash(storedPassword)
	passwordHashHash := hashNTHash(passwordHash)

	h := sha1.New()
	h.Write(passwordHashHash[:])
	h.Write(ntResponse[:])
	h.Write(mppeMasterKeyMagic)
	sum := h.Sum(nil)

	var out [16]byte
	copy(out[:], sum[:16])
	return out
}

// MPPESendKey and MPPERecvKey derive the directional session keys from the
// master key, per RFC 3079 §3.4's GetAsymmetricStartKey. "Send"/"Recv" are
// from the server's point of view, matching the VSA names
// MS-MPPE-Send-Key/MS-MPPE-Recv-Key.
func MPPESendKey(masterKey [16]byte) [16]byte { return mppeDerive(masterKey, mppeMagicSend) }
func MPPERecvKey(masterKey [16]byte) [16]byte { return mppeDerive(masterKey, mppeMagicRecv) }

func mppeDerive(masterKey [16]byte, magic []byte) [16]byte {
	h := sha1.New()
	h.Write(masterKey[:])
	h.Write(shsPad1)
	h.Write(magic)
	h.Write(shsPad2)
	sum := h.Sum(nil)
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}
