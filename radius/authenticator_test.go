package radius

import (
	"testing"

	"github.com/coreradius/radiusd/raddict"
)

func TestMessageAuthenticatorVerify(t *testing.T) {
	secret := "testing123"
	p := &Packet{Code: CodeAccessRequest, Identifier: 1}
	p.Authenticator = [16]byte{0: 1, 15: 2}
	p.Add(byte(raddict.UserName), []byte("alice"))
	p.Add(byte(raddict.MessageAuthenticator), make([]byte, 16))

	raw, err := p.Encode(secret)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !VerifyMessageAuthenticator(raw, secret) {
		t.Fatalf("expected Message-Authenticator to verify")
	}
	if VerifyMessageAuthenticator(raw, "wrong-secret") {
		t.Fatalf("Message-Authenticator verified with wrong secret")
	}

	// Flipping a byte of the received MAC must break verification.
	off, ok := findMessageAuthenticatorOffset(raw)
	if !ok {
		t.Fatalf("could not locate Message-Authenticator")
	}
	raw[off] ^= 0xFF
	if VerifyMessageAuthenticator(raw, secret) {
		t.Fatalf("tampered Message-Authenticator unexpectedly verified")
	}
}

// TestResponseAuthenticatorInvariant exercises testable property 3: the
// reply's bytes[4:20] equal MD5(code||id||len||reqAuth||attrs||secret).
func TestResponseAuthenticatorInvariant(t *testing.T) {
	secret := "testing123"
	reqAuth := [16]byte{}

	reply := &Packet{Code: CodeAccessAccept, Identifier: 42}
	raw, err := reply.EncodeReply(secret, reqAuth)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !ValidateResponseAuthenticator(raw, reqAuth, secret) {
		t.Fatalf("response authenticator invariant violated")
	}
}
