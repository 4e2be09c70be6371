package radius

import (
	"bytes"
	"testing"

	"github.com/coreradius/radiusd/raddict"
)

func TestParseEncodeRoundTrip(t *testing.T) {
	p := &Packet{Code: CodeAccessRequest, Identifier: 7}
	p.Authenticator = [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	p.Add(byte(raddict.UserName), []byte("alice"))
	p.Add(byte(raddict.NASPort), []byte{0, 0, 0, 5})

	raw, err := p.Encode("testing123")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	parsed, err := ParsePacket(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Code != p.Code || parsed.Identifier != p.Identifier {
		t.Fatalf("header mismatch")
	}
	if parsed.Authenticator != p.Authenticator {
		t.Fatalf("authenticator mismatch")
	}
	name, ok := parsed.GetString(byte(raddict.UserName))
	if !ok || name != "alice" {
		t.Fatalf("User-Name mismatch: %q", name)
	}
}

func TestParseMalformedShort(t *testing.T) {
	if _, err := ParsePacket([]byte{1, 2, 3}); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseMalformedAttributeOverrun(t *testing.T) {
	buf := make([]byte, 20)
	buf[0] = CodeAccessRequest
	binaryPutLength(buf, 23)
	buf = append(buf, 1, 10, 'a') // declares len 10, only 1 byte of value follows
	if _, err := ParsePacket(buf); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func binaryPutLength(buf []byte, length uint16) {
	buf[2] = byte(length >> 8)
	buf[3] = byte(length)
}

func TestVSARoundTrip(t *testing.T) {
	p := &Packet{Code: CodeAccessAccept, Identifier: 3}
	p.AddVSA(raddict.MicrosoftVendorID, raddict.MSMPPESendKey, []byte("somekeybytes----"))

	raw, err := p.EncodeReply("secret", [16]byte{9, 9, 9})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	parsed, err := ParsePacket(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, ok := parsed.GetVSA(raddict.MicrosoftVendorID, raddict.MSMPPESendKey)
	if !ok {
		t.Fatalf("VSA not found after round trip")
	}
	if !bytes.Equal(a.Value, []byte("somekeybytes----")) {
		t.Fatalf("VSA value mismatch: %v", a.Value)
	}
}

func TestEncodeTruncatesOversizedPacket(t *testing.T) {
	p := &Packet{Code: CodeAccessAccept, Identifier: 1}
	for i := 0; i < 300; i++ {
		p.Add(byte(raddict.ReplyMessage), bytes.Repeat([]byte("x"), 20))
	}
	raw, err := p.EncodeReply("secret", [16]byte{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(raw) > MaxPacketSize {
		t.Fatalf("packet exceeds max size: %d", len(raw))
	}
}
