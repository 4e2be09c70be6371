package radius

import (
	"encoding/binary"

	"github.com/coreradius/radiusd/raddict"
)

// RADIUS codes this server speaks (RFC 2865 §3, RFC 2866 §3).
const (
	CodeAccessRequest      byte = 1
	CodeAccessAccept       byte = 2
	CodeAccessReject       byte = 3
	CodeAccountingRequest  byte = 4
	CodeAccountingResponse byte = 5
)

// MaxPacketSize is the RFC 2865 §3 wire-size ceiling.
const MaxPacketSize = 4096

// Packet is a parsed RADIUS packet: a 20-byte header plus an ordered
// attribute list (VSAs already unwrapped into individual Attribute values
// by the codec, matching core/radius_packet.go's representation).
type Packet struct {
	Code          byte
	Identifier    byte
	Authenticator [16]byte
	Attributes    []Attribute
}

// ParsePacket decodes a received datagram per §4.1. Any framing violation
// returns ErrMalformed; the caller is expected to drop the datagram
// silently and count it, not to report the error back to the NAS.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < 20 {
		return nil, ErrMalformed
	}
	length := binary.BigEndian.Uint16(data[2:4])
	if int(length) > len(data) || length < 20 {
		return nil, ErrMalformed
	}
	data = data[:length]

	p := &Packet{
		Code:       data[0],
		Identifier: data[1],
	}
	copy(p.Authenticator[:], data[4:20])

	attrs, err := parseAttributes(data[20:])
	if err != nil {
		return nil, err
	}
	p.Attributes = attrs
	return p, nil
}

// Add appends an attribute without checking for duplicates: RADIUS
// attribute lists may legally contain repeated types (§3).
func (p *Packet) Add(t byte, value []byte) {
	p.Attributes = append(p.Attributes, Attribute{Type: t, Value: value})
}

// AddVSA appends a vendor-specific sub-attribute.
func (p *Packet) AddVSA(vendorID uint32, subType byte, value []byte) {
	p.Attributes = append(p.Attributes, Attribute{Type: subType, VendorID: vendorID, Value: value})
}

// Get returns the first plain (non-vendor) attribute of the given type.
func (p *Packet) Get(t byte) (Attribute, bool) {
	for _, a := range p.Attributes {
		if !a.IsVSA() && a.Type == t {
			return a, true
		}
	}
	return Attribute{}, false
}

// GetVSA returns the first vendor sub-attribute matching (vendorID, subType).
func (p *Packet) GetVSA(vendorID uint32, subType byte) (Attribute, bool) {
	for _, a := range p.Attributes {
		if a.IsVSA() && a.VendorID == vendorID && a.Type == subType {
			return a, true
		}
	}
	return Attribute{}, false
}

// GetString returns a plain attribute's value interpreted as UTF-8 text.
func (p *Packet) GetString(t byte) (string, bool) {
	a, ok := p.Get(t)
	if !ok {
		return "", false
	}
	return string(a.Value), true
}

// NewReply builds the skeleton of a response to p: same identifier, the
// given response code, no attributes yet. Callers add attributes, then
// call EncodeReply.
func (p *Packet) NewReply(code byte) *Packet {
	return &Packet{Code: code, Identifier: p.Identifier}
}

// Encode serializes a request packet (Access-Request or
// Accounting-Request) using its own Authenticator field as-is. If a
// Message-Authenticator attribute (type 80) is present, its value is
// patched in place: HMAC-MD5 over the packet with the value field zeroed,
// keyed by secret, per RFC 2869 §5.14.
func (p *Packet) Encode(secret string) ([]byte, error) {
	return encodeWithAuthenticator(p, secret, p.Authenticator, false)
}

// EncodeReply serializes a response packet (Access-Accept/Reject or
// Accounting-Response). requestAuthenticator is the Authenticator field
// copied from the originating request; it is used, per §4.3, both as the
// placeholder during Message-Authenticator hashing and as the input to the
// Response-Authenticator MD5. Ordering invariant: Message-Authenticator is
// computed first (with the request authenticator still sitting in bytes
// 4..20), then Response-Authenticator is computed last and overwrites
// those bytes.
func (p *Packet) EncodeReply(secret string, requestAuthenticator [16]byte) ([]byte, error) {
	return encodeWithAuthenticator(p, secret, requestAuthenticator, true)
}

func encodeWithAuthenticator(p *Packet, secret string, placeholder [16]byte, isReply bool) ([]byte, error) {
	body := encodeAttributes(p.Attributes)
	total := 20 + len(body)
	if total > MaxPacketSize {
		// Drop trailing attributes until it fits, per §4.1.
		for total > MaxPacketSize && len(p.Attributes) > 0 {
			p.Attributes = p.Attributes[:len(p.Attributes)-1]
			body = encodeAttributes(p.Attributes)
			total = 20 + len(body)
		}
		if total > MaxPacketSize {
			return nil, ErrTooLarge
		}
	}

	buf := make([]byte, total)
	buf[0] = p.Code
	buf[1] = p.Identifier
	binary.BigEndian.PutUint16(buf[2:4], uint16(total))
	copy(buf[4:20], placeholder[:])
	copy(buf[20:], body)

	if off, ok := findMessageAuthenticatorOffset(buf); ok {
		mac := computeMessageAuthenticatorMAC(secret, buf, off)
		copy(buf[off:off+16], mac)
	}

	if isReply {
		sum := computeResponseAuthenticator(secret, buf, placeholder)
		copy(buf[4:20], sum[:])
		p.Authenticator = sum
	} else {
		p.Authenticator = placeholder
	}

	return buf, nil
}

// findMessageAuthenticatorOffset locates the 16-byte value region of a
// type-80 attribute within an already-serialized buffer, so it can be
// zeroed and then patched in place without re-encoding the packet.
func findMessageAuthenticatorOffset(buf []byte) (int, bool) {
	off := 20
	for off+2 <= len(buf) {
		t := buf[off]
		l := int(buf[off+1])
		if l < 2 || off+l > len(buf) {
			return 0, false
		}
		if t == byte(raddict.MessageAuthenticator) && l == 18 {
			return off + 2, true
		}
		off += l
	}
	return 0, false
}
