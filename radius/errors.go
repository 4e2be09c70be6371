package radius

import "errors"

// ErrMalformed is returned by ParsePacket when the datagram violates
// framing rules in §4.1: short header, length mismatch, or a TLV whose
// declared length runs past the packet. Per spec, malformed datagrams are
// dropped silently by the caller — this error exists so the caller can
// count and log them, not so it can be displayed to a NAS.
var ErrMalformed = errors.New("radius: malformed packet")

// ErrTooLarge is returned by Encode only if the packet still exceeds the
// 4096-byte RADIUS maximum after trailing attributes have been dropped to
// make it fit; an oversized packet normally encodes with fewer attributes.
var ErrTooLarge = errors.New("radius: encoded packet exceeds 4096 bytes")
