package radius

import (
	"encoding/binary"
	"fmt"

	"github.com/coreradius/radiusd/raddict"
)

// Attribute is a single RADIUS TLV, or the unwrapped contents of a
// Vendor-Specific Attribute (type 26). VendorID is 0 for plain attributes;
// when non-zero, Type is reinterpreted as the vendor-specific sub-type and
// Value is vendor_data, following core/radius_AVP.go's VSA unwrapping.
type Attribute struct {
	Type     byte
	VendorID uint32
	Value    []byte
}

// IsVSA reports whether this attribute was carried inside a type-26 wrapper.
func (a Attribute) IsVSA() bool { return a.VendorID != 0 }

// Name returns a human string for logging; VSAs are rendered as
// "vendor:type" since raddict does not carry a full vendor sub-dictionary.
func (a Attribute) Name() string {
	if a.IsVSA() {
		return fmt.Sprintf("VSA(%d:%d)", a.VendorID, a.Type)
	}
	return raddict.AttrType(a.Type).String()
}

// parseAttributes walks the TLV region [20:length) of a packet, expanding
// type-26 Vendor-Specific Attributes into their own Attribute entries. This
// mirrors core/radius_packet.go's FromReader AVP loop, simplified because
// this dictionary has no AVP concatenation or multi-vendor nesting to honor.
func parseAttributes(buf []byte) ([]Attribute, error) {
	var attrs []Attribute
	off := 0
	for off < len(buf) {
		if off+2 > len(buf) {
			return nil, ErrMalformed
		}
		t := buf[off]
		l := int(buf[off+1])
		if l < 2 || off+l > len(buf) {
			return nil, ErrMalformed
		}
		value := buf[off+2 : off+l]
		off += l

		if t == byte(raddict.VendorSpecific) {
			vsas, err := parseVSA(value)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, vsas...)
			continue
		}
		attrs = append(attrs, Attribute{Type: t, Value: append([]byte(nil), value...)})
	}
	return attrs, nil
}

// parseVSA decodes a type-26 attribute value into one Attribute per vendor
// sub-attribute, per RFC 2865 §5.26: vendor_id (4 bytes, big-endian) || vendor_type (1) ||
// vendor_length (1) || vendor_data. vendor_length counts the type and
// length bytes plus the data, so vendor_data is vendor_length-2 bytes.
func parseVSA(value []byte) ([]Attribute, error) {
	if len(value) < 6 {
		return nil, ErrMalformed
	}
	vendorID := binary.BigEndian.Uint32(value[0:4])
	rest := value[4:]

	var out []Attribute
	off := 0
	for off < len(rest) {
		if off+2 > len(rest) {
			return nil, ErrMalformed
		}
		vt := rest[off]
		vl := int(rest[off+1])
		if vl < 2 || off+vl > len(rest) {
			return nil, ErrMalformed
		}
		vdata := rest[off+2 : off+vl]
		out = append(out, Attribute{Type: vt, VendorID: vendorID, Value: append([]byte(nil), vdata...)})
		off += vl
	}
	return out, nil
}

// encodeAttributes serializes attrs back to wire form, re-wrapping VSAs into
// type-26 containers. Plain attributes whose value would not fit within the
// 255-byte length limit are truncated to 253 value bytes per §4.1; this
// codec never needs to split an attribute across two instances because
// every attribute this server emits is well under that limit.
func encodeAttributes(attrs []Attribute) []byte {
	var out []byte
	// Group consecutive VSAs that share a vendor ID into a single type-26
	// wrapper, matching how a NAS and this server both pack multiple
	// Microsoft sub-attributes into one Vendor-Specific attribute when
	// possible. Attributes are otherwise emitted in order.
	i := 0
	for i < len(attrs) {
		a := attrs[i]
		if !a.IsVSA() {
			out = append(out, encodePlain(a.Type, a.Value)...)
			i++
			continue
		}
		vendorID := a.VendorID
		var vsaBody []byte
		for i < len(attrs) && attrs[i].IsVSA() && attrs[i].VendorID == vendorID {
			v := attrs[i].Value
			if len(v) > 253 {
				v = v[:253]
			}
			vsaBody = append(vsaBody, attrs[i].Type, byte(len(v)+2))
			vsaBody = append(vsaBody, v...)
			i++
		}
		var vendorHdr [4]byte
		binary.BigEndian.PutUint32(vendorHdr[:], vendorID)
		value := append(append([]byte(nil), vendorHdr[:]...), vsaBody...)
		out = append(out, encodePlain(byte(raddict.VendorSpecific), value)...)
	}
	return out
}

func encodePlain(t byte, value []byte) []byte {
	if len(value) > 253 {
		value = value[:253]
	}
	buf := make([]byte, 2+len(value))
	buf[0] = t
	buf[1] = byte(len(value) + 2)
	copy(buf[2:], value)
	return buf
}
