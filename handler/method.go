package handler

import (
	"github.com/coreradius/radiusd/raddict"
	"github.com/coreradius/radiusd/radius"
)

// Method is the detected authentication method for an Access-Request.
type Method int

const (
	MethodUnknown Method = iota
	MethodEAP
	MethodMSCHAPv2
	MethodMSCHAP
	MethodPAP
	MethodCHAP
)

// DetectMethod classifies a parsed Access-Request in the fixed priority
// order of §4.4. MS-CHAPv2 is checked before MS-CHAP because both
// challenge VSAs share vendor_type 11 — only the Response attribute's
// vendor_type (25 vs 1) disambiguates, and some clients send both
// challenge VSAs, so the v2 Response must win the check first.
func DetectMethod(p *radius.Packet) Method {
	if _, ok := p.Get(byte(raddict.EAPMessage)); ok {
		return MethodEAP
	}
	if _, ok := p.GetVSA(raddict.MicrosoftVendorID, raddict.MSCHAP2Response); ok {
		return MethodMSCHAPv2
	}
	if _, ok := p.GetVSA(raddict.MicrosoftVendorID, raddict.MSCHAPResponse); ok {
		return MethodMSCHAP
	}
	if _, ok := p.Get(byte(raddict.UserPassword)); ok {
		return MethodPAP
	}
	if _, ok := p.Get(byte(raddict.CHAPPassword)); ok {
		return MethodCHAP
	}
	return MethodUnknown
}
