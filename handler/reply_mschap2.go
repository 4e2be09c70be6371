package handler

import (
	"fmt"

	"github.com/coreradius/radiusd/raddict"
	"github.com/coreradius/radiusd/radius"
	"github.com/coreradius/radiusd/radius/mschap"
)

// MPPE policy/type values §4.8 fixes: encryption required, 40/128-bit RC4.
const (
	mppeEncryptionPolicyRequired = 1
	mppeEncryptionTypesBoth      = 6
)

// buildMSCHAPv2SuccessReply attaches the five VSAs §4.8 requires on an
// MS-CHAPv2 Access-Accept: MS-CHAP2-Success, the two MPPE policy/type
// attributes, the two MPPE keys, and finally a Message-Authenticator
// placeholder so EncodeReply computes it over the complete attribute set.
func buildMSCHAPv2SuccessReply(reply *radius.Packet, ident byte, storedPassword string, ntResponse [24]byte, challengeHash [8]byte, secret string, requestAuthenticator [16]byte) error {
	authResponse := mschap.AuthenticatorResponse(storedPassword, ntResponse, challengeHash)
	successValue := append([]byte{ident}, []byte(fmt.Sprintf("S=%X", authResponse[:]))...)
	reply.AddVSA(raddict.MicrosoftVendorID, raddict.MSCHAP2Success, successValue)

	reply.AddVSA(raddict.MicrosoftVendorID, raddict.MSMPPEEncryptionPolicy, encodeUint32(mppeEncryptionPolicyRequired))
	reply.AddVSA(raddict.MicrosoftVendorID, raddict.MSMPPEEncryptionTypes, encodeUint32(mppeEncryptionTypesBoth))

	masterKey := mschap.MPPEMasterKey(storedPassword, ntResponse)
	sendKey := mschap.MPPESendKey(masterKey)
	recvKey := mschap.MPPERecvKey(masterKey)

	encSend, err := mschap.EncryptMPPEKey(sendKey, secret, requestAuthenticator)
	if err != nil {
		return err
	}
	encRecv, err := mschap.EncryptMPPEKey(recvKey, secret, requestAuthenticator)
	if err != nil {
		return err
	}
	reply.AddVSA(raddict.MicrosoftVendorID, raddict.MSMPPESendKey, encSend)
	reply.AddVSA(raddict.MicrosoftVendorID, raddict.MSMPPERecvKey, encRecv)

	reply.Add(byte(raddict.MessageAuthenticator), make([]byte, 16))
	return nil
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
