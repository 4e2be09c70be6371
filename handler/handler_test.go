package handler

import (
	"context"
	"crypto/md5"
	"testing"

	"github.com/coreradius/radiusd/identity"
	"github.com/coreradius/radiusd/raddict"
	"github.com/coreradius/radiusd/radius"
	"github.com/coreradius/radiusd/radius/mschap"
	"github.com/coreradius/radiusd/session"
)

const testSecret = "xyzzy5461"

func newTestHandler() (*Handler, *identity.FakeRepository, *session.InMemoryRepository) {
	repo := identity.NewFakeRepository()
	repo.Subscribers["bob"] = identity.Subscriber{ID: 1, Username: "bob", PlainPassword: "arctangent", IsEnabled: true}
	repo.Subscribers["disabled"] = identity.Subscriber{ID: 2, Username: "disabled", PlainPassword: "whatever", IsEnabled: false}
	sessions := session.NewInMemoryRepository()
	return New(repo, sessions), repo, sessions
}

func TestHandleAccessRequestPAPSuccess(t *testing.T) {
	h, _, _ := newTestHandler()

	req := &radius.Packet{Code: radius.CodeAccessRequest, Identifier: 7}
	req.Authenticator = [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	req.Add(byte(raddict.UserName), []byte("bob"))
	enc := mschap.EncryptPAP("arctangent", req.Authenticator, testSecret)
	req.Add(byte(raddict.UserPassword), enc)

	reply := h.HandleAccessRequest(context.Background(), req, testSecret)
	if reply.Code != radius.CodeAccessAccept {
		t.Fatalf("expected Access-Accept, got code %d", reply.Code)
	}
}

func TestHandleAccessRequestPAPWrongPassword(t *testing.T) {
	h, _, _ := newTestHandler()

	req := &radius.Packet{Code: radius.CodeAccessRequest, Identifier: 7}
	req.Authenticator = [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	req.Add(byte(raddict.UserName), []byte("bob"))
	enc := mschap.EncryptPAP("wrongpass", req.Authenticator, testSecret)
	req.Add(byte(raddict.UserPassword), enc)

	reply := h.HandleAccessRequest(context.Background(), req, testSecret)
	if reply.Code != radius.CodeAccessReject {
		t.Fatalf("expected Access-Reject, got code %d", reply.Code)
	}
}

func TestHandleAccessRequestUnknownUser(t *testing.T) {
	h, _, _ := newTestHandler()

	req := &radius.Packet{Code: radius.CodeAccessRequest, Identifier: 7}
	req.Add(byte(raddict.UserName), []byte("ghost"))
	enc := mschap.EncryptPAP("whatever", req.Authenticator, testSecret)
	req.Add(byte(raddict.UserPassword), enc)

	reply := h.HandleAccessRequest(context.Background(), req, testSecret)
	if reply.Code != radius.CodeAccessReject {
		t.Fatalf("expected Access-Reject for unknown user, got code %d", reply.Code)
	}
}

func TestHandleAccessRequestDisabledAccount(t *testing.T) {
	h, _, _ := newTestHandler()

	req := &radius.Packet{Code: radius.CodeAccessRequest, Identifier: 7}
	req.Add(byte(raddict.UserName), []byte("disabled"))
	enc := mschap.EncryptPAP("whatever", req.Authenticator, testSecret)
	req.Add(byte(raddict.UserPassword), enc)

	reply := h.HandleAccessRequest(context.Background(), req, testSecret)
	if reply.Code != radius.CodeAccessReject {
		t.Fatalf("expected Access-Reject for disabled account, got code %d", reply.Code)
	}
}

func TestHandleAccessRequestCHAPSuccess(t *testing.T) {
	h, _, _ := newTestHandler()

	req := &radius.Packet{Code: radius.CodeAccessRequest, Identifier: 9}
	req.Authenticator = [16]byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	req.Add(byte(raddict.UserName), []byte("bob"))

	chapID := byte(1)
	md5sum := chapDigest(chapID, "arctangent", req.Authenticator[:])
	req.Add(byte(raddict.CHAPPassword), append([]byte{chapID}, md5sum...))

	reply := h.HandleAccessRequest(context.Background(), req, testSecret)
	if reply.Code != radius.CodeAccessAccept {
		t.Fatalf("expected Access-Accept, got code %d", reply.Code)
	}
}

func TestHandleAccessRequestUnsupportedMethod(t *testing.T) {
	h, _, _ := newTestHandler()

	req := &radius.Packet{Code: radius.CodeAccessRequest, Identifier: 7}
	req.Add(byte(raddict.UserName), []byte("bob"))
	req.Add(byte(raddict.EAPMessage), []byte{1, 2, 3})

	reply := h.HandleAccessRequest(context.Background(), req, testSecret)
	if reply.Code != radius.CodeAccessReject {
		t.Fatalf("expected Access-Reject for EAP, got code %d", reply.Code)
	}
}

func TestHandleAccountingStartThenStop(t *testing.T) {
	h, _, sessions := newTestHandler()

	start := &radius.Packet{Code: radius.CodeAccountingRequest, Identifier: 3}
	start.Add(byte(raddict.AcctSessionID), []byte("sess-1"))
	start.Add(byte(raddict.UserName), []byte("bob"))
	start.Add(byte(raddict.AcctStatusType), uint32Bytes(raddict.AcctStatusStart))

	reply := h.HandleAccountingRequest(context.Background(), start)
	if reply.Code != radius.CodeAccountingResponse {
		t.Fatalf("expected Accounting-Response, got code %d", reply.Code)
	}
	if _, ok := sessions.Get("sess-1"); !ok {
		t.Fatalf("expected session to be inserted")
	}

	stop := &radius.Packet{Code: radius.CodeAccountingRequest, Identifier: 4}
	stop.Add(byte(raddict.AcctSessionID), []byte("sess-1"))
	stop.Add(byte(raddict.AcctStatusType), uint32Bytes(raddict.AcctStatusStop))
	stop.Add(byte(raddict.AcctSessionTime), uint32Bytes(120))

	h.HandleAccountingRequest(context.Background(), stop)
	got, _ := sessions.Get("sess-1")
	if got.StopTime == nil {
		t.Fatalf("expected stop time to be set")
	}
	if got.SessionTime != 120 {
		t.Fatalf("expected session time 120, got %d", got.SessionTime)
	}
}

func TestHandleAccessRequestMSCHAPv2Success(t *testing.T) {
	h, _, _ := newTestHandler()

	req := &radius.Packet{Code: radius.CodeAccessRequest, Identifier: 11}
	req.Authenticator = [16]byte{0x5B, 0x5D, 0x7C, 0x7D, 0x7B, 0x3F, 0x2F, 0x3E, 0x3C, 0x2C, 0x60, 0x21, 0x32, 0x26, 0x26, 0x28}
	req.Add(byte(raddict.UserName), []byte("bob"))

	var peerChallenge [16]byte
	copy(peerChallenge[:], []byte{0x21, 0x40, 0x23, 0x24, 0x25, 0x5E, 0x26, 0x2A, 0x28, 0x29, 0x5F, 0x2B, 0x3A, 0x33, 0x7C, 0x7E})

	challengeHash := mschap.ChallengeHash(peerChallenge, req.Authenticator, "bob")
	var block [8]byte
	copy(block[:], challengeHash[:])
	ntResponse := mschap.ChallengeResponse(block, mschap.NTHash("arctangent"))

	value := make([]byte, 50)
	value[0] = 1 // ident
	value[1] = 0 // flags
	copy(value[2:18], peerChallenge[:])
	copy(value[26:50], ntResponse[:])
	req.AddVSA(raddict.MicrosoftVendorID, raddict.MSCHAP2Response, value)

	reply := h.HandleAccessRequest(context.Background(), req, testSecret)
	if reply.Code != radius.CodeAccessAccept {
		t.Fatalf("expected Access-Accept, got code %d", reply.Code)
	}
	if _, ok := reply.GetVSA(raddict.MicrosoftVendorID, raddict.MSCHAP2Success); !ok {
		t.Fatalf("expected MS-CHAP2-Success VSA on accept")
	}
	if _, ok := reply.GetVSA(raddict.MicrosoftVendorID, raddict.MSMPPESendKey); !ok {
		t.Fatalf("expected MS-MPPE-Send-Key VSA on accept")
	}
	if _, ok := reply.GetVSA(raddict.MicrosoftVendorID, raddict.MSMPPERecvKey); !ok {
		t.Fatalf("expected MS-MPPE-Recv-Key VSA on accept")
	}
	if _, ok := reply.Get(byte(raddict.MessageAuthenticator)); !ok {
		t.Fatalf("expected Message-Authenticator placeholder on accept")
	}

	if _, err := reply.EncodeReply(testSecret, req.Authenticator); err != nil {
		t.Fatalf("EncodeReply failed: %v", err)
	}
}

func uint32Bytes(v int) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// chapDigest mirrors RFC 1994's MD5(ident || password || challenge), used
// here only to build a test fixture, not production code.
func chapDigest(ident byte, password string, challenge []byte) []byte {
	h := md5.New()
	h.Write([]byte{ident})
	h.Write([]byte(password))
	h.Write(challenge)
	return h.Sum(nil)
}
