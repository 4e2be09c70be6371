package mschap

import "testing"

func TestMSCHAP1RoundTrip(t *testing.T) {
	challenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	password := "s3cret"

	hash := NTHash(password)
	expected := ChallengeResponse(challenge, hash)

	if !VerifyMSCHAP1(challenge, expected, password) {
		t.Fatalf("expected MS-CHAP verification to succeed")
	}
	if VerifyMSCHAP1(challenge, expected, "wrong") {
		t.Fatalf("expected MS-CHAP verification to fail with wrong password")
	}
}
