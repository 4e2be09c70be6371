package handler

import (
	"context"

	"github.com/coreradius/radiusd/config"
	"github.com/coreradius/radiusd/identity"
	"github.com/coreradius/radiusd/raddict"
	"github.com/coreradius/radiusd/radius"
	"github.com/coreradius/radiusd/radius/mschap"
)

// HandleAccessRequest verifies credentials per §4.4–§4.8 and returns the
// Access-Accept or Access-Reject reply. The returned packet always has
// Identifier copied from p and no Authenticator set — EncodeReply fills
// that in from the caller's request authenticator and secret.
func (h *Handler) HandleAccessRequest(ctx context.Context, p *radius.Packet, secret string) *radius.Packet {
	username, _ := p.GetString(byte(raddict.UserName))

	method := DetectMethod(p)
	if method == MethodEAP || method == MethodUnknown {
		return reject(p, newAuthError(ErrUnsupportedMethod, replyMessageFor(ErrUnsupportedMethod)))
	}

	sub, authErr := h.lookupSubscriber(ctx, username)
	if authErr != nil {
		return reject(p, authErr)
	}

	switch method {
	case MethodPAP:
		return h.handlePAP(p, sub, secret)
	case MethodCHAP:
		return h.handleCHAP(p, sub)
	case MethodMSCHAP:
		return h.handleMSCHAP(p, sub)
	case MethodMSCHAPv2:
		return h.handleMSCHAPv2(p, sub, secret)
	default:
		return reject(p, newAuthError(ErrUnsupportedMethod, replyMessageFor(ErrUnsupportedMethod)))
	}
}

func (h *Handler) lookupSubscriber(ctx context.Context, username string) (identity.Subscriber, *AuthError) {
	sub, err := h.Identity.Lookup(ctx, username)
	if err == identity.ErrNotFound {
		return identity.Subscriber{}, newAuthError(ErrUserNotFound, replyMessageFor(ErrUserNotFound))
	}
	if err != nil {
		return identity.Subscriber{}, newAuthError(ErrIdentityRepo, replyMessageFor(ErrIdentityRepo))
	}
	if !sub.IsEnabled {
		return identity.Subscriber{}, newAuthError(ErrAccountDisabled, replyMessageFor(ErrAccountDisabled))
	}
	return sub, nil
}

func accept(p *radius.Packet) *radius.Packet {
	return p.NewReply(radius.CodeAccessAccept)
}

func reject(p *radius.Packet, authErr *AuthError) *radius.Packet {
	reply := p.NewReply(radius.CodeAccessReject)
	addReplyMessage(reply, authErr.Message)
	return reply
}

func (h *Handler) handlePAP(p *radius.Packet, sub identity.Subscriber, secret string) *radius.Packet {
	attr, ok := p.Get(byte(raddict.UserPassword))
	if !ok {
		return reject(p, newAuthError(ErrMalformed, "Malformed PAP request"))
	}
	if !mschap.VerifyPAP(attr.Value, p.Authenticator, secret, sub.PlainPassword) {
		return reject(p, newAuthError(ErrInvalidPassword, replyMessageFor(ErrInvalidPassword)))
	}
	return accept(p)
}

func (h *Handler) handleCHAP(p *radius.Packet, sub identity.Subscriber) *radius.Packet {
	chapPassword, ok := p.Get(byte(raddict.CHAPPassword))
	if !ok {
		return reject(p, newAuthError(ErrMalformed, "Malformed CHAP request"))
	}
	challenge := p.Authenticator[:]
	if chal, ok := p.Get(byte(raddict.CHAPChallenge)); ok {
		challenge = chal.Value
	}
	if !mschap.VerifyCHAP(chapPassword.Value, challenge, sub.PlainPassword) {
		return reject(p, newAuthError(ErrInvalidPassword, replyMessageFor(ErrInvalidPassword)))
	}
	return accept(p)
}

func (h *Handler) handleMSCHAP(p *radius.Packet, sub identity.Subscriber) *radius.Packet {
	challengeAttr, ok := p.GetVSA(raddict.MicrosoftVendorID, raddict.MSCHAPChallenge)
	if !ok || len(challengeAttr.Value) < 8 {
		return reject(p, newAuthError(ErrMalformed, "Missing MS-CHAP-Challenge"))
	}
	responseAttr, ok := p.GetVSA(raddict.MicrosoftVendorID, raddict.MSCHAPResponse)
	if !ok || len(responseAttr.Value) < 25 {
		return reject(p, newAuthError(ErrMalformed, "Malformed MS-CHAP-Response"))
	}

	var challenge [8]byte
	copy(challenge[:], challengeAttr.Value[len(challengeAttr.Value)-8:])

	var ntResponse [24]byte
	copy(ntResponse[:], responseAttr.Value[len(responseAttr.Value)-24:])

	if !mschap.VerifyMSCHAP1(challenge, ntResponse, sub.PlainPassword) {
		return reject(p, newAuthError(ErrInvalidPassword, replyMessageFor(ErrInvalidPassword)))
	}
	return accept(p)
}

func (h *Handler) handleMSCHAPv2(p *radius.Packet, sub identity.Subscriber, secret string) *radius.Packet {
	username, _ := p.GetString(byte(raddict.UserName))

	responseAttr, ok := p.GetVSA(raddict.MicrosoftVendorID, raddict.MSCHAP2Response)
	if !ok || len(responseAttr.Value) < 50 {
		return reject(p, newAuthError(ErrMalformed, "Malformed MS-CHAP2-Response"))
	}

	// ident(1) || flags(1) || peer_challenge(16) || reserved(8) || nt_response(24)
	v := responseAttr.Value
	ident := v[0]
	var peerChallenge [16]byte
	copy(peerChallenge[:], v[2:18])
	var ntResponse [24]byte
	copy(ntResponse[:], v[26:50])

	authChallenge := p.Authenticator
	if chal, ok := p.GetVSA(raddict.MicrosoftVendorID, raddict.MSCHAPChallenge); ok && len(chal.Value) >= 16 {
		copy(authChallenge[:], chal.Value[len(chal.Value)-16:])
	}

	challengeHash := mschap.ChallengeHash(peerChallenge, authChallenge, username)
	if !mschap.VerifyMSCHAP2(challengeHash, ntResponse, sub.PlainPassword) {
		return reject(p, newAuthError(ErrInvalidPassword, replyMessageFor(ErrInvalidPassword)))
	}

	reply := accept(p)
	if err := buildMSCHAPv2SuccessReply(reply, ident, sub.PlainPassword, ntResponse, challengeHash, secret, p.Authenticator); err != nil {
		config.GetLogger().Warnw("could not build MPPE keys", "user", username, "error", err)
	}
	return reply
}
