package handler

import (
	"context"

	"github.com/coreradius/radiusd/identity"
	"github.com/coreradius/radiusd/raddict"
	"github.com/coreradius/radiusd/radius"
	"github.com/coreradius/radiusd/session"
)

// Handler wires the identity and session repositories into the
// authentication/accounting pipeline. One Handler is shared across all
// worker goroutines; it holds no per-request state.
type Handler struct {
	Identity identity.Repository
	Sessions session.Repository
}

// New builds a Handler over the given repositories.
func New(identityRepo identity.Repository, sessionRepo session.Repository) *Handler {
	return &Handler{Identity: identityRepo, Sessions: sessionRepo}
}

// Handle classifies a validated, secret-resolved packet by RADIUS code and
// routes it per §4.9: Access-Request to HandleAccessRequest, Accounting-Request
// to HandleAccountingRequest. Other codes are the caller's responsibility
// to have already filtered; Handle returns nil for anything else. secret is
// the shared secret the server loop resolved for this NAS — PAP decryption
// and MPPE key wire-encryption both need it directly, not just the codec.
func (h *Handler) Handle(ctx context.Context, p *radius.Packet, secret string) *radius.Packet {
	switch p.Code {
	case radius.CodeAccessRequest:
		return h.HandleAccessRequest(ctx, p, secret)
	case radius.CodeAccountingRequest:
		return h.HandleAccountingRequest(ctx, p)
	default:
		return nil
	}
}

// addReplyMessage attaches a Reply-Message attribute with a short reason
// string, per §7.
func addReplyMessage(p *radius.Packet, message string) {
	p.Add(byte(raddict.ReplyMessage), []byte(message))
}
