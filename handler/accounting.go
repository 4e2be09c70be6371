package handler

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"github.com/coreradius/radiusd/config"
	"github.com/coreradius/radiusd/raddict"
	"github.com/coreradius/radiusd/radius"
	"github.com/coreradius/radiusd/session"
)

// HandleAccountingRequest routes by Acct-Status-Type per §4.10: Start and
// Accounting-On/Off insert or are ignored, Interim-Update and Stop update
// the existing session. The Accounting-Response is always sent with no
// attributes, even when the session store write fails — accounting must
// not block the NAS, failures are only logged.
func (h *Handler) HandleAccountingRequest(ctx context.Context, p *radius.Packet) *radius.Packet {
	sessionID, _ := p.GetString(byte(raddict.AcctSessionID))
	statusType, _ := getUint32(p, raddict.AcctStatusType)

	switch statusType {
	case raddict.AcctStatusStart:
		h.insertSession(sessionID, p)
	case raddict.AcctStatusInterimUpdate, raddict.AcctStatusStop:
		h.updateSession(sessionID, p, statusType == raddict.AcctStatusStop)
	case raddict.AcctStatusAccountingOn, raddict.AcctStatusAccountingOff:
		// Logged only; no per-session state to record (§4.10 Non-goal:
		// bulk session teardown on these events is out of scope).
		nasIP := nasIPString(p)
		config.GetLogger().Infow("accounting on/off", "status_type", statusType, "nas_ip", nasIP)
	}

	return p.NewReply(radius.CodeAccountingResponse)
}

func (h *Handler) insertSession(sessionID string, p *radius.Packet) {
	username, _ := p.GetString(byte(raddict.UserName))
	nasIP := nasIPString(p)
	nasPort, _ := getUint32(p, raddict.NASPort)

	s := session.Session{
		SessionID: sessionID,
		Username:  username,
		NASIP:     nasIP,
		NASPort:   nasPort,
		StartTime: time.Now(),
	}
	if err := h.Sessions.Insert(s); err != nil {
		config.GetLogger().Warnw("session insert failed", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) updateSession(sessionID string, p *radius.Packet, isStop bool) {
	m := session.Mutation{}
	if v, ok := getUint64(p, raddict.AcctInputOctets); ok {
		m.InputOctets = &v
	}
	if v, ok := getUint64(p, raddict.AcctOutputOctets); ok {
		m.OutputOctets = &v
	}
	if v, ok := getUint64(p, raddict.AcctInputPackets); ok {
		m.InputPackets = &v
	}
	if v, ok := getUint64(p, raddict.AcctOutputPackets); ok {
		m.OutputPackets = &v
	}
	if v, ok := getUint64(p, raddict.AcctSessionTime); ok {
		m.SessionTime = &v
	}
	if isStop {
		now := time.Now()
		m.StopTime = &now
		if cause, ok := p.GetString(byte(raddict.AcctTerminateCause)); ok {
			m.TerminationCause = &cause
		} else {
			empty := ""
			m.TerminationCause = &empty
		}
	}

	if err := h.Sessions.Update(sessionID, m); err != nil {
		config.GetLogger().Warnw("session update failed", "session_id", sessionID, "error", err)
	}
}

// nasIPString renders NAS-IP-Address (a 4-byte address on the wire) in
// dotted form, or "" if the attribute is absent or not 4 bytes long.
func nasIPString(p *radius.Packet) string {
	a, ok := p.Get(byte(raddict.NASIPAddress))
	if !ok || len(a.Value) != 4 {
		return ""
	}
	return net.IP(a.Value).String()
}

func getUint32(p *radius.Packet, t raddict.AttrType) (uint32, bool) {
	a, ok := p.Get(byte(t))
	if !ok || len(a.Value) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(a.Value), true
}

func getUint64(p *radius.Packet, t raddict.AttrType) (uint64, bool) {
	v, ok := getUint32(p, t)
	return uint64(v), ok
}
