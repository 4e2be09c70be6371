// Package session is the RADIUS core's outbound dependency on the session
// store: the accounting handler's Insert/Update contract described in §3
// and §6. Repository has two implementations: BigQueryRepository for
// production, and InMemoryRepository for tests and for deployments with no
// session store configured.
package session

import "time"

// Session mirrors §3's Session entity exactly.
type Session struct {
	SessionID        string
	Username         string
	NASIP            string
	NASPort          uint32
	StartTime        time.Time
	StopTime         *time.Time
	InputOctets      uint64
	OutputOctets     uint64
	InputPackets     uint64
	OutputPackets    uint64
	SessionTime      uint64
	TerminationCause *string
}

// Mutation is applied to an existing Session by Update; fields left at
// their zero value are left untouched by Interim-Update (§4.10), except
// TerminationCause/StopTime which Stop always sets.
type Mutation struct {
	InputOctets      *uint64
	OutputOctets     *uint64
	InputPackets     *uint64
	OutputPackets    *uint64
	SessionTime      *uint64
	StopTime         *time.Time
	TerminationCause *string
}

// Repository is the session-store contract: insert on Accounting-Start,
// update on Interim-Update/Stop. No read path is required by the core (§6).
type Repository interface {
	Insert(s Session) error
	Update(sessionID string, m Mutation) error
}
