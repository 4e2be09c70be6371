// Package radiusserver implements the UDP listener loops described in
// §4.9: one socket per port, a single receive task, bounded-concurrency
// worker dispatch. It is grounded on radiusserver/radiusserver.go's
// eventLoop shape (context-cancellable ReadFrom loop, per-packet goroutine,
// shared write socket) but replaces the teacher's router-channel indirection
// with a direct call into handler.Handler, and replaces the teacher's
// static single-secret-per-client config with secretstore.Table's
// longest-prefix CIDR resolution.
package radiusserver

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/coreradius/radiusd/handler"
	"github.com/coreradius/radiusd/instrumentation"
	"github.com/coreradius/radiusd/radius"
	"github.com/coreradius/radiusd/secretstore"
	"go.uber.org/zap"
)

// Server is one UDP listener (auth on 1812 or accounting on 1813).
type Server struct {
	Name        string // "auth" or "acct", used only as a metric/log label
	Addr        string
	Secrets     *secretstore.Table
	Handler     *handler.Handler
	Metrics     *instrumentation.Metrics
	MaxInflight int
	Logger      *zap.SugaredLogger

	sem chan struct{}
}

// Run opens the socket and serves until ctx is cancelled. Cancellation
// closes the socket and Run returns straight away; it does not wait for
// in-flight handlers, whose replies then fail to send and are logged.
func (s *Server) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return fmt.Errorf("%s: listen on %s: %w", s.Name, s.Addr, err)
	}

	maxInflight := s.MaxInflight
	if maxInflight <= 0 {
		maxInflight = 1024
	}
	s.sem = make(chan struct{}, maxInflight)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.Logger.Infof("%s listener bound to %s", s.Name, s.Addr)
	return s.receiveLoop(ctx, conn)
}

func (s *Server) receiveLoop(ctx context.Context, conn net.PacketConn) error {
	buf := make([]byte, radius.MaxPacketSize)

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				s.Logger.Infof("%s listener on %s shutting down", s.Name, conn.LocalAddr())
				return nil
			}
			return fmt.Errorf("%s: read: %w", s.Name, err)
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		select {
		case s.sem <- struct{}{}:
			go s.handleDatagram(conn, addr, raw)
		default:
			s.Metrics.RequestsDropped.WithLabelValues(s.Name, instrumentation.ReasonQueueFull).Inc()
			s.Logger.Warnw("dropping datagram, in-flight limit reached", "listener", s.Name, "from", addr)
		}
	}
}

func (s *Server) handleDatagram(conn net.PacketConn, addr net.Addr, raw []byte) {
	defer func() { <-s.sem }()

	s.Metrics.InFlightRequests.Inc()
	defer s.Metrics.InFlightRequests.Dec()

	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		s.drop(addr, "", instrumentation.ReasonMalformed, errors.New("non-UDP source address"))
		return
	}

	secret, found := s.Secrets.Resolve(udpAddr.IP)
	if !found {
		s.drop(addr, "", instrumentation.ReasonNoSecret, fmt.Errorf("no shared secret for %s", udpAddr.IP))
		return
	}

	if radius.HasMessageAuthenticator(raw) && !radius.VerifyMessageAuthenticator(raw, secret) {
		s.drop(addr, "", instrumentation.ReasonBadMessageAuth, errors.New("message-authenticator mismatch"))
		return
	}

	p, err := radius.ParsePacket(raw)
	if err != nil {
		s.drop(addr, "", instrumentation.ReasonMalformed, err)
		return
	}

	code := fmt.Sprintf("%d", p.Code)
	s.Metrics.RequestsReceived.WithLabelValues(s.Name, code).Inc()

	reply := s.Handler.Handle(context.Background(), p, secret)
	if reply == nil {
		s.Logger.Debugw("no reply generated", "listener", s.Name, "code", p.Code, "from", addr)
		return
	}

	out, err := reply.EncodeReply(secret, p.Authenticator)
	if err != nil {
		s.drop(addr, code, instrumentation.ReasonEncodeFailed, err)
		return
	}

	if _, err := conn.WriteTo(out, addr); err != nil {
		s.Logger.Warnw("write failed", "listener", s.Name, "to", addr, "error", err)
		return
	}
	s.Metrics.ResponsesSent.WithLabelValues(s.Name, fmt.Sprintf("%d", reply.Code)).Inc()
}

func (s *Server) drop(addr net.Addr, code, reason string, err error) {
	s.Metrics.RequestsDropped.WithLabelValues(s.Name, reason).Inc()
	s.Logger.Warnw("dropping datagram", "listener", s.Name, "from", addr, "code", code, "reason", reason, "error", err)
}
