package radiusserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/coreradius/radiusd/config"
	"github.com/coreradius/radiusd/handler"
	"github.com/coreradius/radiusd/identity"
	"github.com/coreradius/radiusd/instrumentation"
	"github.com/coreradius/radiusd/raddict"
	"github.com/coreradius/radiusd/radius"
	"github.com/coreradius/radiusd/radius/mschap"
	"github.com/coreradius/radiusd/secretstore"
	"github.com/coreradius/radiusd/session"
	"github.com/prometheus/client_golang/prometheus"
)

func TestServerPAPAccessAccept(t *testing.T) {
	const secret = "testing123"

	repo := identity.NewFakeRepository()
	repo.Subscribers["bob"] = identity.Subscriber{ID: 1, Username: "bob", PlainPassword: "hello", IsEnabled: true}
	h := handler.New(repo, session.NewInMemoryRepository())

	secrets := secretstore.NewTable()
	ipnet, err := secretstore.ParseCIDR("127.0.0.1/32")
	if err != nil {
		t.Fatalf("ParseCIDR: %v", err)
	}
	secrets.Swap([]secretstore.Record{{Secret: secret, Subnets: []*net.IPNet{ipnet}}})

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	conn.Close()
	addr := conn.LocalAddr().String()

	srv := &Server{
		Name:        "auth",
		Addr:        addr,
		Secrets:     secrets,
		Handler:     h,
		Metrics:     instrumentation.NewMetrics(prometheus.NewRegistry()),
		MaxInflight: 16,
		Logger:      config.GetLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	req := &radius.Packet{Code: radius.CodeAccessRequest, Identifier: 42}
	req.Authenticator = [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	req.Add(byte(raddict.UserName), []byte("bob"))
	req.Add(byte(raddict.UserPassword), mschap.EncryptPAP("hello", req.Authenticator, secret))

	raw, err := req.Encode(secret)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := client.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	respBuf := make([]byte, radius.MaxPacketSize)
	n, err := client.Read(respBuf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}

	reply, err := radius.ParsePacket(respBuf[:n])
	if err != nil {
		t.Fatalf("parse reply: %v", err)
	}
	if reply.Code != radius.CodeAccessAccept {
		t.Fatalf("expected Access-Accept, got code %d", reply.Code)
	}
	if !radius.ValidateResponseAuthenticator(respBuf[:n], req.Authenticator, secret) {
		t.Fatalf("response authenticator did not validate")
	}
}
