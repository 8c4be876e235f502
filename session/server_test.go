// The MIT License (MIT)
//
// Copyright (c) 2024 flowio contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package session

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/protocol"
	"github.com/flowio/flowio/reactor"
	"github.com/flowio/flowio/socket"
	"github.com/flowio/flowio/tlsio"
)

func loopbackEphemeral() endpoint.Endpoint {
	return endpoint.IPv4Endpoint(net.IPv4(127, 0, 0, 1), 0)
}

func runUntil(t *testing.T, r *reactor.Reactor, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := r.Run(reactor.RunDefault); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if done() {
			return
		}
	}
	t.Fatal("condition never became true within 1s")
}

func echoProtoFactory(received chan<- []byte) func(*Session) protocol.Protocol {
	return func(sess *Session) protocol.Protocol {
		return protocol.NewLengthPrefixed(protocol.Header4, func(msg []byte) {
			received <- append([]byte(nil), msg...)
		})
	}
}

func TestServerAcceptsAndDeliversMessage(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	received := make(chan []byte, 1)
	opened := make(chan *Session, 1)

	srv, err := Listen(r, loopbackEphemeral(), 0, Handler{
		NewProtocol: echoProtoFactory(received),
		OnSession:   func(s *Session) { opened <- s },
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	local, err := srv.ln.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	client, err := socket.DialTCP(local)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer client.Close()

	frame := protocol.EncodeLengthPrefixed(protocol.Header4, []byte("hi"))
	if _, _, err := client.Write(frame); err != nil {
		t.Fatalf("client Write: %v", err)
	}

	runUntil(t, r, func() bool {
		select {
		case <-opened:
			return true
		default:
			return false
		}
	})

	var got []byte
	runUntil(t, r, func() bool {
		select {
		case got = <-received:
			return true
		default:
			return false
		}
	})
	if string(got) != "hi" {
		t.Fatalf("received %q, want %q", got, "hi")
	}
	if srv.Backlog() != 1 {
		t.Fatalf("Backlog() = %d, want 1", srv.Backlog())
	}
	if srv.Sessions().Len() != 1 {
		t.Fatalf("Sessions().Len() = %d, want 1", srv.Sessions().Len())
	}
}

func TestServerSnappyRoundTripsCompressedMessages(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	serverReceived := make(chan []byte, 1)
	srv, err := Listen(r, loopbackEphemeral(), 0, Handler{
		NewProtocol: func(sess *Session) protocol.Protocol {
			return protocol.NewLengthPrefixed(protocol.Header4, func(msg []byte) {
				serverReceived <- append([]byte(nil), msg...)
				sess.Publish(protocol.EncodeLengthPrefixed(protocol.Header4, []byte("pong")))
			})
		},
	}, WithSnappy())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	local, err := srv.ln.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	clientReceived := make(chan []byte, 1)
	sess, err := Connect(r, local, func(*Session) protocol.Protocol {
		return protocol.NewLengthPrefixed(protocol.Header4, func(msg []byte) {
			clientReceived <- append([]byte(nil), msg...)
		})
	}, nil, nil, WithClientSnappy())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	sess.Publish(protocol.EncodeLengthPrefixed(protocol.Header4, []byte("ping")))

	var got []byte
	runUntil(t, r, func() bool {
		select {
		case got = <-serverReceived:
			return true
		default:
			return false
		}
	})
	if string(got) != "ping" {
		t.Fatalf("server received %q, want %q", got, "ping")
	}

	runUntil(t, r, func() bool {
		select {
		case got = <-clientReceived:
			return true
		default:
			return false
		}
	})
	if string(got) != "pong" {
		t.Fatalf("client received %q, want %q", got, "pong")
	}
}

func TestListenRejectsSnappyCombinedWithTLS(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	_, err = Listen(r, loopbackEphemeral(), 0, Handler{
		NewProtocol: func(*Session) protocol.Protocol {
			return protocol.NewLengthPrefixed(protocol.Header4, func([]byte) {})
		},
	}, WithSnappy(), WithTLS(&tlsio.Config{}))
	if err == nil {
		t.Fatal("expected Listen to reject WithSnappy combined with WithTLS")
	}
}

func TestServerMaxSessionsClosesExtraConnections(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	received := make(chan []byte, 4)
	srv, err := Listen(r, loopbackEphemeral(), 0, Handler{
		NewProtocol: echoProtoFactory(received),
	}, MaxSessions(1))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	local, err := srv.ln.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	first, err := socket.DialTCP(local)
	if err != nil {
		t.Fatalf("DialTCP first: %v", err)
	}
	defer first.Close()

	runUntil(t, r, func() bool { return srv.Sessions().Len() == 1 })

	second, err := socket.DialTCP(local)
	if err != nil {
		t.Fatalf("DialTCP second: %v", err)
	}
	defer second.Close()

	runUntil(t, r, func() bool { return srv.Backlog() == 2 })

	if srv.Sessions().Len() != 1 {
		t.Fatalf("Sessions().Len() = %d, want 1 (second connection should be rejected)", srv.Sessions().Len())
	}
}

func TestServerStreamBroadcastsToEverySession(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	opened := make(chan *Session, 4)
	srv, err := Listen(r, loopbackEphemeral(), 0, Handler{
		NewProtocol: func(sess *Session) protocol.Protocol {
			return protocol.NewLengthPrefixed(protocol.Header4, func([]byte) {})
		},
		OnSession: func(s *Session) { opened <- s },
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	local, err := srv.ln.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	clients := make([]*socket.Socket, 2)
	for i := range clients {
		c, err := socket.DialTCP(local)
		if err != nil {
			t.Fatalf("DialTCP: %v", err)
		}
		defer c.Close()
		clients[i] = c
	}

	runUntil(t, r, func() bool { return srv.Sessions().Len() == 2 })

	srv.Stream(protocol.EncodeLengthPrefixed(protocol.Header4, []byte("hey")))

	runUntil(t, r, func() bool { return true }) // let Write handlers flush

	for _, c := range clients {
		c.SetNonblocking(false)
		buf := make([]byte, 7)
		n, _, err := c.Read(buf)
		if err != nil {
			t.Fatalf("client Read: %v", err)
		}
		if string(buf[:n]) != "\x00\x00\x00\x03hey" {
			t.Fatalf("client received %q", buf[:n])
		}
	}
}

func TestServerTLSHandshakeAndMessage(t *testing.T) {
	cert := selfSignedTestCert(t)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	received := make(chan []byte, 1)
	handshaked := make(chan *tlsio.SessionInfo, 1)
	opened := make(chan *Session, 1)

	srv, err := Listen(r, loopbackEphemeral(), 0, Handler{
		NewProtocol: echoProtoFactory(received),
		OnHandshake: func(_ *Session, info *tlsio.SessionInfo) { handshaked <- info },
		OnSession:   func(s *Session) { opened <- s },
	}, WithTLS(&tlsio.Config{Certificates: []tls.Certificate{cert}}))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	local, err := srv.ln.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	rawClient, err := socket.DialTCP(local)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer rawClient.Close()

	tlsClient, err := tlsio.NewClient(rawClient, &tlsio.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	clientDone := make(chan error, 1)
	go func() { clientDone <- tlsClient.Handshake() }()

	runUntil(t, r, func() bool {
		select {
		case <-handshaked:
			return true
		default:
			return false
		}
	})
	if err := <-clientDone; err != nil {
		t.Fatalf("client Handshake: %v", err)
	}

	runUntil(t, r, func() bool {
		select {
		case <-opened:
			return true
		default:
			return false
		}
	})

	frame := protocol.EncodeLengthPrefixed(protocol.Header4, []byte("secure"))
	if _, _, err := tlsClient.Write(frame); err != nil {
		t.Fatalf("tlsClient Write: %v", err)
	}

	var got []byte
	runUntil(t, r, func() bool {
		select {
		case got = <-received:
			return true
		default:
			return false
		}
	})
	if string(got) != "secure" {
		t.Fatalf("received %q, want %q", got, "secure")
	}
}

func selfSignedTestCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("rand.Int: %v", err)
	}
	tmpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}
