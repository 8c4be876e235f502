package socket

import (
	"net"
	"testing"

	"github.com/flowio/flowio/endpoint"
)

func loopbackEphemeral() endpoint.Endpoint {
	return endpoint.IPv4Endpoint(net.IPv4(127, 0, 0, 1), 0)
}

func TestTCPListenAcceptRoundTrip(t *testing.T) {
	ln, err := ListenTCP(loopbackEphemeral(), 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()

	local, err := ln.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}
	if local.Port() == 0 {
		t.Fatal("expected a non-zero ephemeral port")
	}

	client, err := DialTCP(local)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer client.Close()

	srv, peer, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer srv.Close()
	if peer.Port() == 0 {
		t.Fatal("expected a non-zero peer port")
	}

	payload := []byte("hello")
	n, class, err := client.Write(payload)
	if err != nil || class != ClassNone {
		t.Fatalf("Write: n=%d class=%v err=%v", n, class, err)
	}

	buf := make([]byte, 16)
	n, class, err = srv.Read(buf)
	if err != nil || class != ClassNone {
		t.Fatalf("Read: n=%d class=%v err=%v", n, class, err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("Read contents = %q", buf[:n])
	}
}

func TestNonblockingConnectToListeningSocketSucceeds(t *testing.T) {
	ln, err := ListenTCP(loopbackEphemeral(), 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()
	local, _ := ln.LocalEndpoint()

	client, class, err := DialTCPNonblocking(local)
	if err != nil {
		t.Fatalf("DialTCPNonblocking: %v", err)
	}
	defer client.Close()
	if class != ClassNone && class != ClassInProgress {
		t.Fatalf("unexpected class %v", class)
	}
	if class == ClassInProgress {
		if err := client.CompleteConnect(); err != nil {
			t.Fatalf("CompleteConnect: %v", err)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := Open(endpoint.IPv4, Stream)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
	if s.IsOpen() {
		t.Fatal("IsOpen() should be false after Close")
	}
}

func TestUDPSendRecv(t *testing.T) {
	server, err := OpenUDP(loopbackEphemeral())
	if err != nil {
		t.Fatalf("OpenUDP server: %v", err)
	}
	defer server.Close()
	serverEp, _ := server.LocalEndpoint()

	client, err := OpenUDP(loopbackEphemeral())
	if err != nil {
		t.Fatalf("OpenUDP client: %v", err)
	}
	defer client.Close()

	if _, err := client.WriteTo([]byte("ping"), serverEp); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	buf := make([]byte, 16)
	n, from, err := server.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("ReadFrom contents = %q", buf[:n])
	}
	if from.Port() == 0 {
		t.Fatal("expected sender port to be populated")
	}
}

func TestListenerDrainAcceptsStopsAtWouldBlock(t *testing.T) {
	raw, err := ListenTCP(loopbackEphemeral(), 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer raw.Close()
	ln, err := NewListener(raw)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}

	var accepted int
	err = ln.DrainAccepts(func(s *Socket, _ endpoint.Endpoint) {
		accepted++
		s.Close()
	})
	if err != nil {
		t.Fatalf("DrainAccepts on empty listener: %v", err)
	}
	if accepted != 0 {
		t.Fatalf("expected no pending connections, got %d", accepted)
	}
}
