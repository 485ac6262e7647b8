package ipcsupervisor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/unity-mcp/bridge-ipc/ipcendpoint"
	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcframe"
	"github.com/unity-mcp/bridge-ipc/ipcproto"
	"github.com/unity-mcp/bridge-ipc/ipcsession"
)

// serveOneHandshake accepts a single connection on ln, reads one framed
// Control{Hello}, and writes back a framed Control{Welcome}.
func serveOneHandshake(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	data, err := ipcframe.ReadFrame(conn)
	if err != nil {
		t.Fatalf("read hello frame: %v", err)
	}
	ctrl, err := ipcproto.UnmarshalControl(data)
	if err != nil || ctrl.Hello == nil {
		t.Fatalf("expected hello, got %+v err=%v", ctrl, err)
	}

	welcome := &ipcproto.Control{Welcome: &ipcproto.Welcome{
		IpcVersion: ipcproto.IPCVersion,
		SchemaHash: ipcproto.SchemaHash,
		SessionID:  "sess-sv",
	}}
	out, err := welcome.Marshal()
	if err != nil {
		t.Fatalf("marshal welcome: %v", err)
	}
	if err := ipcframe.WriteFrame(conn, out); err != nil {
		t.Fatalf("write welcome frame: %v", err)
	}
	return conn
}

func TestSupervisorStartConnectsAndExposesSession(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverConn := make(chan net.Conn, 1)
	go func() {
		serverConn <- serveOneHandshake(t, ln)
	}()

	ep, err := ipcendpoint.Parse("tcp://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}

	sv := New(ep, ipcsession.Config{}, 2*time.Second, nil)
	if err := sv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sv.Stop()

	sess := sv.Session()
	if sess == nil {
		t.Fatal("expected a live session after Start")
	}
	if sess.Stats().SessionID != "sess-sv" {
		t.Errorf("SessionID = %q, want sess-sv", sess.Stats().SessionID)
	}

	conn := <-serverConn
	conn.Close()
}

func TestSupervisorStartFailsOnUnreachableEndpoint(t *testing.T) {
	// Reserve a port, then close it immediately so the connect fails fast.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ep, err := ipcendpoint.Parse("tcp://" + addr)
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}

	sv := New(ep, ipcsession.Config{}, 500*time.Millisecond, nil)
	if err := sv.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail against a closed port")
	}
}

func TestGiveUpClearsSessionAndInvokesOnFatal(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverConn := make(chan net.Conn, 1)
	go func() {
		serverConn <- serveOneHandshake(t, ln)
	}()

	ep, err := ipcendpoint.Parse("tcp://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}

	sv := New(ep, ipcsession.Config{}, 2*time.Second, nil)
	if err := sv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sv.Stop()

	fatalSeen := make(chan error, 1)
	sv.OnFatal = func(err error) { fatalSeen <- err }

	conn := <-serverConn
	conn.Close()

	if sv.Session() == nil {
		t.Fatal("expected a live session before giving up")
	}

	sv.giveUp(ipcerr.New(ipcerr.Unauthenticated, "bad token"))

	if sv.Session() != nil {
		t.Error("expected Session() to return nil after giveUp")
	}

	select {
	case err := <-fatalSeen:
		if err == nil {
			t.Error("expected a non-nil error passed to OnFatal")
		}
	case <-time.After(time.Second):
		t.Fatal("OnFatal was not invoked")
	}
}
