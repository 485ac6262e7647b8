package ipcsession

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcfeature"
	"github.com/unity-mcp/bridge-ipc/ipcproto"
)

// pipeConn is an in-memory ipctransport.Connection backed by two byte-slice
// channels, so handshake and session tests don't need a real socket.
type pipeConn struct {
	in     chan []byte
	out    chan []byte
	done   chan struct{} // closed by Close, so a blocked Read returns like a closed socket's
	mu     sync.Mutex
	closed bool
}

func newPipePair() (client *pipeConn, server *pipeConn) {
	a := make(chan []byte, 16)
	b := make(chan []byte, 16)
	client = &pipeConn{in: b, out: a, done: make(chan struct{})}
	server = &pipeConn{in: a, out: b, done: make(chan struct{})}
	return client, server
}

func (p *pipeConn) Write(ctx context.Context, data []byte) error {
	cp := append([]byte(nil), data...)
	select {
	case p.out <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-p.in:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-p.done:
		return nil, io.ErrClosedPipe
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConn) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.out)
		close(p.done)
	}
	return nil
}

func (p *pipeConn) RemoteAddr() string { return "pipe://test" }

func serverWelcome(t *testing.T, server *pipeConn, features []string) {
	t.Helper()
	data, err := server.Read(context.Background())
	if err != nil {
		t.Fatalf("server read hello: %v", err)
	}
	ctrl, err := ipcproto.UnmarshalControl(data)
	if err != nil || ctrl.Hello == nil {
		t.Fatalf("server expected hello, got %+v err=%v", ctrl, err)
	}

	welcome := &ipcproto.Control{Welcome: &ipcproto.Welcome{
		IpcVersion:       ipcproto.IPCVersion,
		AcceptedFeatures: features,
		SchemaHash:       ipcproto.SchemaHash,
		ServerName:       "unity-bridge-test",
		ServerVersion:    "0.0.0",
		SessionID:        "sess-1",
	}}
	out, err := welcome.Marshal()
	if err != nil {
		t.Fatalf("marshal welcome: %v", err)
	}
	if err := server.Write(context.Background(), out); err != nil {
		t.Fatalf("server write welcome: %v", err)
	}
}

func TestHandshakeSucceedsAndReachesReady(t *testing.T) {
	client, server := newPipePair()

	done := make(chan struct{})
	go func() {
		serverWelcome(t, server, []string{"assets.basic", "events.log"})
		close(done)
	}()

	sess, err := Handshake(context.Background(), client, Config{
		Token:           "tok",
		DesiredFeatures: ipcfeature.NewSet("assets.basic", "events.log"),
	})
	<-done
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	defer sess.Close()

	if sess.State() != StateReady {
		t.Errorf("State = %v, want Ready", sess.State())
	}
	if !sess.Features().Has(ipcfeature.Parse("assets.basic")) {
		t.Errorf("expected assets.basic in negotiated features")
	}
	if sess.Stats().SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", sess.Stats().SessionID)
	}
}

func TestHandshakeRejectSurfacesTypedError(t *testing.T) {
	client, server := newPipePair()

	go func() {
		data, _ := server.Read(context.Background())
		_, _ = ipcproto.UnmarshalControl(data)
		reject := &ipcproto.Control{Reject: &ipcproto.Reject{Code: ipcproto.RejectUnauthenticated, Message: "bad token"}}
		out, _ := reject.Marshal()
		_ = server.Write(context.Background(), out)
	}()

	_, err := Handshake(context.Background(), client, Config{Token: "wrong"})
	if err == nil {
		t.Fatal("expected handshake rejection error")
	}
	var ipcErr *ipcerr.Error
	if !errors.As(err, &ipcErr) || ipcErr.Kind != ipcerr.Unauthenticated {
		t.Errorf("err = %v, want ipcerr.Unauthenticated", err)
	}
}

func TestHandshakeSchemaMismatch(t *testing.T) {
	client, server := newPipePair()

	go func() {
		data, _ := server.Read(context.Background())
		_, _ = ipcproto.UnmarshalControl(data)
		badHash := append([]byte(nil), ipcproto.SchemaHash...)
		badHash[0] ^= 0xFF
		welcome := &ipcproto.Control{Welcome: &ipcproto.Welcome{
			IpcVersion: ipcproto.IPCVersion,
			SchemaHash: badHash,
			SessionID:  "sess-x",
		}}
		out, _ := welcome.Marshal()
		_ = server.Write(context.Background(), out)
	}()

	_, err := Handshake(context.Background(), client, Config{})
	if err == nil {
		t.Fatal("expected schema mismatch error")
	}
}

func TestCallRoundTrip(t *testing.T) {
	client, server := newPipePair()

	serverDone := make(chan struct{})
	go func() {
		serverWelcome(t, server, []string{"assets.basic"})
		close(serverDone)
	}()

	sess, err := Handshake(context.Background(), client, Config{})
	<-serverDone
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	defer sess.Close()

	// Emulate the server's response loop: echo back Health OK.
	go func() {
		data, err := server.Read(context.Background())
		if err != nil {
			return
		}
		env, err := ipcproto.UnmarshalEnvelope(data)
		if err != nil {
			t.Errorf("server decode request: %v", err)
			return
		}
		resp := &ipcproto.Envelope{
			CorrelationID: env.CorrelationID,
			Response: &ipcproto.Response{
				Status: ipcproto.StatusOK,
				Health: &ipcproto.HealthResponse{Ready: true, Version: "1.0"},
			},
		}
		out, _ := resp.Marshal()
		_ = server.Write(context.Background(), out)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := sess.Call(ctx, &ipcproto.Request{Health: &ipcproto.HealthRequest{}})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.GetStatus() != ipcproto.StatusOK {
		t.Errorf("Status = %v, want OK", resp.GetStatus())
	}
	if resp.Health == nil || !resp.Health.Ready {
		t.Errorf("Health = %+v, want Ready=true", resp.Health)
	}
}

func TestCallFailsAfterClose(t *testing.T) {
	client, server := newPipePair()

	serverDone := make(chan struct{})
	go func() {
		serverWelcome(t, server, nil)
		close(serverDone)
	}()

	sess, err := Handshake(context.Background(), client, Config{})
	<-serverDone
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	sess.Close()

	_, err = sess.Call(context.Background(), &ipcproto.Request{Health: &ipcproto.HealthRequest{}})
	if err == nil {
		t.Fatal("expected call to fail on a closed session")
	}
}

func TestEventPublishDropsOldestOnOverflow(t *testing.T) {
	client, server := newPipePair()

	serverDone := make(chan struct{})
	go func() {
		serverWelcome(t, server, []string{"events.log"})
		close(serverDone)
	}()

	sess, err := Handshake(context.Background(), client, Config{EventBufferSize: 2})
	<-serverDone
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	defer sess.Close()

	for i := 0; i < 5; i++ {
		env := &ipcproto.Envelope{Event: &ipcproto.Event{Log: &ipcproto.LogEvent{Message: "m"}}}
		out, _ := env.Marshal()
		if err := server.Write(context.Background(), out); err != nil {
			t.Fatalf("server write event %d: %v", i, err)
		}
	}

	// Give the reader goroutine time to drain and publish.
	time.Sleep(50 * time.Millisecond)

	count := 0
	for {
		select {
		case <-sess.Events():
			count++
		default:
			if count > 2 {
				t.Errorf("events buffer held %d, want <= buffer size 2 (drop-oldest should bound it)", count)
			}
			return
		}
	}
}

func TestUnknownCorrelationIDResponseIsDroppedWithDiagnostic(t *testing.T) {
	client, server := newPipePair()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	serverDone := make(chan struct{})
	go func() {
		serverWelcome(t, server, nil)
		close(serverDone)
	}()

	sess, err := Handshake(context.Background(), client, Config{Logger: logger})
	<-serverDone
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	defer sess.Close()

	stray := &ipcproto.Envelope{
		CorrelationID: "no-such-call",
		Response:      &ipcproto.Response{Status: ipcproto.StatusOK},
	}
	out, err := stray.Marshal()
	if err != nil {
		t.Fatalf("marshal stray response: %v", err)
	}
	if err := server.Write(context.Background(), out); err != nil {
		t.Fatalf("server write stray response: %v", err)
	}

	// Give the reader goroutine time to observe and log the unmatched response.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(logBuf.String(), "no-such-call") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(logBuf.String(), "unknown correlation id") || !strings.Contains(logBuf.String(), "no-such-call") {
		t.Errorf("expected a diagnostic log for the unmatched correlation id, got: %s", logBuf.String())
	}

	// The session must keep working normally after dropping the stray response.
	go func() {
		data, err := server.Read(context.Background())
		if err != nil {
			return
		}
		env, err := ipcproto.UnmarshalEnvelope(data)
		if err != nil {
			t.Errorf("server decode request: %v", err)
			return
		}
		resp := &ipcproto.Envelope{
			CorrelationID: env.CorrelationID,
			Response:      &ipcproto.Response{Status: ipcproto.StatusOK},
		}
		out, _ := resp.Marshal()
		_ = server.Write(context.Background(), out)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := sess.Call(ctx, &ipcproto.Request{Health: &ipcproto.HealthRequest{}})
	if err != nil {
		t.Fatalf("Call after stray response: %v", err)
	}
	if resp.GetStatus() != ipcproto.StatusOK {
		t.Errorf("Status = %v, want OK", resp.GetStatus())
	}
}
