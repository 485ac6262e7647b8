// Package ipctransport dials an ipcendpoint.Endpoint and exposes a single
// Connection interface over it, regardless of which concrete transport
// (TCP, Unix domain socket, or WebSocket) backs it.
package ipctransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/unity-mcp/bridge-ipc/ipcendpoint"
	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcframe"
)

// Connection abstracts a byte-stream to the Bridge: a length-delimited
// message in, a length-delimited message out, regardless of what carries
// the bytes underneath.
type Connection interface {
	// Write sends one message, framed as required by the underlying
	// transport. It blocks until the message (or its framing) is fully
	// written, or ctx is done.
	Write(ctx context.Context, data []byte) error

	// Read receives the next complete message. It returns io.EOF if the
	// peer closed the connection cleanly between messages.
	Read(ctx context.Context) ([]byte, error)

	// Close releases the underlying transport. Safe to call more than once.
	Close() error

	// RemoteAddr reports the dialed endpoint, for logging and ConnectionStats.
	RemoteAddr() string
}

// Dial connects to ep, selecting the concrete Connection implementation by
// ep.Kind. The context bounds only the dial itself, not subsequent I/O.
func Dial(ctx context.Context, ep ipcendpoint.Endpoint) (Connection, error) {
	switch ep.Kind {
	case ipcendpoint.KindTCP:
		return dialTCP(ctx, ep.Host)
	case ipcendpoint.KindUnix:
		return dialUnix(ctx, ep.Path)
	case ipcendpoint.KindWebSocket:
		return dialWebSocket(ctx, ep)
	default:
		return nil, ipcerr.New(ipcerr.ConnectFailed, fmt.Sprintf("ipctransport: unsupported endpoint kind %v", ep.Kind))
	}
}

// streamConn implements Connection over any net.Conn using ipcframe's
// length-delimited framing. TCP and Unix connections are both this type,
// created by dialTCP and dialUnix with a different address label.
type streamConn struct {
	conn net.Conn
	mu   sync.Mutex // serializes writes
	addr string
}

func dialTCP(ctx context.Context, hostport string) (Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return nil, wrapDialErr(ctx, fmt.Sprintf("tcp dial %s", hostport), err)
	}
	return &streamConn{conn: conn, addr: "tcp://" + hostport}, nil
}

func dialUnix(ctx context.Context, path string) (Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, wrapDialErr(ctx, fmt.Sprintf("unix dial %s", path), err)
	}
	return &streamConn{conn: conn, addr: "unix://" + path}, nil
}

// wrapDialErr classifies a failed dial as a timeout or a plain connect
// failure (refused/unreachable/DNS), per the dial context's own deadline
// rather than the error string, so the distinction holds across transports.
func wrapDialErr(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ipcerr.Wrap(ipcerr.ConnectTimeout, msg, err)
	}
	return ipcerr.Wrap(ipcerr.ConnectFailed, msg, err)
}

// Write frames data with a 4-byte big-endian length header and writes it in
// one call under the connection's write lock, so concurrent callers (the
// session writer goroutine and, transiently, a closing goroutine) never
// interleave partial frames.
func (s *streamConn) Write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(dl)
		defer s.conn.SetWriteDeadline(time.Time{})
	}

	return ipcframe.WriteFrame(s.conn, data)
}

// Read blocks until one full frame has arrived.
func (s *streamConn) Read(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(dl)
		defer s.conn.SetReadDeadline(time.Time{})
	}

	data, err := ipcframe.ReadFrame(s.conn)
	if err == io.EOF {
		return nil, io.EOF
	}
	return data, err
}

func (s *streamConn) Close() error {
	return s.conn.Close()
}

func (s *streamConn) RemoteAddr() string {
	return s.addr
}

// wsConn implements Connection over a WebSocket, framing each protocol
// message as exactly one binary WebSocket message (no ipcframe length
// header needed: the WebSocket framing already delimits messages).
type wsConn struct {
	conn *websocket.Conn
	addr string
}

func dialWebSocket(ctx context.Context, ep ipcendpoint.Endpoint) (Connection, error) {
	scheme := "ws"
	if ep.TLS {
		scheme = "wss"
	}
	path := ep.Path
	if path == "" {
		path = "/"
	}
	url := fmt.Sprintf("%s://%s%s", scheme, ep.Host, path)

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, wrapDialErr(ctx, fmt.Sprintf("websocket dial %s", url), err)
	}

	conn.SetReadLimit(int64(ipcframe.MaxPayload))

	return &wsConn{conn: conn, addr: url}, nil
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	if err := w.conn.Write(ctx, websocket.MessageBinary, data); err != nil {
		return ipcerr.Wrap(ipcerr.IO, "websocket write", err)
	}
	return nil
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) != -1 {
			return nil, io.EOF
		}
		return nil, ipcerr.Wrap(ipcerr.IO, "websocket read", err)
	}
	return data, nil
}

func (w *wsConn) Close() error {
	return w.conn.CloseNow()
}

func (w *wsConn) RemoteAddr() string {
	return w.addr
}
