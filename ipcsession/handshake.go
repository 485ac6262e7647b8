package ipcsession

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcfeature"
	"github.com/unity-mcp/bridge-ipc/ipcproto"
	"github.com/unity-mcp/bridge-ipc/ipctransport"
)

// CorrelationStyle selects how request correlation ids are generated.
type CorrelationStyle int

const (
	// CorrelationCounter renders a session-local monotonic counter as a
	// string ("c1", "c2", ...). This is the default.
	CorrelationCounter CorrelationStyle = iota
	// CorrelationUUID generates a random UUID per call.
	CorrelationUUID
)

// Config carries everything the handshake needs to build Hello and, once
// past Welcome, to run the session.
type Config struct {
	Token         string
	ProjectRoot   string
	ClientName    string
	ClientVersion string
	Meta          map[string]string

	// DesiredFeatures is proposed to the server in Hello; the session keeps
	// only the server's accepted intersection.
	DesiredFeatures ipcfeature.Set

	HandshakeTimeout      time.Duration
	TotalHandshakeTimeout time.Duration
	CallTimeout           time.Duration

	CorrelationStyle CorrelationStyle

	// WriterQueueSize bounds the writer channel (back-pressure on callers).
	WriterQueueSize int
	// EventBufferSize bounds the event broadcast ring.
	EventBufferSize int

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 2 * time.Second
	}
	if c.TotalHandshakeTimeout <= 0 {
		c.TotalHandshakeTimeout = 3 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.WriterQueueSize <= 0 {
		c.WriterQueueSize = 128
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = 256
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Handshake drives the Connecting → Greeting → Validating → Ready|Rejected
// transition over an already-dialed Connection. On success it returns a
// live Session with its reader and writer goroutines running; on failure
// the caller owns closing conn.
func Handshake(ctx context.Context, conn ipctransport.Connection, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.TotalHandshakeTimeout)
	defer cancel()

	hello := &ipcproto.Hello{
		Token:         cfg.Token,
		IpcVersion:    ipcproto.IPCVersion,
		Features:      cfg.DesiredFeatures.Wire(),
		SchemaHash:    ipcproto.SchemaHash,
		ProjectRoot:   cfg.ProjectRoot,
		ClientName:    cfg.ClientName,
		ClientVersion: cfg.ClientVersion,
		Meta:          cfg.Meta,
	}

	helloData, err := (&ipcproto.Control{Hello: hello}).Marshal()
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.Internal, "marshal hello", err)
	}

	greetCtx, greetCancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer greetCancel()

	if err := conn.Write(greetCtx, helloData); err != nil {
		return nil, ipcerr.Wrap(ipcerr.ConnectFailed, "send hello", err)
	}

	respData, err := conn.Read(greetCtx)
	if err != nil {
		if greetCtx.Err() != nil {
			return nil, ipcerr.Wrap(ipcerr.HandshakeTimeout, "awaiting handshake response", err)
		}
		return nil, ipcerr.Wrap(ipcerr.IO, "read handshake response", err)
	}

	ctrl, err := ipcproto.UnmarshalControl(respData)
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.DecodeError, "decode handshake response", err)
	}

	switch {
	case ctrl.Reject != nil:
		return nil, rejectToError(ctrl.Reject)

	case ctrl.Welcome != nil:
		return validateWelcome(conn, cfg, ctrl.Welcome)

	default:
		return nil, ipcerr.New(ipcerr.ProtocolViolation, "handshake response carried neither welcome nor reject")
	}
}

func rejectToError(r *ipcproto.Reject) error {
	kind := ipcerr.Internal
	switch r.GetCode() {
	case ipcproto.RejectUnauthenticated:
		kind = ipcerr.Unauthenticated
	case ipcproto.RejectFailedPrecondition:
		kind = ipcerr.ProjectRootMismatch
	case ipcproto.RejectOutOfRange:
		kind = ipcerr.VersionMismatch
	case ipcproto.RejectUnavailable:
		kind = ipcerr.EditorBusy
	case ipcproto.RejectInternal:
		kind = ipcerr.Internal
	}
	return ipcerr.New(kind, fmt.Sprintf("editor rejected handshake (%s): %s", r.GetCode(), r.GetMessage()))
}

func validateWelcome(conn ipctransport.Connection, cfg Config, w *ipcproto.Welcome) (*Session, error) {
	clientHash := ipcproto.SchemaHash
	serverHash := w.GetSchemaHash()
	if !schemaHashesEqual(clientHash, serverHash) {
		return nil, ipcerr.New(ipcerr.SchemaMismatch, fmt.Sprintf(
			"schema hash mismatch: client=%s server=%s",
			ipcproto.SchemaHashPrefix(clientHash), ipcproto.SchemaHashPrefix(serverHash)))
	}

	accepted := cfg.DesiredFeatures.Intersect(ipcfeature.NewSet(w.AcceptedFeatures...))

	s := newSession(conn, cfg, accepted, w)
	s.start()
	return s, nil
}

func schemaHashesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
