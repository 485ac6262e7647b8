// Package ipcsession runs one handshaken connection to the Bridge: the
// Greeting/Validating handshake, and, once Ready, the reader/writer
// goroutines that multiplex correlated request/response calls and fan out
// broadcast events.
package ipcsession

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcfeature"
	"github.com/unity-mcp/bridge-ipc/ipcproto"
	"github.com/unity-mcp/bridge-ipc/ipctransport"
)

// ConnectionStats is a point-in-time introspection snapshot.
type ConnectionStats struct {
	RemoteAddr         string
	SessionID          string
	ServerName         string
	ServerVersion      string
	EditorVersion      string
	NegotiatedFeatures []string
	ConnectedSince     time.Time
	PendingCalls       int

	BytesSent      uint64
	BytesReceived  uint64
	FramesSent     uint64
	FramesReceived uint64
}

// Session is a live, Ready connection to the Bridge. The zero value is not
// usable; obtain one from Handshake.
type Session struct {
	conn   ipctransport.Connection
	logger *slog.Logger

	cfg      Config
	features ipcfeature.Set

	sessionID     string
	serverName    string
	serverVersion string
	editorVersion string
	connectedAt   time.Time

	writeCh chan []byte
	events  chan *ipcproto.Event

	mu      sync.Mutex
	pending map[string]chan *ipcproto.Response

	state     atomic.Int32
	counter   atomic.Uint64
	done      chan struct{}
	closeOnce sync.Once
	closeErr  atomic.Pointer[error]
	wg        sync.WaitGroup

	bytesSent      atomic.Uint64
	bytesReceived  atomic.Uint64
	framesSent     atomic.Uint64
	framesReceived atomic.Uint64
}

func newSession(conn ipctransport.Connection, cfg Config, features ipcfeature.Set, w *ipcproto.Welcome) *Session {
	s := &Session{
		conn:          conn,
		logger:        cfg.Logger,
		cfg:           cfg,
		features:      features,
		sessionID:     w.GetSessionID(),
		serverName:    w.ServerName,
		serverVersion: w.ServerVersion,
		editorVersion: w.EditorVersion,
		connectedAt:   time.Now(),
		writeCh:       make(chan []byte, cfg.WriterQueueSize),
		events:        make(chan *ipcproto.Event, cfg.EventBufferSize),
		pending:       make(map[string]chan *ipcproto.Response),
		done:          make(chan struct{}),
	}
	s.state.Store(int32(StateReady))
	return s
}

func (s *Session) start() {
	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
}

// State reports the session's current lifecycle stage.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Features returns the negotiated feature intersection.
func (s *Session) Features() ipcfeature.Set {
	return s.features
}

// Stats returns a point-in-time snapshot for diagnostics.
func (s *Session) Stats() ConnectionStats {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()

	return ConnectionStats{
		RemoteAddr:         s.conn.RemoteAddr(),
		SessionID:          s.sessionID,
		ServerName:         s.serverName,
		ServerVersion:      s.serverVersion,
		EditorVersion:      s.editorVersion,
		NegotiatedFeatures: s.features.Wire(),
		ConnectedSince:     s.connectedAt,
		PendingCalls:       pending,
		BytesSent:          s.bytesSent.Load(),
		BytesReceived:      s.bytesReceived.Load(),
		FramesSent:         s.framesSent.Load(),
		FramesReceived:     s.framesReceived.Load(),
	}
}

// Events returns the broadcast channel of events published by the reader.
// Subscribers that fall behind lose the oldest undelivered events rather
// than stall the reader; there is no separate "lag" counter exposed here.
// Every caller receives from this same channel, so each event is delivered
// to exactly one receiver; there is no per-subscriber fan-out.
func (s *Session) Events() <-chan *ipcproto.Event {
	return s.events
}

// Done is closed when the session has torn down, for any reason.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the session closed, or nil if Close was called
// deliberately with no prior I/O error.
func (s *Session) Err() error {
	if p := s.closeErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Call sends req and blocks for the matching Response, the session's
// configured call timeout, or ctx, whichever comes first.
func (s *Session) Call(ctx context.Context, req *ipcproto.Request) (*ipcproto.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	corrID := s.nextCorrelationID()
	ch := make(chan *ipcproto.Response, 1)

	s.mu.Lock()
	s.pending[corrID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, corrID)
		s.mu.Unlock()
	}()

	env := &ipcproto.Envelope{CorrelationID: corrID, Request: req}
	data, err := env.Marshal()
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.Internal, "marshal request envelope", err)
	}

	select {
	case s.writeCh <- data:
	case <-s.done:
		return nil, ipcerr.New(ipcerr.SessionClosed, "session closed before request could be sent")
	case <-ctx.Done():
		return nil, ipcerr.Wrap(ipcerr.CallTimeout, "timed out enqueuing request", ctx.Err())
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ipcerr.New(ipcerr.SessionClosed, "session closed while awaiting response")
		}
		return resp, nil
	case <-s.done:
		return nil, ipcerr.New(ipcerr.SessionClosed, "session closed while awaiting response")
	case <-ctx.Done():
		return nil, ipcerr.Wrap(ipcerr.CallTimeout, "call timed out", ctx.Err())
	}
}

// nextCorrelationID renders the session-local counter as "cN", or mints a
// UUID, depending on cfg.CorrelationStyle.
func (s *Session) nextCorrelationID() string {
	if s.cfg.CorrelationStyle == CorrelationUUID {
		return uuid.NewString()
	}
	return "c" + strconv.FormatUint(s.counter.Add(1), 10)
}

// Close tears the session down: the writer and reader goroutines stop, any
// calls still waiting on a response fail with SessionClosed, and the
// underlying connection is closed. Safe to call more than once.
func (s *Session) Close() error {
	return s.teardown(nil)
}

func (s *Session) teardown(cause error) error {
	var closeErr error
	s.closeOnce.Do(func() {
		if cause != nil {
			s.closeErr.Store(&cause)
		}
		close(s.done)
		closeErr = s.conn.Close()

		s.mu.Lock()
		pending := s.pending
		s.pending = make(map[string]chan *ipcproto.Response)
		s.mu.Unlock()
		for _, ch := range pending {
			close(ch)
		}
	})
	s.wg.Wait()
	return closeErr
}

func (s *Session) readLoop() {
	defer s.wg.Done()
	for {
		data, err := s.conn.Read(context.Background())
		if err != nil {
			go s.teardown(ipcerr.Wrap(ipcerr.IO, "read loop", err))
			return
		}
		s.framesReceived.Add(1)
		s.bytesReceived.Add(uint64(len(data)))

		env, err := ipcproto.UnmarshalEnvelope(data)
		if err != nil {
			s.logger.Error("ipcsession: decode envelope failed", "err", err)
			continue
		}

		switch {
		case env.Response != nil:
			s.mu.Lock()
			ch, ok := s.pending[env.CorrelationID]
			if ok {
				delete(s.pending, env.CorrelationID)
			}
			s.mu.Unlock()
			if ok {
				ch <- env.Response
			} else {
				s.logger.Warn("ipcsession: response for unknown correlation id", "correlation_id", env.CorrelationID)
			}

		case env.Event != nil:
			s.publishEvent(env.Event)

		default:
			s.logger.Warn("ipcsession: envelope carried neither response nor event", "correlation_id", env.CorrelationID)
		}
	}
}

// publishEvent sends e to the broadcast channel, dropping the oldest
// buffered event rather than blocking the reader when subscribers lag.
func (s *Session) publishEvent(e *ipcproto.Event) {
	for {
		select {
		case s.events <- e:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}

func (s *Session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case data := <-s.writeCh:
			if err := s.conn.Write(context.Background(), data); err != nil {
				go s.teardown(ipcerr.Wrap(ipcerr.IO, "write loop", err))
				return
			}
			s.framesSent.Add(1)
			s.bytesSent.Add(uint64(len(data)))
		case <-s.done:
			return
		}
	}
}
