// Package ipcsupervisor owns the reconnect loop: it holds the current
// session behind an atomic pointer, swapping it on reconnect, and stops
// retrying once a fatal rejection is reached.
package ipcsupervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unity-mcp/bridge-ipc/ipcbackoff"
	"github.com/unity-mcp/bridge-ipc/ipcendpoint"
	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcsession"
	"github.com/unity-mcp/bridge-ipc/ipctransport"
)

// Supervisor maintains a live ipcsession.Session against one endpoint,
// reconnecting with backoff on retriable teardown and giving up on fatal
// rejections (bad token, schema/project_root mismatch, version mismatch).
type Supervisor struct {
	endpoint    ipcendpoint.Endpoint
	sessionCfg  ipcsession.Config
	dialTimeout time.Duration
	logger      *slog.Logger

	// OnFatal, if set, is invoked (in its own goroutine) the moment the
	// supervisor gives up permanently.
	OnFatal func(error)

	current atomic.Pointer[ipcsession.Session]
	attempt atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Supervisor. Start must be called before Session returns
// anything usable.
func New(ep ipcendpoint.Endpoint, sessionCfg ipcsession.Config, dialTimeout time.Duration, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	return &Supervisor{
		endpoint:    ep,
		sessionCfg:  sessionCfg,
		dialTimeout: dialTimeout,
		logger:      logger,
	}
}

// Start performs the first connect synchronously, so a fatal startup
// failure (bad token, wrong project root) is returned directly to the
// caller instead of being swallowed into a retry loop. On success it
// spawns the background watch goroutine that drives future reconnects.
func (sv *Supervisor) Start(ctx context.Context) error {
	sv.ctx, sv.cancel = context.WithCancel(ctx)

	sess, err := sv.connectOnce(sv.ctx)
	if err != nil {
		return err
	}
	sv.current.Store(sess)
	sv.watch(sess)
	return nil
}

// Session returns the current live session, or nil if the supervisor has
// not connected yet or has given up after a fatal error.
func (sv *Supervisor) Session() *ipcsession.Session {
	return sv.current.Load()
}

// Stop cancels the supervisor, closes the current session, and waits for
// the watch goroutine to exit.
func (sv *Supervisor) Stop() error {
	if sv.cancel != nil {
		sv.cancel()
	}
	var closeErr error
	if sess := sv.current.Load(); sess != nil {
		closeErr = sess.Close()
	}
	sv.wg.Wait()
	return closeErr
}

func (sv *Supervisor) connectOnce(ctx context.Context) (*ipcsession.Session, error) {
	dialCtx, cancel := context.WithTimeout(ctx, sv.dialTimeout)
	defer cancel()

	conn, err := ipctransport.Dial(dialCtx, sv.endpoint)
	if err != nil {
		return nil, err
	}

	sess, err := ipcsession.Handshake(ctx, conn, sv.sessionCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return sess, nil
}

// watch waits for sess to tear down, then either stops (fatal cause) or
// enters the reconnect loop (retriable or unknown cause).
func (sv *Supervisor) watch(sess *ipcsession.Session) {
	sv.wg.Add(1)
	go func() {
		defer sv.wg.Done()

		select {
		case <-sess.Done():
		case <-sv.ctx.Done():
			return
		}

		if isFatal(sess.Err()) {
			sv.giveUp(sess.Err())
			return
		}

		sv.reconnectLoop()
	}()
}

func (sv *Supervisor) reconnectLoop() {
	for {
		if sv.ctx.Err() != nil {
			return
		}

		attempt := sv.attempt.Add(1) - 1
		delay := ipcbackoff.Duration(int(attempt))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-sv.ctx.Done():
			timer.Stop()
			return
		}

		sess, err := sv.connectOnce(sv.ctx)
		if err != nil {
			if isFatal(err) {
				sv.giveUp(err)
				return
			}
			sv.logger.Warn("ipcsupervisor: reconnect attempt failed", "attempt", attempt, "err", err)
			continue
		}

		sv.attempt.Store(0)
		sv.current.Store(sess)
		sv.logger.Info("ipcsupervisor: reconnected", "remote_addr", sess.Stats().RemoteAddr)
		sv.watch(sess)
		return
	}
}

func (sv *Supervisor) giveUp(cause error) {
	sv.current.Store(nil)
	sv.logger.Error("ipcsupervisor: giving up after fatal error", "err", cause)
	if sv.OnFatal != nil {
		go sv.OnFatal(cause)
	}
}

func isFatal(err error) bool {
	if err == nil {
		return false
	}
	var ipcErr *ipcerr.Error
	if errors.As(err, &ipcErr) {
		return ipcErr.Fatal()
	}
	// An error of unrecognized shape (should not happen given this module's
	// error taxonomy contract) is treated as retriable rather than fatal, so
	// an unexpected wrapping bug degrades to extra reconnect attempts
	// instead of silently stopping the supervisor.
	return false
}
