// Package ipcclient is the public façade: one Client per Unity Editor
// session, built from ipcconfig.Config, backed by an ipcsupervisor.Supervisor
// that keeps a handshaken ipcsession.Session alive across reconnects.
package ipcclient

import (
	"context"

	"github.com/unity-mcp/bridge-ipc/ipcconfig"
	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcfeature"
	"github.com/unity-mcp/bridge-ipc/ipcproto"
	"github.com/unity-mcp/bridge-ipc/ipcsession"
	"github.com/unity-mcp/bridge-ipc/ipcsupervisor"
)

// Client is the handle an MCP agent holds for the lifetime of its
// conversation with one hosted Unity Editor.
type Client struct {
	cfg        ipcconfig.Config
	supervisor *ipcsupervisor.Supervisor
}

// Connect resolves cfg.Endpoint, performs the handshake, and returns a
// ready Client backed by a supervisor that keeps reconnecting until Close is
// called or a fatal error stops it.
func Connect(ctx context.Context, cfg ipcconfig.Config) (*Client, error) {
	sv := ipcsupervisor.New(cfg.Endpoint, cfg.SessionConfig(), cfg.ConnectTimeout, cfg.Logger)
	if err := sv.Start(ctx); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, supervisor: sv}, nil
}

// Close stops the reconnect supervisor and closes the current session.
func (c *Client) Close() error {
	return c.supervisor.Stop()
}

// NegotiatedFeatures reports the feature intersection from the most recent
// handshake.
func (c *Client) NegotiatedFeatures() ipcfeature.Set {
	sess := c.session()
	if sess == nil {
		return ipcfeature.Set{}
	}
	return sess.Features()
}

// Stats returns a point-in-time snapshot of the current session.
func (c *Client) Stats() (ipcsession.ConnectionStats, error) {
	sess := c.session()
	if sess == nil {
		return ipcsession.ConnectionStats{}, ipcerr.New(ipcerr.SessionClosed, "no active session")
	}
	return sess.Stats(), nil
}

func (c *Client) session() *ipcsession.Session {
	return c.supervisor.Session()
}

// requireFeature fails fast with FeatureUnavailable before a call is even
// built, rather than letting the server reject it.
func (c *Client) requireFeature(sess *ipcsession.Session, f ipcfeature.Feature) error {
	if !sess.Features().Has(f) {
		return ipcerr.New(ipcerr.FeatureUnavailable, "feature not negotiated: "+f.String())
	}
	return nil
}

// call is the shared request path every façade operation funnels through:
// grab the live session, issue the request, map the server status code to
// the error taxonomy.
func (c *Client) call(ctx context.Context, req *ipcproto.Request) (*ipcproto.Response, error) {
	sess := c.session()
	if sess == nil {
		return nil, ipcerr.New(ipcerr.SessionClosed, "no active session")
	}

	resp, err := sess.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.GetStatus() != ipcproto.StatusOK {
		return resp, statusToError(resp.GetStatus(), resp.GetMessage())
	}
	return resp, nil
}

func statusToError(status ipcproto.StatusCode, message string) error {
	kind := ipcerr.Internal
	switch status {
	case ipcproto.StatusInvalidArgument:
		kind = ipcerr.ProtocolViolation
	case ipcproto.StatusNotFound:
		kind = ipcerr.ProtocolViolation
	case ipcproto.StatusPermissionOrPath:
		kind = ipcerr.ProjectRootMismatch
	case ipcproto.StatusFailedPrecondition:
		kind = ipcerr.EditorBusy
	case ipcproto.StatusInternal:
		kind = ipcerr.Internal
	}
	return ipcerr.New(kind, status.String()+": "+message)
}

// Health always succeeds feature-gate checks: it is the one operation the
// spec guarantees is available regardless of negotiated features.
func (c *Client) Health(ctx context.Context) (*ipcproto.HealthResponse, error) {
	resp, err := c.call(ctx, &ipcproto.Request{Health: &ipcproto.HealthRequest{}})
	if err != nil {
		return nil, err
	}
	return resp.Health, nil
}

// Events returns the live event stream, gated by events.log and by
// Config.NotificationsEnabled (UNITY_MCP_NOTIFICATIONS). The returned
// channel is the session's own broadcast channel; it stops delivering (but
// is not closed) across a reconnect, since events are not migrated between
// sessions.
func (c *Client) Events(ctx context.Context) (<-chan *ipcproto.Event, error) {
	sess := c.session()
	if sess == nil {
		return nil, ipcerr.New(ipcerr.SessionClosed, "no active session")
	}
	if !c.cfg.NotificationsEnabled {
		return nil, ipcerr.New(ipcerr.FeatureUnavailable, "notifications disabled by configuration")
	}
	if err := c.requireFeature(sess, ipcfeature.EventsLog); err != nil {
		return nil, err
	}
	return sess.Events(), nil
}
