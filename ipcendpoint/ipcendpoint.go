// Package ipcendpoint parses and validates the endpoint URIs the IPC client
// dials: tcp://host:port (normative), unix:///path/to.sock (optional,
// same contract), and ws://host:port or wss://host:port (optional, the
// WebSocket transport this client also supports for a hosted Bridge).
// Named pipes (pipe://) are not implemented.
package ipcendpoint

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Kind identifies the transport family an Endpoint dials.
type Kind int

const (
	KindTCP Kind = iota
	KindUnix
	KindWebSocket
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindUnix:
		return "unix"
	case KindWebSocket:
		return "ws"
	default:
		return "unknown"
	}
}

// Endpoint is an immutable, validated dial target.
type Endpoint struct {
	Kind Kind
	Host string // tcp/ws: "host:port"; unix: unused
	Path string // unix: socket path; ws: URL path (often empty)
	TLS  bool   // ws: true for wss://
}

// Parse validates and decomposes an endpoint URI. Recognized schemes are
// "tcp", "unix", "ws", and "wss"; any other scheme fails with a descriptive
// error (not one of the transport-level ipcerr kinds, since this is a
// configuration-time failure, not a connect-time one).
func Parse(raw string) (Endpoint, error) {
	if strings.TrimSpace(raw) == "" {
		return Endpoint{}, fmt.Errorf("ipcendpoint: empty endpoint")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("ipcendpoint: parse %q: %w", raw, err)
	}

	switch u.Scheme {
	case "tcp":
		host, err := normalizeHost(u.Host)
		if err != nil {
			return Endpoint{}, fmt.Errorf("ipcendpoint: %q: %w", raw, err)
		}
		return Endpoint{Kind: KindTCP, Host: host}, nil

	case "unix":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return Endpoint{}, fmt.Errorf("ipcendpoint: %q: unix endpoint missing path", raw)
		}
		return Endpoint{Kind: KindUnix, Path: path}, nil

	case "ws", "wss":
		host, err := normalizeHost(u.Host)
		if err != nil {
			return Endpoint{}, fmt.Errorf("ipcendpoint: %q: %w", raw, err)
		}
		return Endpoint{Kind: KindWebSocket, Host: host, Path: u.Path, TLS: u.Scheme == "wss"}, nil

	case "pipe":
		return Endpoint{}, fmt.Errorf("ipcendpoint: %q: pipe:// is not implemented by this client (no grounded named-pipe library in the dependency pack)", raw)

	default:
		return Endpoint{}, fmt.Errorf("ipcendpoint: %q: unrecognized scheme %q", raw, u.Scheme)
	}
}

// normalizeHost validates "host:port", applying IDNA normalization to the
// hostname so internationalized hostnames resolve the same way the rest of
// the module's HTTP-derived dependency surface (golang.org/x/net) expects.
func normalizeHost(hostport string) (string, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", fmt.Errorf("invalid host:port %q: %w", hostport, err)
	}
	if port == "" {
		return "", fmt.Errorf("missing port in %q", hostport)
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// Not every valid loopback hostname (e.g. bracketed IPv6 literals)
		// round-trips through IDNA; fall back to the original host rather
		// than fail a perfectly good "127.0.0.1" or "::1".
		ascii = host
	}

	return net.JoinHostPort(ascii, port), nil
}

// DefaultTCP is the default endpoint per the spec's MCP_IPC_ENDPOINT default.
const DefaultTCP = "tcp://127.0.0.1:7777"
