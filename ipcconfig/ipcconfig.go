// Package ipcconfig builds the Config a Client connects with: functional
// options layered over defaults, with an explicit FromEnv overlay the
// caller opts into.
package ipcconfig

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/unity-mcp/bridge-ipc/ipcendpoint"
	"github.com/unity-mcp/bridge-ipc/ipcfeature"
	"github.com/unity-mcp/bridge-ipc/ipcsession"
)

// Config is the fully resolved configuration a Client is built from.
type Config struct {
	Endpoint      ipcendpoint.Endpoint
	Token         string
	ProjectRoot   string
	ClientName    string
	ClientVersion string

	DesiredFeatures ipcfeature.Set

	ConnectTimeout        time.Duration
	HandshakeTimeout      time.Duration
	TotalHandshakeTimeout time.Duration
	CallTimeout           time.Duration

	NotificationsEnabled bool

	CorrelationStyle ipcsession.CorrelationStyle

	Logger *slog.Logger
}

// Option mutates a Config during construction.
type Option func(*Config)

func WithEndpoint(ep ipcendpoint.Endpoint) Option {
	return func(c *Config) { c.Endpoint = ep }
}

func WithToken(token string) Option {
	return func(c *Config) { c.Token = token }
}

func WithProjectRoot(root string) Option {
	return func(c *Config) { c.ProjectRoot = root }
}

func WithClientIdentity(name, version string) Option {
	return func(c *Config) { c.ClientName = name; c.ClientVersion = version }
}

func WithDesiredFeatures(features ...string) Option {
	return func(c *Config) { c.DesiredFeatures = ipcfeature.NewSet(features...) }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}

func WithCallTimeout(d time.Duration) Option {
	return func(c *Config) { c.CallTimeout = d }
}

func WithNotifications(enabled bool) Option {
	return func(c *Config) { c.NotificationsEnabled = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// defaultFeatures is the full recognized vocabulary: a caller that doesn't
// narrow it down gets whatever the server is willing to accept.
func defaultFeatures() ipcfeature.Set {
	return ipcfeature.NewSet(
		"assets.basic", "build.min", "events.log", "ops.progress",
		"assets.advanced", "build.full", "events.full",
	)
}

// New builds a Config from defaults plus opts. It does not read the
// environment; call FromEnv first and pass the Options it returns to New.
func New(opts ...Option) Config {
	cfg := Config{
		Endpoint:              mustParse(ipcendpoint.DefaultTCP),
		DesiredFeatures:       defaultFeatures(),
		ConnectTimeout:        5 * time.Second,
		HandshakeTimeout:      2 * time.Second,
		TotalHandshakeTimeout: 3 * time.Second,
		CallTimeout:           30 * time.Second,
		NotificationsEnabled:  true,
		Logger:                slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func mustParse(raw string) ipcendpoint.Endpoint {
	ep, err := ipcendpoint.Parse(raw)
	if err != nil {
		panic("ipcconfig: default endpoint failed to parse: " + err.Error())
	}
	return ep
}

// FromEnv reads the process environment and returns the Options needed to
// overlay it onto a Config built by New. Variables absent from the
// environment leave the corresponding field untouched. Malformed values
// (a non-numeric timeout, an unparsable endpoint) are reported as an error
// rather than silently ignored, since they usually indicate a typo in the
// caller's environment rather than an intentional default.
func FromEnv() ([]Option, error) {
	var opts []Option

	if v, ok := os.LookupEnv("MCP_IPC_ENDPOINT"); ok {
		ep, err := ipcendpoint.Parse(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithEndpoint(ep))
	}

	if v, ok := os.LookupEnv("MCP_IPC_TOKEN"); ok {
		opts = append(opts, WithToken(v))
	}

	if v, ok := os.LookupEnv("MCP_PROJECT_ROOT"); ok {
		opts = append(opts, WithProjectRoot(v))
	}

	if v, ok := os.LookupEnv("MCP_IPC_CONNECT_TIMEOUT_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithConnectTimeout(time.Duration(ms)*time.Millisecond))
	}

	if v, ok := os.LookupEnv("MCP_IPC_CALL_TIMEOUT_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCallTimeout(time.Duration(ms)*time.Millisecond))
	}

	if v, ok := os.LookupEnv("UNITY_MCP_NOTIFICATIONS"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithNotifications(enabled))
	}

	return opts, nil
}

// SessionConfig projects a Config down to the subset ipcsession.Handshake
// needs.
func (c Config) SessionConfig() ipcsession.Config {
	return ipcsession.Config{
		Token:                 c.Token,
		ProjectRoot:           c.ProjectRoot,
		ClientName:            c.ClientName,
		ClientVersion:         c.ClientVersion,
		DesiredFeatures:       c.DesiredFeatures,
		HandshakeTimeout:      c.HandshakeTimeout,
		TotalHandshakeTimeout: c.TotalHandshakeTimeout,
		CallTimeout:           c.CallTimeout,
		CorrelationStyle:      c.CorrelationStyle,
		Logger:                c.Logger,
	}
}
