package ipcclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/unity-mcp/bridge-ipc/ipcconfig"
	"github.com/unity-mcp/bridge-ipc/ipcendpoint"
	"github.com/unity-mcp/bridge-ipc/ipcframe"
	"github.com/unity-mcp/bridge-ipc/ipcproto"
)

// fakeBridge accepts one connection, completes the handshake with the given
// accepted features, then answers every request with a canned OK response
// keyed by which request field was set.
func fakeBridge(t *testing.T, ln net.Listener, accepted []string) {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	data, err := ipcframe.ReadFrame(conn)
	if err != nil {
		t.Errorf("fakeBridge: read hello: %v", err)
		return
	}
	if _, err := ipcproto.UnmarshalControl(data); err != nil {
		t.Errorf("fakeBridge: decode hello: %v", err)
		return
	}

	welcome := &ipcproto.Control{Welcome: &ipcproto.Welcome{
		IpcVersion:       ipcproto.IPCVersion,
		AcceptedFeatures: accepted,
		SchemaHash:       ipcproto.SchemaHash,
		SessionID:        "sess-client-test",
	}}
	out, err := welcome.Marshal()
	if err != nil {
		t.Errorf("fakeBridge: marshal welcome: %v", err)
		return
	}
	if err := ipcframe.WriteFrame(conn, out); err != nil {
		t.Errorf("fakeBridge: write welcome: %v", err)
		return
	}

	for {
		data, err := ipcframe.ReadFrame(conn)
		if err != nil {
			return
		}
		env, err := ipcproto.UnmarshalEnvelope(data)
		if err != nil {
			t.Errorf("fakeBridge: decode envelope: %v", err)
			return
		}
		if env.Request == nil {
			continue
		}

		resp := &ipcproto.Response{Status: ipcproto.StatusOK}
		switch {
		case env.Request.Health != nil:
			resp.Health = &ipcproto.HealthResponse{Ready: true, Version: "1.2.3"}
		case env.Request.AssetsImport != nil:
			resp.AssetsImport = &ipcproto.AssetsImportResponse{Imported: env.Request.AssetsImport.Paths}
		case env.Request.AssetsRefresh != nil:
			resp.AssetsRefresh = &ipcproto.AssetsRefreshResponse{RefreshedCount: 3}
		case env.Request.BuildPlayer != nil:
			resp.BuildPlayer = &ipcproto.BuildPlayerResponse{Succeeded: true, OutputPath: env.Request.BuildPlayer.OutputPath}
		}

		replyEnv := &ipcproto.Envelope{CorrelationID: env.CorrelationID, Response: resp}
		replyData, err := replyEnv.Marshal()
		if err != nil {
			t.Errorf("fakeBridge: marshal response: %v", err)
			return
		}
		if err := ipcframe.WriteFrame(conn, replyData); err != nil {
			return
		}
	}
}

func startClient(t *testing.T, accepted []string) (*Client, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go fakeBridge(t, ln, accepted)

	ep, err := ipcendpoint.Parse("tcp://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}

	cfg := ipcconfig.New(ipcconfig.WithEndpoint(ep), ipcconfig.WithCallTimeout(2*time.Second))
	c, err := Connect(context.Background(), cfg)
	if err != nil {
		ln.Close()
		t.Fatalf("Connect: %v", err)
	}
	return c, func() { c.Close(); ln.Close() }
}

func TestHealthAlwaysAvailable(t *testing.T) {
	c, cleanup := startClient(t, nil)
	defer cleanup()

	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !resp.Ready || resp.Version != "1.2.3" {
		t.Errorf("Health response = %+v", resp)
	}
}

func TestAssetsImportGatedByFeature(t *testing.T) {
	c, cleanup := startClient(t, nil) // no features accepted
	defer cleanup()

	_, err := c.AssetsImport(context.Background(), []string{"Assets/a.png"})
	if err == nil {
		t.Fatal("expected FeatureUnavailable when assets.basic was not negotiated")
	}
}

func TestAssetsImportSucceedsWhenNegotiated(t *testing.T) {
	c, cleanup := startClient(t, []string{"assets.basic"})
	defer cleanup()

	resp, err := c.AssetsImport(context.Background(), []string{"Assets/a.png", "Assets/b.png"})
	if err != nil {
		t.Fatalf("AssetsImport: %v", err)
	}
	if len(resp.Imported) != 2 {
		t.Errorf("Imported = %v", resp.Imported)
	}
}

func TestAssetsImportRejectsEmptyPaths(t *testing.T) {
	c, cleanup := startClient(t, []string{"assets.basic"})
	defer cleanup()

	if _, err := c.AssetsImport(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty paths")
	}
}

func TestBuildPlayerGatedByFeature(t *testing.T) {
	c, cleanup := startClient(t, []string{"assets.basic"}) // build.min not accepted
	defer cleanup()

	_, err := c.BuildPlayer(context.Background(), "StandaloneLinux64", "/tmp/out", true)
	if err == nil {
		t.Fatal("expected FeatureUnavailable when build.min was not negotiated")
	}
}

func TestBuildPlayerSucceedsWhenNegotiated(t *testing.T) {
	c, cleanup := startClient(t, []string{"build.min"})
	defer cleanup()

	resp, err := c.BuildPlayer(context.Background(), "StandaloneLinux64", "/tmp/out", true)
	if err != nil {
		t.Fatalf("BuildPlayer: %v", err)
	}
	if !resp.Succeeded || resp.OutputPath != "/tmp/out" {
		t.Errorf("BuildPlayer response = %+v", resp)
	}
}

func TestNegotiatedFeaturesReflectsWelcome(t *testing.T) {
	c, cleanup := startClient(t, []string{"assets.basic", "events.log"})
	defer cleanup()

	feats := c.NegotiatedFeatures()
	if feats.Len() != 2 {
		t.Errorf("NegotiatedFeatures len = %d, want 2", feats.Len())
	}
}

func TestStatsReportsSessionID(t *testing.T) {
	c, cleanup := startClient(t, nil)
	defer cleanup()

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.SessionID != "sess-client-test" {
		t.Errorf("SessionID = %q", stats.SessionID)
	}
}
