package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/unity-mcp/bridge-ipc/ipcclient"
	"github.com/unity-mcp/bridge-ipc/ipcconfig"
	"github.com/unity-mcp/bridge-ipc/ipcerr"
)

// main is a smoke-test entrypoint: connect to the hosted Unity Bridge named
// by MCP_IPC_ENDPOINT, call Health once, and exit. The MCP server embeds
// ipcclient.Client directly rather than shelling out to this binary; main
// exists for manual verification against a running Bridge.
func main() {
	envOpts, err := ipcconfig.FromEnv()
	if err != nil {
		log.Fatalf("main: bad IPC environment: %v", err)
	}

	opts := append([]ipcconfig.Option{
		ipcconfig.WithClientIdentity("unity-mcp-bridge-ipc", "dev"),
	}, envOpts...)
	cfg := ipcconfig.New(opts...)

	ctx := context.Background()
	client, err := ipcclient.Connect(ctx, cfg)
	if err != nil {
		var ipcErr *ipcerr.Error
		if errors.As(err, &ipcErr) && ipcErr.Hint() != "" {
			log.Fatalf("main: connect failed: %v (%s)", err, ipcErr.Hint())
		}
		log.Fatalf("main: connect failed: %v", err)
	}
	defer client.Close()

	health, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("main: health check failed: %v", err)
	}

	slog.Default().Info("bridge healthy",
		"ready", health.Ready,
		"version", health.Version,
		"features", strings.Join(client.NegotiatedFeatures().Wire(), ","),
	)
	os.Exit(0)
}
