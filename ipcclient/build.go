package ipcclient

import (
	"context"

	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcfeature"
	"github.com/unity-mcp/bridge-ipc/ipcproto"
)

// BuildPlayer builds a standalone player for target. Gated by build.min.
func (c *Client) BuildPlayer(ctx context.Context, target, outputPath string, development bool) (*ipcproto.BuildPlayerResponse, error) {
	if target == "" || outputPath == "" {
		return nil, ipcerr.New(ipcerr.ProtocolViolation, "build player: target and outputPath must be non-empty")
	}

	sess := c.session()
	if sess == nil {
		return nil, ipcerr.New(ipcerr.SessionClosed, "no active session")
	}
	if err := c.requireFeature(sess, ipcfeature.BuildMin); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, &ipcproto.Request{BuildPlayer: &ipcproto.BuildPlayerRequest{
		Target:      target,
		OutputPath:  outputPath,
		Development: development,
	}})
	if err != nil {
		return nil, err
	}
	return resp.BuildPlayer, nil
}

// BuildBundles builds asset bundles for the given targets. Gated by build.full.
func (c *Client) BuildBundles(ctx context.Context, outputDir string, targets []string) (*ipcproto.BuildBundlesResponse, error) {
	if outputDir == "" {
		return nil, ipcerr.New(ipcerr.ProtocolViolation, "build bundles: outputDir must be non-empty")
	}

	sess := c.session()
	if sess == nil {
		return nil, ipcerr.New(ipcerr.SessionClosed, "no active session")
	}
	if err := c.requireFeature(sess, ipcfeature.BuildFull); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, &ipcproto.Request{BuildBundles: &ipcproto.BuildBundlesRequest{
		OutputDir: outputDir,
		Targets:   targets,
	}})
	if err != nil {
		return nil, err
	}
	return resp.BuildBundles, nil
}
