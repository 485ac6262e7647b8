package ipcclient

import (
	"context"

	"github.com/unity-mcp/bridge-ipc/ipcerr"
	"github.com/unity-mcp/bridge-ipc/ipcfeature"
	"github.com/unity-mcp/bridge-ipc/ipcproto"
)

// AssetsImport imports the given asset paths into the open project.
// Gated by assets.basic.
func (c *Client) AssetsImport(ctx context.Context, paths []string) (*ipcproto.AssetsImportResponse, error) {
	if len(paths) == 0 {
		return nil, ipcerr.New(ipcerr.ProtocolViolation, "assets import: paths must be non-empty")
	}

	sess := c.session()
	if sess == nil {
		return nil, ipcerr.New(ipcerr.SessionClosed, "no active session")
	}
	if err := c.requireFeature(sess, ipcfeature.AssetsBasic); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, &ipcproto.Request{AssetsImport: &ipcproto.AssetsImportRequest{Paths: paths}})
	if err != nil {
		return nil, err
	}
	return resp.AssetsImport, nil
}

// AssetsRefresh triggers an AssetDatabase refresh. Gated by assets.basic.
func (c *Client) AssetsRefresh(ctx context.Context) (*ipcproto.AssetsRefreshResponse, error) {
	sess := c.session()
	if sess == nil {
		return nil, ipcerr.New(ipcerr.SessionClosed, "no active session")
	}
	if err := c.requireFeature(sess, ipcfeature.AssetsBasic); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, &ipcproto.Request{AssetsRefresh: &ipcproto.AssetsRefreshRequest{}})
	if err != nil {
		return nil, err
	}
	return resp.AssetsRefresh, nil
}

// AssetsMove moves or renames an asset. Gated by assets.advanced.
func (c *Client) AssetsMove(ctx context.Context, from, to string) (*ipcproto.AssetsMoveResponse, error) {
	if from == "" || to == "" {
		return nil, ipcerr.New(ipcerr.ProtocolViolation, "assets move: from and to must be non-empty")
	}

	sess := c.session()
	if sess == nil {
		return nil, ipcerr.New(ipcerr.SessionClosed, "no active session")
	}
	if err := c.requireFeature(sess, ipcfeature.AssetsAdvanced); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, &ipcproto.Request{AssetsMove: &ipcproto.AssetsMoveRequest{From: from, To: to}})
	if err != nil {
		return nil, err
	}
	return resp.AssetsMove, nil
}
