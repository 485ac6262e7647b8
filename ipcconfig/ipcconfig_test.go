package ipcconfig

import (
	"os"
	"testing"
	"time"
)

func TestNewAppliesDefaults(t *testing.T) {
	cfg := New()
	if cfg.Endpoint.Host != "127.0.0.1:7777" {
		t.Errorf("default endpoint host = %q", cfg.Endpoint.Host)
	}
	if cfg.CallTimeout != 30*time.Second {
		t.Errorf("default CallTimeout = %v, want 30s", cfg.CallTimeout)
	}
	if cfg.DesiredFeatures.Len() != 7 {
		t.Errorf("default feature set len = %d, want 7", cfg.DesiredFeatures.Len())
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg := New(WithToken("secret"), WithCallTimeout(2*time.Second), WithDesiredFeatures("assets.basic"))
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want secret", cfg.Token)
	}
	if cfg.CallTimeout != 2*time.Second {
		t.Errorf("CallTimeout = %v, want 2s", cfg.CallTimeout)
	}
	if cfg.DesiredFeatures.Len() != 1 {
		t.Errorf("DesiredFeatures len = %d, want 1", cfg.DesiredFeatures.Len())
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("MCP_IPC_TOKEN", "env-token")
	t.Setenv("MCP_IPC_CALL_TIMEOUT_MS", "1500")
	t.Setenv("UNITY_MCP_NOTIFICATIONS", "false")

	opts, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	cfg := New(opts...)

	if cfg.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cfg.Token)
	}
	if cfg.CallTimeout != 1500*time.Millisecond {
		t.Errorf("CallTimeout = %v, want 1500ms", cfg.CallTimeout)
	}
	if cfg.NotificationsEnabled {
		t.Error("NotificationsEnabled = true, want false")
	}
}

func TestFromEnvRejectsMalformedTimeout(t *testing.T) {
	t.Setenv("MCP_IPC_CONNECT_TIMEOUT_MS", "not-a-number")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for malformed timeout")
	}
}

func TestFromEnvIgnoresAbsentVars(t *testing.T) {
	os.Unsetenv("MCP_IPC_TOKEN")
	opts, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	cfg := New(opts...)
	if cfg.Token != "" {
		t.Errorf("Token = %q, want empty", cfg.Token)
	}
}
