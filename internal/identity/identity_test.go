package identity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefaultsToMainnet(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.NetworkID() != 1 {
		t.Fatalf("expected default network id 1, got %d", id.NetworkID())
	}
	if id.Debug() {
		t.Fatalf("expected debug false by default")
	}
}

func TestNewResolvesNetworkAlias(t *testing.T) {
	id, err := New(WithNetwork("lisbon"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.NetworkID() != 2 {
		t.Fatalf("expected lisbon to resolve to network id 2, got %d", id.NetworkID())
	}
}

func TestNewUnknownAliasFails(t *testing.T) {
	if _, err := New(WithNetwork("nowhere")); err == nil {
		t.Fatalf("expected error for unknown network alias")
	}
}

func TestNewNodeURLOverride(t *testing.T) {
	id, err := New(WithNetwork("mainnet"), WithNodeURL("https://custom.example/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.NodeURL() != "https://custom.example" {
		t.Fatalf("expected trailing slash trimmed, got %q", id.NodeURL())
	}
}

func TestWithConfigFileOverridesDefaultNodeURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.toml")
	content := "[networks]\n1 = \"https://custom-mainnet.example\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	id, err := New(WithNetwork("mainnet"), WithConfigFile(path))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.NodeURL() != "https://custom-mainnet.example" {
		t.Fatalf("expected config file override to win, got %q", id.NodeURL())
	}
}

func TestWithConfigFileMissingFileFallsBackToDefaults(t *testing.T) {
	id, err := New(WithNetwork("mainnet"), WithConfigFile(filepath.Join(t.TempDir(), "missing.toml")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.NodeURL() != "https://ctz.solidwallet.io" {
		t.Fatalf("expected default node url when config file is absent, got %q", id.NodeURL())
	}
}

func TestWithNodeURLOverridesWinsOverConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.toml")
	content := "[networks]\n1 = \"https://file.example\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	id, err := New(
		WithNetwork("mainnet"),
		WithConfigFile(path),
		WithNodeURLOverrides(map[int64]string{1: "https://programmatic.example"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.NodeURL() != "https://programmatic.example" {
		t.Fatalf("expected programmatic override to win over config file, got %q", id.NodeURL())
	}
}

func TestRequestURLDebugToggle(t *testing.T) {
	id, err := New(WithNodeURL("https://node.example"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.RequestURL() != "https://node.example/api/v3" {
		t.Fatalf("unexpected request url: %s", id.RequestURL())
	}

	dbg, err := New(WithNodeURL("https://node.example"), WithDebug(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if dbg.RequestURL() != "https://node.example/api/v3d" {
		t.Fatalf("unexpected debug request url: %s", dbg.RequestURL())
	}
}

func TestSubscriptionURL(t *testing.T) {
	id, err := New(WithNodeURL("https://node.example"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	url, err := id.SubscriptionURL("block")
	if err != nil {
		t.Fatalf("SubscriptionURL: %v", err)
	}
	if url != "wss://node.example/api/v3/icon_dex/block" {
		t.Fatalf("unexpected subscription url: %s", url)
	}
	if _, err := id.SubscriptionURL("bogus"); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestWithPrivateKeyDerivesAddress(t *testing.T) {
	key := make([]byte, 32)
	key[31] = 1
	id, err := New(WithNodeURL("https://node.example"), WithPrivateKey(key))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.HasPrefix(id.Address(), "hx") {
		t.Fatalf("expected hx-prefixed address, got %q", id.Address())
	}
	if len(id.Address()) != 42 {
		t.Fatalf("expected 42-char address, got %d chars: %q", len(id.Address()), id.Address())
	}
}

func TestWithPrivateKeyWrongLengthFails(t *testing.T) {
	if _, err := New(WithNodeURL("https://node.example"), WithPrivateKey([]byte{1, 2, 3})); err == nil {
		t.Fatalf("expected error for short private key")
	}
}

func TestStringRedactsKey(t *testing.T) {
	key := make([]byte, 32)
	key[31] = 1
	id, err := New(WithNodeURL("https://node.example"), WithPrivateKey(key))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if strings.Contains(id.String(), "01") {
		t.Fatalf("identity string must not leak key material: %s", id.String())
	}
	if !strings.Contains(id.String(), "private_key=set") {
		t.Fatalf("expected redacted key marker, got %s", id.String())
	}
}
