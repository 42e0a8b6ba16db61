// Package identity holds the immutable caller context — node URL, network
// id, debug flag, and an optional signing key with its derived address —
// that every RPC call and subscription binds to. Mirrors the closed
// network-presets table the teacher keeps for its own chain configs, but
// keyed by numeric network id rather than chain slug.
package identity

import (
	"fmt"
	"strings"

	"github.com/alexdesousa/icon-sub001/internal/config"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// Aliases maps the node's well-known network names to their numeric ids.
var Aliases = map[string]int64{
	"mainnet": 1,
	"lisbon":  2,
	"berlin":  7,
	"sejong":  83,
}

// defaultNodeURLs gives each well-known network id a default endpoint host.
// Host processes may override these via package config.
var defaultNodeURLs = map[int64]string{
	1:  "https://ctz.solidwallet.io",
	2:  "https://lisbon.net.solidwallet.io",
	7:  "https://berlin.net.solidwallet.io",
	83: "https://sejong.net.solidwallet.io",
}

// Identity is immutable once constructed: every field is set by New and
// never mutated afterward, so a single Identity may be shared freely
// across goroutines.
type Identity struct {
	nodeURL    string
	networkID  int64
	debug      bool
	privateKey *secp256k1.PrivateKey
	address    string
}

// Option configures an Identity at construction time.
type Option func(*settings)

type settings struct {
	nodeURL    string
	network    string
	networkID  int64
	debug      bool
	privateKey []byte
	overrides  map[int64]string
	configPath string
}

// DefaultNodeURLs returns a copy of the built-in network-id -> node-URL
// table, for host processes (package config) that want to overlay their own
// overrides on top of it.
func DefaultNodeURLs() map[int64]string {
	out := make(map[int64]string, len(defaultNodeURLs))
	for id, url := range defaultNodeURLs {
		out[id] = url
	}
	return out
}

// WithNodeURLOverrides supplies a network-id -> node-URL table (typically
// loaded by package config from an on-disk override file) consulted before
// the built-in defaults when WithNodeURL is not given.
func WithNodeURLOverrides(overrides map[int64]string) Option {
	return func(s *settings) { s.overrides = overrides }
}

// WithConfigFile points New at a host-supplied icon.toml override file
// (package config's on-disk format); its networks table is merged over the
// built-in defaults, the same table WithNodeURLOverrides accepts directly.
// A missing file is not an error. Combining this with WithNodeURLOverrides
// merges both, with the programmatic overrides winning on key conflicts.
func WithConfigFile(path string) Option {
	return func(s *settings) { s.configPath = path }
}

// WithNetwork resolves a network alias (mainnet, lisbon, berlin, sejong) to
// its numeric id and, unless WithNodeURL is also given, to its default node
// URL.
func WithNetwork(name string) Option {
	return func(s *settings) { s.network = name }
}

// WithNetworkID sets the numeric network id directly, bypassing alias
// resolution.
func WithNetworkID(id int64) Option {
	return func(s *settings) { s.networkID = id }
}

// WithNodeURL overrides the network's default node URL.
func WithNodeURL(url string) Option {
	return func(s *settings) { s.nodeURL = url }
}

// WithDebug routes requests to the node's debug endpoint (/api/v3d).
func WithDebug(debug bool) Option {
	return func(s *settings) { s.debug = debug }
}

// WithPrivateKey attaches a 32-byte SECP256K1 private key; the EOA address
// is derived from it per the node's addressing scheme.
func WithPrivateKey(key []byte) Option {
	return func(s *settings) { s.privateKey = key }
}

// New builds an Identity from the given options. Network id defaults to 1
// (mainnet) when neither WithNetwork nor WithNetworkID is given.
func New(opts ...Option) (*Identity, error) {
	s := &settings{networkID: 1}
	for _, opt := range opts {
		opt(s)
	}

	networkID := s.networkID
	if s.network != "" {
		id, ok := Aliases[strings.ToLower(s.network)]
		if !ok {
			return nil, fmt.Errorf("identity: unknown network alias %q", s.network)
		}
		networkID = id
	}

	overrides := s.overrides
	if s.configPath != "" {
		fileOverrides, err := config.LoadTOML(s.configPath)
		if err != nil {
			return nil, fmt.Errorf("identity: load config file %s: %w", s.configPath, err)
		}
		overrides = config.Apply(fileOverrides, overrides)
	}

	nodeURL := s.nodeURL
	if nodeURL == "" {
		if url, ok := overrides[networkID]; ok {
			nodeURL = url
		} else if url, ok := defaultNodeURLs[networkID]; ok {
			nodeURL = url
		} else {
			return nil, fmt.Errorf("identity: no default node URL for network id %d; set WithNodeURL", networkID)
		}
	}

	id := &Identity{
		nodeURL:   strings.TrimSuffix(nodeURL, "/"),
		networkID: networkID,
		debug:     s.debug,
	}

	if len(s.privateKey) > 0 {
		if len(s.privateKey) != 32 {
			return nil, fmt.Errorf("identity: private key must be 32 bytes, got %d", len(s.privateKey))
		}
		priv := secp256k1.PrivKeyFromBytes(s.privateKey)
		id.privateKey = priv
		addr, err := DeriveAddress(priv)
		if err != nil {
			return nil, err
		}
		id.address = addr
	}

	return id, nil
}

// NodeURL returns the base node URL (no /api/v3 suffix).
func (id *Identity) NodeURL() string { return id.nodeURL }

// NetworkID returns the resolved numeric network id.
func (id *Identity) NetworkID() int64 { return id.networkID }

// Debug reports whether requests should hit the debug endpoint.
func (id *Identity) Debug() bool { return id.debug }

// Address returns the derived EOA address, or "" if no private key was set.
func (id *Identity) Address() string { return id.address }

// PrivateKey returns the signing key, or nil if this identity cannot sign.
func (id *Identity) PrivateKey() *secp256k1.PrivateKey { return id.privateKey }

// RequestURL returns the endpoint a Build'd request should POST to: the
// node URL plus /api/v3, or /api/v3d when debug is set.
func (id *Identity) RequestURL() string {
	if id.debug {
		return id.nodeURL + "/api/v3d"
	}
	return id.nodeURL + "/api/v3"
}

// SubscriptionURL returns the WebSocket endpoint for the given stream
// source ("block" or "event").
func (id *Identity) SubscriptionURL(source string) (string, error) {
	if source != "block" && source != "event" {
		return "", fmt.Errorf("identity: unknown subscription source %q", source)
	}
	wsBase := strings.Replace(strings.Replace(id.nodeURL, "https://", "wss://", 1), "http://", "ws://", 1)
	return fmt.Sprintf("%s/api/v3/icon_dex/%s", wsBase, source), nil
}

// String redacts the private key: callers must never log or print an
// Identity's key material directly.
func (id *Identity) String() string {
	keyState := "none"
	if id.privateKey != nil {
		keyState = "set"
	}
	return fmt.Sprintf("Identity{node_url=%s, network_id=%d, debug=%v, address=%s, private_key=%s}",
		id.nodeURL, id.networkID, id.debug, id.address, keyState)
}

// DeriveAddress computes the "hx"-prefixed EOA address for a SECP256K1
// private key: SHA3-256 of the uncompressed public key with its leading
// 0x04 byte stripped, keeping the last 20 bytes.
func DeriveAddress(priv *secp256k1.PrivateKey) (string, error) {
	pub := priv.PubKey().SerializeUncompressed()
	if len(pub) != 65 {
		return "", fmt.Errorf("identity: unexpected uncompressed pubkey length %d", len(pub))
	}
	digest := sha3.Sum256(pub[1:])
	return "hx" + fmt.Sprintf("%x", digest[len(digest)-20:]), nil
}
