package seaport

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// ChainID represents a blockchain chain ID
type ChainID int

const (
	ChainIDEthereumMainnet ChainID = 1
	ChainIDGoerli          ChainID = 5
	ChainIDPolygonMainnet  ChainID = 137
	ChainIDPolygonMumbai   ChainID = 80001
	ChainIDSepolia         ChainID = 11155111
)

func (id ChainID) String() string {
	return strconv.Itoa(int(id))
}

const (
	// SeaportV11Address is the Seaport 1.1 deployment, identical on every supported chain
	SeaportV11Address = "0x00000000006c3852cbEf3e08E8dF289169EdE581"

	// OpenSeaConduitKey selects the OpenSea conduit
	OpenSeaConduitKey     = "0x0000007b02230091a7ed01230072f7006a004d60a8d4e71d599b8104250f0000"
	OpenSeaConduitAddress = "0x1E0049783F008A0085193E00003D00cd54003c71"
)

// ChainAddresses holds contract addresses for one chain
type ChainAddresses struct {
	Seaport       string `toml:"seaport"`
	WrappedNative string `toml:"wrapped_native"`

	// Conduits maps a conduit key (hex) to the conduit address
	Conduits map[string]string `toml:"conduits"`
}

// ConduitAddress returns the address that moves tokens for conduitKey.
// The zero key means no conduit: Seaport itself is the spender.
func (a ChainAddresses) ConduitAddress(conduitKey common.Hash) (common.Address, error) {
	if conduitKey == (common.Hash{}) {
		return common.HexToAddress(a.Seaport), nil
	}
	for key, addr := range a.Conduits {
		if common.HexToHash(key) == conduitKey {
			return common.HexToAddress(addr), nil
		}
	}
	return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownConduit, conduitKey.Hex())
}

// AddressBook maps a decimal chain id to its contract addresses
type AddressBook map[string]ChainAddresses

// DefaultAddressBook returns a fresh copy of the built-in address book
func DefaultAddressBook() AddressBook {
	conduits := func() map[string]string {
		return map[string]string{OpenSeaConduitKey: OpenSeaConduitAddress}
	}
	return AddressBook{
		ChainIDEthereumMainnet.String(): {
			Seaport:       SeaportV11Address,
			WrappedNative: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			Conduits:      conduits(),
		},
		ChainIDGoerli.String(): {
			Seaport:       SeaportV11Address,
			WrappedNative: "0xB4FBF271143F4FBf7B91A5ded31805e42b2208d6",
			Conduits:      conduits(),
		},
		ChainIDSepolia.String(): {
			Seaport:       SeaportV11Address,
			WrappedNative: "0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9",
			Conduits:      conduits(),
		},
		ChainIDPolygonMainnet.String(): {
			Seaport:       SeaportV11Address,
			WrappedNative: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
			Conduits:      conduits(),
		},
		ChainIDPolygonMumbai.String(): {
			Seaport:       SeaportV11Address,
			WrappedNative: "0x9c3C9283D3e44854697Cd22D3Faa240Cfb032889",
			Conduits:      conduits(),
		},
	}
}

// Lookup returns the addresses for chainID
func (b AddressBook) Lookup(chainID ChainID) (ChainAddresses, error) {
	addrs, ok := b[chainID.String()]
	if !ok {
		return ChainAddresses{}, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	return addrs, nil
}

// Merge overlays other onto a copy of b. Empty fields in other keep the
// value already in b and conduit maps are merged key by key.
func (b AddressBook) Merge(other AddressBook) AddressBook {
	out := make(AddressBook, len(b)+len(other))
	for id, addrs := range b {
		out[id] = addrs.copy()
	}
	for id, addrs := range other {
		cur := out[id].copy()
		if addrs.Seaport != "" {
			cur.Seaport = addrs.Seaport
		}
		if addrs.WrappedNative != "" {
			cur.WrappedNative = addrs.WrappedNative
		}
		for key, conduit := range addrs.Conduits {
			cur.Conduits[key] = conduit
		}
		out[id] = cur
	}
	return out
}

func (a ChainAddresses) copy() ChainAddresses {
	conduits := make(map[string]string, len(a.Conduits))
	for k, v := range a.Conduits {
		conduits[k] = v
	}
	a.Conduits = conduits
	return a
}

// LoadAddressBook reads [chains."<id>"] tables from a TOML file and merges
// them over the defaults.
func LoadAddressBook(path string) (AddressBook, error) {
	var file struct {
		Chains AddressBook `toml:"chains"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode address book %s: %w", path, err)
	}
	return DefaultAddressBook().Merge(file.Chains), nil
}

// ClientConfig holds configuration for creating a Client
type ClientConfig struct {
	ChainID    ChainID `toml:"chain_id"`
	RPCURL     string  `toml:"rpc_url"`
	PrivateKey string  `toml:"private_key"`

	// SeaportAddr overrides the address book entry for the chain
	SeaportAddr string `toml:"seaport_address"`

	LogLevel string      `toml:"log_level"`
	Chains   AddressBook `toml:"chains"`

	Logger *slog.Logger `toml:"-"`
}

// DefaultClientConfig returns the configuration used before any file or
// environment override is applied.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ChainID:  ChainIDEthereumMainnet,
		LogLevel: "info",
	}
}

// LoadClientConfig reads a TOML configuration file at path, merges it on top
// of the defaults and applies SEAPORT_* environment overrides. An empty path
// skips the file.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	cfg.Chains = DefaultAddressBook().Merge(cfg.Chains)
	return &cfg, nil
}

func applyEnvOverrides(cfg *ClientConfig) {
	setStr(&cfg.RPCURL, "SEAPORT_RPC_URL")
	setStr(&cfg.PrivateKey, "SEAPORT_PRIVATE_KEY")
	setStr(&cfg.SeaportAddr, "SEAPORT_ADDRESS")
	setStr(&cfg.LogLevel, "SEAPORT_LOG_LEVEL")

	var chainID int
	setInt(&chainID, "SEAPORT_CHAIN_ID")
	if chainID != 0 {
		cfg.ChainID = ChainID(chainID)
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// ParseLogLevel maps debug, info, warn and error to a slog level. Anything else is info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
