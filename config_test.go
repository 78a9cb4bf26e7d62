package seaport

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConduitKey = "0x00000000000000000000000000000000000000000000000000000000000000c1"

func TestDefaultAddressBook(t *testing.T) {
	book := DefaultAddressBook()
	for _, id := range []ChainID{ChainIDEthereumMainnet, ChainIDGoerli, ChainIDSepolia, ChainIDPolygonMainnet, ChainIDPolygonMumbai} {
		addrs, err := book.Lookup(id)
		require.NoError(t, err, id.String())
		assert.Equal(t, SeaportV11Address, addrs.Seaport)
		assert.True(t, common.IsHexAddress(addrs.WrappedNative))
	}

	_, err := book.Lookup(31337)
	assert.ErrorIs(t, err, ErrUnsupportedChain)

	// Each call returns an independent copy
	book[ChainIDEthereumMainnet.String()].Conduits[testConduitKey] = ZeroAddress
	assert.NotContains(t, DefaultAddressBook()[ChainIDEthereumMainnet.String()].Conduits, testConduitKey)
}

func TestConduitAddress(t *testing.T) {
	addrs, err := DefaultAddressBook().Lookup(ChainIDEthereumMainnet)
	require.NoError(t, err)

	spender, err := addrs.ConduitAddress(common.Hash{})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(SeaportV11Address), spender)

	spender, err = addrs.ConduitAddress(common.HexToHash(OpenSeaConduitKey))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(OpenSeaConduitAddress), spender)

	_, err = addrs.ConduitAddress(common.HexToHash(testConduitKey))
	assert.ErrorIs(t, err, ErrUnknownConduit)
}

func TestAddressBookMerge(t *testing.T) {
	base := DefaultAddressBook()
	merged := base.Merge(AddressBook{
		"5": {
			WrappedNative: "0x00000000000000000000000000000000000000aa",
			Conduits:      map[string]string{testConduitKey: "0x00000000000000000000000000000000000000bb"},
		},
		"31337": {Seaport: "0x00000000000000000000000000000000000000cc"},
	})

	goerli, err := merged.Lookup(ChainIDGoerli)
	require.NoError(t, err)
	assert.Equal(t, SeaportV11Address, goerli.Seaport)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", goerli.WrappedNative)
	assert.Len(t, goerli.Conduits, 2)

	local, err := merged.Lookup(31337)
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000cc", local.Seaport)

	// The receiver is left alone
	assert.Len(t, base["5"].Conduits, 1)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seaport.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, key := range []string{"SEAPORT_RPC_URL", "SEAPORT_PRIVATE_KEY", "SEAPORT_ADDRESS", "SEAPORT_LOG_LEVEL", "SEAPORT_CHAIN_ID"} {
		t.Setenv(key, "")
	}
}

func TestLoadClientConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
chain_id = 5
rpc_url = "http://localhost:8545"
log_level = "debug"

[chains."5"]
wrapped_native = "0x00000000000000000000000000000000000000aa"

[chains."5".conduits]
"`+testConduitKey+`" = "0x00000000000000000000000000000000000000bb"
`)

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ChainIDGoerli, cfg.ChainID)
	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, "debug", cfg.LogLevel)

	goerli, err := cfg.Chains.Lookup(ChainIDGoerli)
	require.NoError(t, err)
	assert.Equal(t, SeaportV11Address, goerli.Seaport)
	spender, err := goerli.ConduitAddress(common.HexToHash(testConduitKey))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000bb"), spender)

	// Chains absent from the file keep their defaults
	_, err = cfg.Chains.Lookup(ChainIDPolygonMainnet)
	assert.NoError(t, err)
}

func TestLoadClientConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
chain_id = 5
rpc_url = "http://localhost:8545"
`)
	t.Setenv("SEAPORT_RPC_URL", "https://rpc.sepolia.org")
	t.Setenv("SEAPORT_CHAIN_ID", "11155111")
	t.Setenv("SEAPORT_LOG_LEVEL", "warn")

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ChainIDSepolia, cfg.ChainID)
	assert.Equal(t, "https://rpc.sepolia.org", cfg.RPCURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadClientConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadClientConfig("")
	require.NoError(t, err)
	assert.Equal(t, ChainIDEthereumMainnet, cfg.ChainID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Len(t, cfg.Chains, len(DefaultAddressBook()))

	_, err = LoadClientConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadAddressBook(t *testing.T) {
	path := writeConfig(t, `
[chains."31337"]
seaport = "0x00000000000000000000000000000000000000cc"
`)
	book, err := LoadAddressBook(path)
	require.NoError(t, err)

	local, err := book.Lookup(31337)
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000cc", local.Seaport)
	_, err = book.Lookup(ChainIDEthereumMainnet)
	assert.NoError(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
}
