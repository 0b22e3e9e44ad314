package cmd_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "tokendash-cli-test")
	if err != nil {
		panic(err)
	}
	binaryPath = filepath.Join(tmp, "tokendash")
	build := exec.Command("go", "build", "-o", binaryPath, ".")
	build.Dir = ".."
	if out, err := build.CombinedOutput(); err != nil {
		os.RemoveAll(tmp)
		panic("build failed: " + string(out))
	}
	code := m.Run()
	os.RemoveAll(tmp)
	os.Exit(code)
}

func runCLI(t *testing.T, configDir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "TOKENDASH_CONFIG_DIR="+configDir)
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

const watchAddr = "0x1234567890abcdef1234567890abcdef12345678"

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "tokendash")
	assert.Contains(t, out, "0.1.0")
}

func TestHelpListsCommands(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "--help")
	require.NoError(t, err)
	for _, c := range []string{"dashboard", "status", "op", "wallet", "config", "network", "--testnet", "--yes"} {
		assert.Contains(t, out, c)
	}
}

func TestOpHelpListsKinds(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "op", "--help")
	require.NoError(t, err)
	for _, k := range []string{"transfer", "approve", "mint", "burn", "blacklist", "toggle-pause", "transfer-ownership", "--new-owner"} {
		assert.Contains(t, out, k)
	}
}

func TestOpRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "", "op", "selfdestruct")
	assert.Error(t, err)
	assert.Contains(t, out, "selfdestruct")

	out, err = runCLI(t, dir, "", "op", "transfer", "--to", watchAddr)
	assert.Error(t, err)
	assert.Contains(t, out, "--amount")
}

func TestNetworkList(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "network", "list")
	require.NoError(t, err)
	for _, c := range []string{"ethereum", "base", "polygon", "arbitrum"} {
		assert.Contains(t, strings.ToLower(out), c)
	}
}

func TestNetworkUse(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "", "--mainnet", "network", "use", "base")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"network": "base"`)
	assert.Contains(t, out, `"network_mode": "mainnet"`)
}

func TestNetworkUseUnknown(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "", "network", "use", "unknownchain99")
	assert.Error(t, err)
}

func TestNetworkRPCAddRemove(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "", "network", "rpc", "add", "base", "https://custom.rpc.example")
	require.NoError(t, err)
	out, _ := runCLI(t, dir, "", "config", "show")
	assert.Contains(t, out, "custom.rpc.example")

	_, err = runCLI(t, dir, "", "network", "rpc", "add", "base", "https://custom.rpc.example")
	assert.Error(t, err, "duplicate")

	_, err = runCLI(t, dir, "", "network", "rpc", "remove", "base", "https://custom.rpc.example")
	require.NoError(t, err)
	out, _ = runCLI(t, dir, "", "config", "show")
	assert.NotContains(t, out, "custom.rpc.example")
}

func TestConfigShowDefaults(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "0x1c2ff585120219e552a4c3a6ce5b6345cb1efa2c")
	assert.Contains(t, out, "status_display_ms")
	assert.Contains(t, out, "finality_timeout")
}

func TestConfigSet(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "", "config", "set", "status_display_ms", "5000")
	require.NoError(t, err)
	out, _ := runCLI(t, dir, "", "config", "show")
	assert.Contains(t, out, "5000")

	_, err = runCLI(t, dir, "", "config", "set", "network_mode", "devnet")
	assert.Error(t, err)
	_, err = runCLI(t, dir, "", "config", "set", "no_such_key", "1")
	assert.Error(t, err)
}

func TestEnvOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	cmd := exec.Command(binaryPath, "config", "show")
	cmd.Dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cmd.Dir, ".env"), []byte("TOKENDASH_NETWORK=polygon\n"), 0o600))
	cmd.Env = append(os.Environ(), "TOKENDASH_CONFIG_DIR="+dir)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"network": "polygon"`)
}

func TestWalletAddListRemove(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "", "wallet", "add", "watcher", watchAddr)
	require.NoError(t, err)

	out, err := runCLI(t, dir, "", "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "watcher")
	assert.Contains(t, out, watchAddr)

	out, err = runCLI(t, dir, "n\n", "wallet", "remove", "watcher")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	_, err = runCLI(t, dir, "y\n", "wallet", "remove", "watcher")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "", "wallet", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "watcher")
}

func TestWalletAddWatchOnlyNeedsAddress(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "wallet", "add", "nokey")
	assert.Error(t, err)
	assert.Contains(t, out, "--key")
}

func TestTestnetMainnetMutuallyExclusive(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "", "--testnet", "--mainnet", "config", "show")
	assert.Error(t, err)
}

func TestUnknownCommandShowsError(t *testing.T) {
	out, _ := runCLI(t, t.TempDir(), "", "unknowncommand")
	assert.Contains(t, strings.ToLower(out), "unknown command")
}
