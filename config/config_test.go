package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.json")

	cfg := LoadOrCreate(path)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, Load(path))
}

func TestSaveLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.toml")

	cfg := DefaultConfig()
	cfg.Wallet.KeystoreDir = "/tmp/keys"
	cfg.Wallet.Authorized = []string{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"}
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keystore_dir")

	assert.Equal(t, cfg, Load(path))
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	assert.Equal(t, Config{}, Load(path))
	assert.Equal(t, DefaultConfig(), LoadOrCreate(path))
}

func TestApplyEnv(t *testing.T) {
	t.Run("explicit rpc url wins", func(t *testing.T) {
		t.Setenv(EnvRPCURL, "https://example.org/rpc")
		t.Setenv(EnvAlchemyKey, "secret")
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		assert.Equal(t, "https://example.org/rpc", cfg.RPCURL)
	})

	t.Run("alchemy key fills empty url", func(t *testing.T) {
		t.Setenv(EnvRPCURL, "")
		t.Setenv(EnvAlchemyKey, "secret")
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		assert.Equal(t, AlchemyRinkebyURL+"secret", cfg.RPCURL)
	})

	t.Run("keystore dir", func(t *testing.T) {
		t.Setenv(EnvKeystore, "/keys")
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		assert.Equal(t, "/keys", cfg.Wallet.KeystoreDir)
	})
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Contract.Address = "0x123"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Contract.ChainID = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Wallet.Authorized = []string{"nope"}
	assert.Error(t, cfg.Validate())
}

func TestLimitsDefaults(t *testing.T) {
	var l Limits
	assert.Equal(t, 20*time.Second, l.RequestTimeout())
	assert.Equal(t, 5*time.Minute, l.ConfirmTimeout())
	assert.Equal(t, 8*time.Second, l.PollInterval())
}

func TestActiveNetwork(t *testing.T) {
	cfg := DefaultConfig()
	n, ok := cfg.ActiveNetwork()
	require.True(t, ok)
	assert.Equal(t, "Rinkeby", n.Name)

	cfg.Networks = nil
	_, ok = cfg.ActiveNetwork()
	assert.False(t, ok)
}
