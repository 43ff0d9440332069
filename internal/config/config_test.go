package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, c diskConfig) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	b, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func readConfigFile(t *testing.T, path string) diskConfig {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var c diskConfig
	require.NoError(t, json.Unmarshal(b, &c))
	return c
}

type diskConfig struct {
	SendRoutePeriodSeconds    int    `json:"send_route_period_seconds,omitempty"`
	SendRouteFastReplySeconds int    `json:"send_route_fast_reply_seconds,omitempty"`
	RouteExpirySeconds        int    `json:"route_expiry_seconds,omitempty"`
	MaxHops                   int    `json:"max_hops,omitempty"`
	ListenAddr                string `json:"listen_addr,omitempty"`
}

func TestConfig_LoadAndAccessors(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, diskConfig{SendRoutePeriodSeconds: 60, MaxHops: 6, ListenAddr: ":8080"})

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 60*time.Second, cfg.SendRoutePeriod())
	require.Equal(t, 6, cfg.MaxHops)
	require.Equal(t, ":8080", cfg.ListenAddress())

	require.Eventually(t, func() bool {
		select {
		case <-cfg.Changed():
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConfig_UpdateFromJSONPersistsAndNotifies(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, diskConfig{SendRoutePeriodSeconds: 60})
	cfg, err := Load(path)
	require.NoError(t, err)

	update, err := json.Marshal(diskConfig{SendRoutePeriodSeconds: 30, MaxHops: 4})
	require.NoError(t, err)
	require.NoError(t, cfg.UpdateFromJSON(update))

	onDisk := readConfigFile(t, path)
	require.Equal(t, 30, onDisk.SendRoutePeriodSeconds)
	require.Equal(t, 4, onDisk.MaxHops)

	require.Eventually(t, func() bool {
		select {
		case <-cfg.Changed():
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConfig_UpdateFromJSONRejectsMalformed(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, diskConfig{})
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Error(t, cfg.UpdateFromJSON([]byte("{not-json")))
}

func TestConfig_LoadMissingFileReturnsError(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestConfig_ChangedReturnsSameChannelInstance(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, diskConfig{})
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Changed(), cfg.Changed())
}

func TestConfig_AtomicWriteNeverYieldsPartialJSON(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, diskConfig{})
	cfg, err := Load(path)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			update, _ := json.Marshal(diskConfig{SendRoutePeriodSeconds: i})
			require.NoError(t, cfg.UpdateFromJSON(update))
		}
		close(done)
	}()

	for i := 0; i < 400; i++ {
		_ = readConfigFile(t, path)
	}
	<-done
}
