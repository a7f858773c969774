package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tve/scum-tuning/tuning"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scum-tune.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func Test_Load_Defaults(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 17, cfg.Mote.InitialChannel)
	assert.Equal(t, 11, cfg.Mote.CalStart)
	assert.Equal(t, 26, cfg.Mote.CalEnd)
	assert.Equal(t, "bare-metal", cfg.Mote.Mode)
}

func Test_Load_Overrides(t *testing.T) {
	path := writeTemp(t, `
debug = true

[mote]
initial_channel = 20
cal_start = 15
cal_end = 25
mode = "mac"

[mqtt]
host = "broker.local"
port = 1883
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 20, cfg.Mote.InitialChannel)
	assert.Equal(t, "mac", cfg.Mote.Mode)
	assert.Equal(t, "broker.local", cfg.Mqtt.Host)
	assert.Equal(t, 1883, cfg.Mqtt.Port)
}

func Test_Load_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml"))
	assert.Error(t, err)
}

func Test_Validate_RejectsInvertedRange(t *testing.T) {
	cfg := Defaults()
	cfg.Mote.CalStart, cfg.Mote.CalEnd = 20, 11
	assert.Error(t, cfg.Validate())
}

func Test_Validate_RejectsOutOfRangeInitialChannel(t *testing.T) {
	cfg := Defaults()
	cfg.Mote.InitialChannel = 5
	assert.Error(t, cfg.Validate())
}

func Test_Validate_RejectsBadMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mote.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func Test_ApplyOverrides_SetsTuningVars(t *testing.T) {
	orig := tuning.MidPerCoarseTransition
	defer func() { tuning.MidPerCoarseTransition = orig }()

	v := byte(14)
	cfg := Defaults()
	cfg.Mote.MidPerCoarseTransition = &v
	cfg.ApplyOverrides()

	assert.Equal(t, byte(14), tuning.MidPerCoarseTransition)
}
