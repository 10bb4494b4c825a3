package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/intuitionamiga/IntuitionHandheld/audio"
	"github.com/intuitionamiga/IntuitionHandheld/kernel"
)

// isolateConfig keeps the host's config directory and INTUITION_* variables
// out of the test.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func testFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("scale", 2, "")
	fs.Bool("headless", false, "")
	fs.Duration("case-delay", kernel.DefaultCaseDelay, "")
	fs.String("storage", "", "")
	fs.String("log-level", "info", "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := isolateConfig(t)

	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Display.Scale)
	require.False(t, cfg.Display.Headless)
	require.Equal(t, 500*time.Microsecond, cfg.Input.PollInterval)
	require.Equal(t, kernel.DefaultSettleDelay, cfg.Input.SettleDelay)
	require.Equal(t, kernel.DefaultCaseDelay, cfg.Harness.CaseDelay)
	require.True(t, cfg.Audio.Enabled)
	require.Equal(t, audio.DefaultSampleRate, cfg.Audio.SampleRate)
	require.Equal(t, 256, cfg.Script.CallStackSize)
	require.Equal(t, filepath.Join(dir, appDir, "scripts.db"), cfg.Storage.Path)
	require.Equal(t, 8*time.Second, cfg.Watchdog.Timeout)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_Layering(t *testing.T) {
	dir := isolateConfig(t)
	file := filepath.Join(dir, "handheld.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
display:
  scale: 3
  headless: true
harness:
  case_delay: 2s
audio:
  enabled: false
log:
  level: debug
`), 0o644))
	t.Setenv("INTUITION_HARNESS_CASE_DELAY", "3s")
	t.Setenv("INTUITION_AUDIO_SAMPLE_RATE", "22050")

	fs := testFlags(t)
	require.NoError(t, fs.Parse([]string{"--scale=4"}))

	cfg, err := loadConfig(file, fs)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Display.Scale, "flag beats file")
	require.True(t, cfg.Display.Headless, "file beats default")
	require.Equal(t, 3*time.Second, cfg.Harness.CaseDelay, "env beats file")
	require.Equal(t, 22050, cfg.Audio.SampleRate)
	require.False(t, cfg.Audio.Enabled)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_SearchPathIsOptional(t *testing.T) {
	dir := isolateConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, appDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, appDir, "config.yaml"),
		[]byte("upload:\n  inbox: /srv/inbox\n"), 0o644))

	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	require.Equal(t, "/srv/inbox", cfg.Upload.Inbox)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	dir := isolateConfig(t)
	_, err := loadConfig(filepath.Join(dir, "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"zero poll interval", "INTUITION_INPUT_POLL_INTERVAL", "0s"},
		{"negative case delay", "INTUITION_HARNESS_CASE_DELAY", "-1s"},
		{"zero sample rate", "INTUITION_AUDIO_SAMPLE_RATE", "0"},
		{"negative watchdog", "INTUITION_WATCHDOG_TIMEOUT", "-5s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfig(t)
			t.Setenv(tt.env, tt.val)
			if _, err := loadConfig("", nil); err == nil {
				t.Fatalf("%s=%s accepted", tt.env, tt.val)
			}
		})
	}
}

func TestConfig_KernelConfig(t *testing.T) {
	isolateConfig(t)
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	cfg.Harness.SegmentBudget = 4096
	cfg.Audio.Enabled = false

	kc := cfg.kernelConfig()
	require.Equal(t, kernel.DefaultLines, kc.Lines)
	require.Equal(t, cfg.Input.PollInterval, kc.PollInterval)
	require.Equal(t, cfg.Harness.CaseDelay, kc.CaseDelay)
	require.Equal(t, 4096, kc.SegmentBudget)
	require.False(t, kc.AudioEnabled)
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		l, err := newLogger(LogSettings{Level: "warn", Development: dev})
		require.NoError(t, err)
		require.False(t, l.Core().Enabled(-1), "debug enabled at warn")
	}
	_, err := newLogger(LogSettings{Level: "loud"})
	require.Error(t, err)
}
