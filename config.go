// config.go - Layered host configuration

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionHandheld
License: GPLv3 or later
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/intuitionamiga/IntuitionHandheld/audio"
	"github.com/intuitionamiga/IntuitionHandheld/kernel"
	"github.com/intuitionamiga/IntuitionHandheld/upload"
)

const (
	envPrefix  = "INTUITION"
	configName = "config"
	appDir     = "intuition-handheld"
)

// Config is the handheld host configuration.
type Config struct {
	Display  DisplaySettings  `mapstructure:"display"`
	Input    InputSettings    `mapstructure:"input"`
	Harness  HarnessSettings  `mapstructure:"harness"`
	Audio    AudioSettings    `mapstructure:"audio"`
	Script   ScriptSettings   `mapstructure:"script"`
	Storage  StorageSettings  `mapstructure:"storage"`
	Upload   UploadSettings   `mapstructure:"upload"`
	Watchdog WatchdogSettings `mapstructure:"watchdog"`
	Log      LogSettings      `mapstructure:"log"`
}

type DisplaySettings struct {
	Scale      int  `mapstructure:"scale"`
	Headless   bool `mapstructure:"headless"`
	Fullscreen bool `mapstructure:"fullscreen"`
}

type InputSettings struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
}

type HarnessSettings struct {
	CaseDelay     time.Duration `mapstructure:"case_delay"`
	SegmentBudget int           `mapstructure:"segment_budget"`
}

type AudioSettings struct {
	Enabled    bool `mapstructure:"enabled"`
	SampleRate int  `mapstructure:"sample_rate"`
}

// ScriptSettings bound the interpreter. Exhausting either limit ends the
// session with OUT OF MEMORY.
type ScriptSettings struct {
	CallStackSize   int `mapstructure:"call_stack_size"`
	RegistrySize    int `mapstructure:"registry_size"`
	RegistryMaxSize int `mapstructure:"registry_max_size"`
}

type StorageSettings struct {
	Path string `mapstructure:"path"`
}

type UploadSettings struct {
	Socket string `mapstructure:"socket"`
	Inbox  string `mapstructure:"inbox"`
}

type WatchdogSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogSettings struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"scale":         "display.scale",
	"headless":      "display.headless",
	"fullscreen":    "display.fullscreen",
	"poll-interval": "input.poll_interval",
	"settle-delay":  "input.settle_delay",
	"case-delay":    "harness.case_delay",
	"audio":         "audio.enabled",
	"storage":       "storage.path",
	"socket":        "upload.socket",
	"inbox":         "upload.inbox",
	"watchdog":      "watchdog.timeout",
	"log-level":     "log.level",
	"dev":           "log.development",
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appDir)
	}
	return filepath.Join(os.TempDir(), appDir)
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir)
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("display.scale", 2)
	v.SetDefault("display.headless", false)
	v.SetDefault("display.fullscreen", false)

	v.SetDefault("input.poll_interval", 500*time.Microsecond)
	v.SetDefault("input.settle_delay", kernel.DefaultSettleDelay)

	v.SetDefault("harness.case_delay", kernel.DefaultCaseDelay)
	v.SetDefault("harness.segment_budget", 0)

	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.sample_rate", audio.DefaultSampleRate)

	v.SetDefault("script.call_stack_size", 256)
	v.SetDefault("script.registry_size", 256*20)
	v.SetDefault("script.registry_max_size", 64*1024)

	v.SetDefault("storage.path", filepath.Join(dataDir(), "scripts.db"))
	v.SetDefault("upload.socket", upload.DefaultSocketPath())
	v.SetDefault("upload.inbox", "")

	v.SetDefault("watchdog.timeout", 8*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// loadConfig resolves defaults, the optional config file, INTUITION_*
// environment variables and flags, in increasing priority. An explicitly
// named config file must exist.
func loadConfig(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Input.PollInterval <= 0:
		return fmt.Errorf("input.poll_interval must be positive, got %v", c.Input.PollInterval)
	case c.Input.SettleDelay < 0:
		return fmt.Errorf("input.settle_delay must not be negative, got %v", c.Input.SettleDelay)
	case c.Harness.CaseDelay < 0:
		return fmt.Errorf("harness.case_delay must not be negative, got %v", c.Harness.CaseDelay)
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	case c.Watchdog.Timeout < 0:
		return fmt.Errorf("watchdog.timeout must not be negative, got %v", c.Watchdog.Timeout)
	case c.Storage.Path == "":
		return errors.New("storage.path is empty")
	}
	return nil
}

func (c Config) kernelConfig() kernel.Config {
	kc := kernel.DefaultConfig()
	kc.PollInterval = c.Input.PollInterval
	kc.SettleDelay = c.Input.SettleDelay
	kc.CaseDelay = c.Harness.CaseDelay
	kc.SegmentBudget = c.Harness.SegmentBudget
	kc.AudioEnabled = c.Audio.Enabled
	return kc
}
