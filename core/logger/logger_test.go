package logger

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/m3rciful/vtubot/core/config"
)

func TestOptionsFromDefaults(t *testing.T) {
	o := optionsFrom(nil)
	assert.Equal(t, formatJSON, o.format)
	assert.Equal(t, slog.LevelInfo, o.level)
	assert.Equal(t, defaultSampleNum, o.sampleNum)
	assert.Equal(t, defaultSampleDen, o.sampleDen)
	assert.Empty(t, o.file)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = "polling"
	cfg.Logging = coreconfig.LoggingConfig{
		Level:       "WARN",
		Profile:     "dev",
		KeysOrder:   "event, level ,,ts",
		DebugSample: "2/10",
		Dir:         "logs",
		BotFile:     "bot.log",
	}

	o := optionsFrom(cfg)
	assert.Equal(t, formatKV, o.format)
	assert.Equal(t, slog.LevelWarn, o.level)
	assert.Equal(t, []string{"event", "level", "ts"}, o.keyOrder)
	assert.Equal(t, 2, o.sampleNum)
	assert.Equal(t, 10, o.sampleDen)
	assert.Equal(t, filepath.Join("logs", "bot.log"), o.file)
	assert.Equal(t, "polling", o.runMode)
}

func TestOptionsFromExplicitJSONWinsOverProfile(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Logging.Profile = "debug"
	cfg.Logging.Format = "json"
	assert.Equal(t, formatJSON, optionsFrom(cfg).format)
}

func TestOptionsFromInvalidSampleKeepsDefault(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Logging.DebugSample = "abc"
	o := optionsFrom(cfg)
	assert.Equal(t, defaultSampleNum, o.sampleNum)
	assert.Equal(t, defaultSampleDen, o.sampleDen)

	cfg.Logging.DebugSample = "off"
	o = optionsFrom(cfg)
	assert.Zero(t, o.sampleNum)
	assert.Zero(t, o.sampleDen)
}
