package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, ModeTerminal, c.Render.Mode)
	assert.Equal(t, 16*time.Millisecond, c.Render.FrameInterval)
	assert.Equal(t, 3*time.Second, c.Render.BreathInterval)
	assert.Equal(t, 2*time.Second, c.Speech.Cooldown)
	assert.Equal(t, "visimos_v6_profile", c.Profile.Key)
	assert.Equal(t, 1024, c.Signal.FFTSize)
}

func TestLoad(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "visimos.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
render:
  mode: headless
  frame_interval: 20ms
mqtt:
  enabled: true
  broker: broker.lan
  prefix: orb/
profile:
  backend: sqlite
`), 0o644))

		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ModeHeadless, c.Render.Mode)
		assert.Equal(t, 20*time.Millisecond, c.Render.FrameInterval)
		assert.Equal(t, 3*time.Second, c.Render.BreathInterval)
		assert.True(t, c.MQTT.Enabled)
		assert.Equal(t, "tcp://broker.lan:1883", c.MQTT.BrokerURL())
		assert.Equal(t, "orb/frame", c.MQTT.Topic("frame"))
		assert.Equal(t, BackendSQLite, c.Profile.Backend)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "visimos.yaml")
		require.NoError(t, os.WriteFile(path, []byte("render:\n  mode: terminal\n"), 0o644))
		t.Setenv("VISIMOS_RENDER_MODE", "headless")
		t.Setenv("VISIMOS_SPEECH_COOLDOWN", "5s")
		t.Setenv("MQTT_USERNAME", "orb")

		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ModeHeadless, c.Render.Mode)
		assert.Equal(t, 5*time.Second, c.Speech.Cooldown)
		assert.Equal(t, "orb", c.MQTT.Username)
	})

	t.Run("missing search path uses defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		c, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Render, c.Render)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "visimos.yaml")
		require.NoError(t, os.WriteFile(path, []byte("render:\n  mode: hologram\nprofile:\n  backend: tape\n"), 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "render.mode")
		assert.Contains(t, err.Error(), "profile.backend")
	})
}
