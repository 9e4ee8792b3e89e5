/*
 * Copyright 2025 ESPDeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dashboard

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espdeck/espdeck/pkg/config"
	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/relay"
)

func testConfig(t *testing.T) *Config {
	t.Helper()

	return &Config{
		Relay:   relay.Config{Host: "relay.local", Port: 8080},
		Logging: &logger.Config{Level: "debug", Output: filepath.Join(t.TempDir(), "espdeck.log")},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidateRejectsMissingRelayHost(t *testing.T) {
	t.Parallel()

	cfg := &Config{}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay config")
}

func TestConfigValidateRejectsBadStreamPath(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Stream.Path = "no-leading-slash"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream config")
}

func TestConfigDefaultsLogToFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{Relay: relay.Config{Host: "relay.local", Port: 8080}}
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.Logging)
	assert.Equal(t, defaultLogFile, cfg.Logging.Output, "the TUI owns stdout, logs must default to a file")
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfigDefaultsFillEmptyOutputOnly(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Relay:   relay.Config{Host: "relay.local", Port: 8080},
		Logging: &logger.Config{Level: "warn", Output: "stderr"},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "stderr", cfg.Logging.Output, "an explicit output must be respected")
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestConfigLoadsFromJSONFile(t *testing.T) {
	raw := map[string]any{
		"relay": map[string]any{
			"host":    "10.0.0.10",
			"port":    8080,
			"timeout": "3s",
		},
		"stream": map[string]any{
			"path":            "/ws/mqtt",
			"reconnect_delay": "2s",
			"max_attempts":    7,
		},
		"logging": map[string]any{
			"level":  "debug",
			"output": filepath.Join(t.TempDir(), "out.log"),
		},
	}

	data, err := json.Marshal(raw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "espdeck.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	var cfg Config

	loader := config.NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "10.0.0.10", cfg.Relay.Host)
	assert.Equal(t, 8080, cfg.Relay.Port)
	assert.Equal(t, 3*time.Second, time.Duration(cfg.Relay.Timeout))
	assert.Equal(t, "/ws/mqtt", cfg.Stream.Path)
	assert.Equal(t, 2*time.Second, time.Duration(cfg.Stream.ReconnectDelay))
	assert.Equal(t, 7, cfg.Stream.MaxAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestNewWiresComponents(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, cfg.Validate())

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, app.Close()) })

	require.NotNil(t, app.store)
	require.NotNil(t, app.center)
	require.NotNil(t, app.client)
	require.NotNil(t, app.channel)
	require.NotNil(t, app.controller)

	assert.Equal(t, "/ws/mqtt", app.channel.Path(), "stream defaults must be applied at wiring time")
	assert.Zero(t, app.store.Len())
}

func TestNewFailsOnUnwritableLogFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Logging.Output = filepath.Join(t.TempDir(), "missing-dir", "espdeck.log")

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize logger")
}
