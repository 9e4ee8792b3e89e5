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

package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espdeck/espdeck/pkg/logger"
)

// configFor points a client config at an httptest server.
func configFor(t *testing.T, server *httptest.Server, insecure bool) *Config {
	t.Helper()

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)

	return &Config{
		Host:               parsed.Hostname(),
		Port:               port,
		Secure:             parsed.Scheme == "https",
		InsecureSkipVerify: insecure,
	}
}

func TestClient_FetchDevices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mqtt/espDevices" {
			http.NotFound(w, r)
			return
		}

		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		_, _ = w.Write([]byte(`[
			{"deviceId":"A","name":"Lamp","lightOn":false,"commandTopic":"t/A"},
			{"deviceId":"B","name":"Strip","lightOn":true,"rgbMode":true,"commandTopic":"t/B"}
		]`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(configFor(t, server, false), logger.NewTestLogger())

	devices, err := client.FetchDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "A", devices[0].DeviceID)
	assert.False(t, devices[0].PowerOn)
	assert.False(t, devices[0].HasColorMode())

	assert.Equal(t, "B", devices[1].DeviceID)
	assert.True(t, devices[1].PowerOn)
	assert.True(t, devices[1].ColorModeEnabled())
}

func TestClient_FetchDevices_TLS(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(configFor(t, server, true), logger.NewTestLogger())

	devices, err := client.FetchDevices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestClient_FetchDevices_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewClient(configFor(t, server, false), logger.NewTestLogger())

	_, err := client.FetchDevices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRelayStatus)
}

func TestClient_FetchDevices_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	config := configFor(t, server, false)
	server.Close()

	client := NewClient(config, logger.NewTestLogger())

	_, err := client.FetchDevices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRelayUnreachable)
}

func TestClient_FetchDevices_MalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(configFor(t, server, false), logger.NewTestLogger())

	_, err := client.FetchDevices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRelayStatus)
}

func TestClient_Publish(t *testing.T) {
	t.Parallel()

	var gotMessage, gotTopic, gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mqtt/publish" {
			http.NotFound(w, r)
			return
		}

		gotMethod = r.Method
		gotMessage = r.URL.Query().Get("message")
		gotTopic = r.URL.Query().Get("topic")

		_, _ = w.Write([]byte("published"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(configFor(t, server, false), logger.NewTestLogger())

	ack, err := client.Publish(context.Background(), "onRGB", "esp/room #1/cmd")
	require.NoError(t, err)

	assert.Equal(t, "published", ack)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "onRGB", gotMessage)
	assert.Equal(t, "esp/room #1/cmd", gotTopic, "query values must survive URL encoding")
}

func TestClient_Publish_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := NewClient(configFor(t, server, false), logger.NewTestLogger())

	_, err := client.Publish(context.Background(), "on", "t/A")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRelayStatus)
	assert.NotErrorIs(t, err, ErrRelayUnreachable)
}

func TestClient_Publish_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	config := configFor(t, server, false)
	server.Close()

	client := NewClient(config, logger.NewTestLogger())

	_, err := client.Publish(context.Background(), "off", "t/A")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRelayUnreachable)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Host: "10.0.0.10", Port: 8080}, false},
		{"missing host", Config{Port: 8080}, true},
		{"port zero", Config{Host: "relay"}, true},
		{"port out of range", Config{Host: "relay", Port: 70000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_BaseURL(t *testing.T) {
	t.Parallel()

	plain := Config{Host: "relay.local", Port: 8080}
	assert.Equal(t, "http://relay.local:8080", plain.BaseURL())

	secure := Config{Host: "relay.local", Port: 443, Secure: true}
	assert.Equal(t, "https://relay.local:443", secure.BaseURL())
}

func TestErrorClasses(t *testing.T) {
	t.Parallel()

	wrapped := errors.Join(ErrRelayUnreachable)
	assert.ErrorIs(t, wrapped, ErrRelayUnreachable)
}
