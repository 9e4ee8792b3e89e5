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

// Package relay is the request/response client for the broker relay:
// one call to list every tracked device and one call to publish a
// command string to a device topic. The client is stateless and never
// retries; retry and rollback policy belong to callers.
package relay

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/models"
)

var (
	// ErrRelayUnreachable classifies transport-level failures: the
	// call never completed.
	ErrRelayUnreachable = errors.New("relay unreachable")

	// ErrRelayStatus classifies non-success acknowledgments and
	// undecodable payloads from the relay.
	ErrRelayStatus = errors.New("relay returned unexpected status")
)

const (
	devicesPath = "/api/mqtt/espDevices"
	publishPath = "/api/mqtt/publish"

	defaultTimeout = 10 * time.Second

	// Acknowledgment bodies are opaque; cap what we read of them.
	maxAckBytes = 4096
)

// Config locates the relay. The streaming endpoint shares the same
// host and port, so this is the one place the relay address lives.
type Config struct {
	Host               string          `json:"host"`
	Port               int             `json:"port"`
	Secure             bool            `json:"secure"`
	Timeout            logger.Duration `json:"timeout"`
	InsecureSkipVerify bool            `json:"insecure_skip_verify"`
}

var (
	errRelayHostRequired = errors.New("relay host is required")
	errRelayPortInvalid  = errors.New("relay port must be between 1 and 65535")
)

func (c *Config) Validate() error {
	if c.Host == "" {
		return errRelayHostRequired
	}

	if c.Port < 1 || c.Port > 65535 {
		return errRelayPortInvalid
	}

	return nil
}

// Address returns the relay's host:port pair.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL assembles the http(s) origin for the REST endpoints.
func (c *Config) BaseURL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Address())
}

// Client issues the two relay REST actions.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	timeout := time.Duration(config.Timeout)
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: config.InsecureSkipVerify, //nolint:gosec // operator-controlled knob for lab relays
				},
			},
		},
		logger: log,
	}
}

// FetchDevices returns the relay's full device list in relay order.
// On failure the caller's registry is left untouched; there is exactly
// one fetch, no retries.
func (c *Client) FetchDevices(ctx context.Context) ([]models.Device, error) {
	endpoint := c.config.BaseURL() + devicesPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayUnreachable, err)
	}
	defer c.closeResponse(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrRelayStatus, resp.StatusCode)
	}

	var devices []models.Device
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		return nil, fmt.Errorf("%w: decoding device list: %v", ErrRelayStatus, err)
	}

	c.logger.Info().
		Int("devices", len(devices)).
		Msg("Fetched device list")

	return devices, nil
}

// Publish sends one command string to a device topic and returns the
// relay's opaque acknowledgment body.
func (c *Client) Publish(ctx context.Context, message, topic string) (string, error) {
	params := url.Values{}
	params.Set("message", message)
	params.Set("topic", topic)

	endpoint := fmt.Sprintf("%s%s?%s", c.config.BaseURL(), publishPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRelayUnreachable, err)
	}
	defer c.closeResponse(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %d", ErrRelayStatus, resp.StatusCode)
	}

	ack, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading acknowledgment: %v", ErrRelayStatus, err)
	}

	c.logger.Debug().
		Str("message", message).
		Str("topic", topic).
		Msg("Published command")

	return string(ack), nil
}

func (c *Client) closeResponse(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to close response body")
	}
}
