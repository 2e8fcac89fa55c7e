// Package platform talks to the storefront platform's admin GraphQL API to
// register web pixels.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FairForge/webpixels/internal/config"
	"go.uber.org/zap"
)

const createWebPixelMutation = `mutation CreateWebPixel($input: CreateWebPixelInput!) {
  createWebPixel(input: $input) {
    success
    message
    data { _id }
  }
}`

const updateWebPixelMutation = `mutation UpdateWebPixel($pixelId: String!, $input: UpdateWebPixelInput!) {
  updateWebPixel(pixelId: $pixelId, input: $input) {
    success
    message
    data { _id }
  }
}`

// ErrRejected is wrapped by every error for a mutation the platform answered
// with success=false.
var ErrRejected = errors.New("platform rejected mutation")

// PixelInput is the name and vendor settings sent for a web pixel.
type PixelInput struct {
	Name     string            `json:"name"`
	Settings map[string]string `json:"settings"`
}

// Pixels is the subset of the platform API the admin service needs.
type Pixels interface {
	CreateWebPixel(ctx context.Context, in PixelInput) (string, error)
	UpdateWebPixel(ctx context.Context, pixelID string, in PixelInput) error
}

// Client is a minimal GraphQL client for the admin API.
type Client struct {
	url    string
	token  string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a client for cfg.
func NewClient(cfg config.PlatformConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    cfg.GraphQLURL,
		token:  cfg.AccessToken,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type mutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		ID string `json:"_id"`
	} `json:"data"`
}

// CreateWebPixel registers a new pixel and returns its platform id.
func (c *Client) CreateWebPixel(ctx context.Context, in PixelInput) (string, error) {
	var out struct {
		CreateWebPixel mutationResult `json:"createWebPixel"`
	}
	err := c.do(ctx, createWebPixelMutation, map[string]any{"input": in}, &out)
	if err != nil {
		return "", fmt.Errorf("create web pixel: %w", err)
	}

	res := out.CreateWebPixel
	if !res.Success {
		return "", fmt.Errorf("%w: %s", ErrRejected, res.Message)
	}
	if res.Data == nil || res.Data.ID == "" {
		return "", fmt.Errorf("create web pixel: response carries no pixel id")
	}
	return res.Data.ID, nil
}

// UpdateWebPixel replaces the name and settings of an existing pixel.
func (c *Client) UpdateWebPixel(ctx context.Context, pixelID string, in PixelInput) error {
	var out struct {
		UpdateWebPixel mutationResult `json:"updateWebPixel"`
	}
	vars := map[string]any{"pixelId": pixelID, "input": in}
	if err := c.do(ctx, updateWebPixelMutation, vars, &out); err != nil {
		return fmt.Errorf("update web pixel: %w", err)
	}
	if !out.UpdateWebPixel.Success {
		return fmt.Errorf("%w: %s", ErrRejected, out.UpdateWebPixel.Message)
	}
	return nil
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("platform graphql call",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return errors.New("graphql: empty data")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
