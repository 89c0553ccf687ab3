// Package insight asks a generative text service for market commentary.
// Its output is advisory and never feeds trading state.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// InsightServiceError is any failure of the advisory call.
type InsightServiceError struct {
	StatusCode int
	Err        error
}

func (e *InsightServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("insight service HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("insight service: %v", e.Err)
}

func (e *InsightServiceError) Unwrap() error { return e.Err }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Client performs one generateContent call per Analyze, without retries.
type Client struct {
	apiKey string
	model  string
	http   *resty.Client
}

func NewClient(cfg *Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Accept", "application/json"),
	}
}

// Analyze returns the text of the first candidate, or "" when the service
// answered without one.
func (c *Client) Analyze(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &InsightServiceError{Err: errors.New("prompt is required")}
	}

	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", c.apiKey).
		SetBody(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}).
		SetResult(&out).
		SetError(&out).
		Post("/models/" + c.model + ":generateContent")
	if err != nil {
		return "", &InsightServiceError{Err: err}
	}

	if resp.IsError() {
		msg := strings.TrimSpace(string(resp.Body()))
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", &InsightServiceError{StatusCode: resp.StatusCode(), Err: errors.New(msg)}
	}

	logger.WithFields(map[string]interface{}{
		"component":  "insight",
		"model":      c.model,
		"candidates": len(out.Candidates),
	}).Debug("insight received")

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
