/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/HamedShams/agile-delay/internal/config"
	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/rs/zerolog"
)

// maxErrBody bounds how much of a failed response ends up in the error.
const maxErrBody = 512

// Client reads the issue collection exposed by the local issue service.
type Client struct {
	url  string
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		url:  cfg.IssuesURL,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
		log:  log,
	}
}

type issuesEnvelope struct {
	Issues *[]domain.RawIssue `json:"issues"`
}

// Fetch issues exactly one GET. There are no retries: any failure is final
// for the run.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawIssue, error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: empty issues url", domain.ErrNetwork)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("url", c.url).Msg("fetching issues")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, fmt.Errorf("%w: issues api status=%d body=%s", domain.ErrNetwork, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrNetwork, err)
	}
	return decodeIssues(body)
}

func decodeIssues(body []byte) ([]domain.RawIssue, error) {
	var env issuesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: unexpected %s at %q", domain.ErrParse, typeErr.Value, typeErr.Field)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if env.Issues == nil {
		return nil, fmt.Errorf("%w: response has no issues key", domain.ErrParse)
	}
	if len(*env.Issues) == 0 {
		return nil, fmt.Errorf("%w: issues list is empty", domain.ErrEmptyResult)
	}
	return *env.Issues, nil
}
