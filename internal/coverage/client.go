// Package coverage fetches per-file coverage totals from the coverage
// provider and rolls them up per feature.
package coverage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/slogutil"
	"featuremap/internal/version"
)

// DefaultMaxBodySize caps how much of a report response is read.
const DefaultMaxBodySize = 64 << 20

// FileStats are the coverage totals of one file.
type FileStats struct {
	Lines  int `json:"lines"`
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// ClientConfig identifies the repository at the provider.
type ClientConfig struct {
	BaseURL string
	Service string
	Owner   string
	Repo    string
	Token   string
}

// Client performs a single read-only report fetch. It never retries.
type Client struct {
	cfg    ClientConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, client: httpClient, logger: slogutil.OrDiscard(logger)}
}

// ReportURL returns the report endpoint for a commit.
func (c *Client) ReportURL(commit string) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/"))
	if err != nil {
		return "", ferrors.New(ferrors.ConfigInvalid, "invalid coverage base_url", err)
	}
	u.Path = fmt.Sprintf("%s/api/v2/%s/%s/repos/%s/report/", u.Path,
		url.PathEscape(c.cfg.Service), url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo))
	u.RawQuery = url.Values{"sha": {commit}}.Encode()
	return u.String(), nil
}

type reportResponse struct {
	Files []struct {
		Name   string `json:"name"`
		Totals *struct {
			Lines  *int `json:"lines"`
			Hits   *int `json:"hits"`
			Misses *int `json:"misses"`
		} `json:"totals"`
	} `json:"files"`
}

// FetchFileStats downloads the report for commit and returns totals keyed
// by repo-relative file path.
func (c *Client) FetchFileStats(ctx context.Context, commit string) (map[string]FileStats, error) {
	if c.cfg.Owner == "" || c.cfg.Repo == "" {
		return nil, ferrors.Newf(ferrors.ConfigInvalid, "test_coverage.owner and test_coverage.repo must be set")
	}
	if commit == "" {
		return nil, ferrors.Newf(ferrors.ConfigInvalid, "a commit SHA is required to fetch coverage")
	}

	reportURL, err := c.ReportURL(commit)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, ferrors.New(ferrors.InternalError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "featuremap/"+version.Version)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	c.logger.Debug("Fetching coverage report", "url", reportURL)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ferrors.New(ferrors.ExternalUnavailable, "coverage provider unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return nil, ferrors.New(ferrors.ExternalUnavailable, "failed to read coverage response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ferrors.Newf(ferrors.ExternalBadResponse, "coverage provider returned %d", resp.StatusCode).
			WithDetails(truncate(string(body), 512))
	}

	return parseReport(body)
}

func parseReport(body []byte) (map[string]FileStats, error) {
	var report reportResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, ferrors.New(ferrors.ExternalBadResponse, "undecodable coverage report", err)
	}
	if report.Files == nil {
		return nil, ferrors.Newf(ferrors.ExternalBadResponse, "coverage report has no files list")
	}

	stats := make(map[string]FileStats, len(report.Files))
	for _, f := range report.Files {
		t := f.Totals
		if f.Name == "" || t == nil || t.Lines == nil || t.Hits == nil || t.Misses == nil {
			return nil, ferrors.Newf(ferrors.ExternalBadResponse, "coverage report entry %q is missing totals.lines, totals.hits or totals.misses", f.Name)
		}
		stats[f.Name] = FileStats{Lines: *t.Lines, Hits: *t.Hits, Misses: *t.Misses}
	}
	return stats, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
