// Package crm provides the Frappe CRM REST client and the per-chat
// connection registry.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Filter is one Frappe list filter triple, e.g. ["organization", "like", "%acme%"].
type Filter [3]string

// Like builds a substring-match filter on field.
func Like(field, value string) Filter {
	return Filter{field, "like", "%" + value + "%"}
}

// Eq builds an equality filter on field.
func Eq(field, value string) Filter {
	return Filter{field, "=", value}
}

// Client calls the Frappe CRM REST API.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a CRM client; timeout defaults to 15s when zero.
func NewClient(log *slog.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: log.With(slog.String("service", "crm")),
	}
}

type listResponse struct {
	Data []ListItem `json:"data"`
}

// List runs a filtered resource-list query. Filters and fields are JSON
// encoded into query parameters the way Frappe expects; limit and start map
// to limit_page_length and limit_start.
func (c *Client) List(ctx context.Context, conn Connection, doctype Doctype, filters []Filter, fields []string, limit, start int) ([]ListItem, error) {
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("encode filters: %w", err)
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}

	endpoint := strings.TrimRight(conn.URL, "/") + "/api/resource/" + url.PathEscape(doctype.Resource())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	query := req.URL.Query()
	query.Set("filters", string(filtersJSON))
	query.Set("fields", string(fieldsJSON))
	query.Set("limit_page_length", strconv.Itoa(limit))
	query.Set("limit_start", strconv.Itoa(start))
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Authorization", "token "+conn.APIKey+":"+conn.APISecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm list: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("list failed",
			slog.String("doctype", string(doctype)),
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(body), 512)),
		)
		return nil, fmt.Errorf("crm list %s: status %d", doctype.Resource(), resp.StatusCode)
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return parsed.Data, nil
}

// Login attempts a credential login against the CRM instance. Success is a
// 2xx status; any network error or other status yields false.
func (c *Client) Login(ctx context.Context, baseURL, username, password string) bool {
	payload, err := json.Marshal(map[string]string{
		"usr": username,
		"pwd": password,
	})
	if err != nil {
		return false
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/api/method/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("login failed", slog.String("url", baseURL), slog.Any("error", err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("login rejected",
			slog.String("url", baseURL),
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(body), 512)),
		)
		return false
	}
	return true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
