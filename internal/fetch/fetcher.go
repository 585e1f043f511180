// internal/fetch/fetcher.go
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/loomworks/loom-backend/internal/domain"
	"github.com/loomworks/loom-backend/internal/logger"
)

// Specific errors for external fetches. Both count as per-table fetch
// failures for the join engine; neither is fatal to a run.
var (
	ErrFetchFailed         = errors.New("failed to fetch table data")
	ErrUnrecognizedPayload = errors.New("unrecognized response payload shape")
	customLog              = logger.NewLogger()
)

// maxResponseBytes caps how much of an external response we will read.
const maxResponseBytes = 32 << 20

// Client fetches live records from registered external API endpoints.
type Client struct {
	http    *retryablehttp.Client
	timeout time.Duration
}

// NewClient builds a fetch client whose individual requests are bounded by
// the given timeout.
func NewClient(timeout time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	return &Client{http: rc, timeout: timeout}
}

// FetchTable retrieves and normalizes the live record list for one table.
func (c *Client) FetchTable(ctx context.Context, table domain.Table) ([]domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, table.Endpoint.APIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request for '%s': %v", ErrFetchFailed, table.Name, err)
	}
	req.Header.Set("Authorization", "Bearer "+table.Endpoint.AuthToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		customLog.Warnf("Fetch: request for table '%s' failed: %v", table.Name, err)
		return nil, fmt.Errorf("%w: table '%s': %v", ErrFetchFailed, table.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		customLog.Warnf("Fetch: table '%s' returned status %d", table.Name, resp.StatusCode)
		return nil, fmt.Errorf("%w: table '%s': status %d", ErrFetchFailed, table.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response for '%s': %v", ErrFetchFailed, table.Name, err)
	}

	return Normalize(body, table.Name)
}

// IntrospectConnection fetches a connection's payload once and returns
// every top-level key whose value is a non-empty array of records, plus the
// key names in sorted order. Used at registration time to discover tables.
func (c *Client) IntrospectConnection(ctx context.Context, apiURL, authToken string) (map[string][]domain.Record, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: building request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading response: %v", ErrFetchFailed, err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &obj); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}

	discovered := make(map[string][]domain.Record)
	names := make([]string, 0)
	for key, raw := range obj {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
			continue
		}
		records, err := decodeRecords(items)
		if err != nil {
			continue
		}
		discovered[key] = records
		names = append(names, key)
	}
	sort.Strings(names)
	return discovered, names, nil
}

// Normalize decodes a raw response payload into a record list. Accepted
// shapes, tried in order:
//
//  1. a JSON array of records;
//  2. a JSON object whose value under the table-name key is an array;
//  3. any other JSON object, taking its values in key order.
//
// Everything else is ErrUnrecognizedPayload.
func Normalize(raw []byte, tableName string) ([]domain.Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnrecognizedPayload)
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
		}
		return decodeRecords(items)

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
		}
		if keyed, ok := obj[tableName]; ok {
			if k := bytes.TrimSpace(keyed); len(k) > 0 && k[0] == '[' {
				var items []json.RawMessage
				if err := json.Unmarshal(k, &items); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
				}
				return decodeRecords(items)
			}
		}
		// Fall back to the object's own values. Key order keeps the
		// result deterministic; Go maps are not.
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]json.RawMessage, 0, len(obj))
		for _, k := range keys {
			items = append(items, obj[k])
		}
		return decodeRecords(items)

	default:
		return nil, fmt.Errorf("%w: not a JSON array or object", ErrUnrecognizedPayload)
	}
}

func decodeRecords(items []json.RawMessage) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		var rec domain.Record
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("%w: element is not an object", ErrUnrecognizedPayload)
		}
		records = append(records, rec)
	}
	return records, nil
}
