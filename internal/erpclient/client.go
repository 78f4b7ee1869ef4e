package erpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const maxErrorBodyBytes = 512

// PageFilter is an optional date filter attached to page requests.
type PageFilter struct {
	From *time.Time
	To   *time.Time
}

// Option is custom configuration of Client.
type Option func(c *Client)

// Client reads paginated registers from the remote api. One Client serves one
// sync session: page reads are sequential and the resolved-endpoint cache is
// deliberately per-instance, so concurrent sync tasks against different
// resource families cannot interfere with each other.
type Client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	client       *http.Client
	maxRetries   uint64
	logger       *zerolog.Logger
	resolved     map[string]int
}

// NewClient returns new Client.
func NewClient(client *http.Client, baseURL, apiKey string, logger *zerolog.Logger, ops ...Option) *Client {
	cli := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		apiKeyHeader: "X-API-Key",
		client:       client,
		maxRetries:   3,
		logger:       logger,
		resolved:     map[string]int{},
	}

	for _, op := range ops {
		op(cli)
	}

	return cli
}

// FetchPage fetches one page of resource records. Candidates are tried in
// order on "not found"; the first candidate that responds is remembered for
// the rest of the session. A 2xx empty page returns an empty slice and nil
// error: it is the iteration-termination signal, never a failure.
func (c *Client) FetchPage(
	ctx context.Context,
	resource Resource,
	offset, limit int,
	filter PageFilter,
) ([]json.RawMessage, error) {
	start := 0
	if ix, ok := c.resolved[resource.Name]; ok {
		start = ix
	}

	var lastErr error
	for ix := start; ix < len(resource.Candidates); ix++ {
		records, err := c.fetchCandidate(ctx, resource, resource.Candidates[ix], offset, limit, filter)
		if errors.Is(err, errNotFound) {
			c.logger.Debug().
				Str("resource", resource.Name).
				Str("candidate", resource.Candidates[ix]).
				Msg("candidate endpoint not found, trying next")
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		c.resolved[resource.Name] = ix
		return records, nil
	}

	return nil, &TransportError{
		Resource: resource.Name,
		Message:  fmt.Sprintf("%v: %v", ErrNoEndpoint, lastErr),
		Err:      ErrNoEndpoint,
	}
}

// FetchAll walks resource pages to exhaustion, invoking handlePage per
// non-empty page. Reads are strictly sequential to respect ERP rate limits.
func (c *Client) FetchAll(
	ctx context.Context,
	resource Resource,
	pageSize int,
	filter PageFilter,
	handlePage func(records []json.RawMessage) error,
) error {
	for offset := 0; ; offset += pageSize {
		records, err := c.FetchPage(ctx, resource, offset, pageSize, filter)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := handlePage(records); err != nil {
			return err
		}
	}
}

func (c *Client) fetchCandidate(
	ctx context.Context,
	resource Resource,
	candidate string,
	offset, limit int,
	filter PageFilter,
) ([]json.RawMessage, error) {
	operation := func() ([]json.RawMessage, error) {
		records, err := c.doRequest(ctx, candidate, offset, limit, filter)

		var transportErr *TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusNotFound {
			return nil, backoff.Permanent(errNotFound)
		}
		if errors.As(err, &transportErr) &&
			transportErr.StatusCode >= 400 && transportErr.StatusCode < 500 &&
			transportErr.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}

		return records, err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)

	records, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	candidate string,
	offset, limit int,
	filter PageFilter,
) ([]json.RawMessage, error) {
	endpoint, err := url.JoinPath(c.baseURL, candidate)
	if err != nil {
		return nil, fmt.Errorf("can't build endpoint url: %w", err)
	}

	params := url.Values{}
	params.Set("top", strconv.Itoa(limit))
	params.Set("skip", strconv.Itoa(offset))
	if filter.From != nil {
		params.Set("from", filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		params.Set("to", filter.To.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("can't build http request: %w", err)
	}
	req.Header.Set(c.apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Resource: candidate, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &TransportError{
			Resource:   candidate,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return decodeList(resp.Body, candidate)
}

// listResponse covers the envelope spellings seen across deployments.
type listResponse struct {
	Value []json.RawMessage `json:"value"`
	Data  []json.RawMessage `json:"data"`
	Items []json.RawMessage `json:"items"`
}

func decodeList(body io.Reader, candidate string) ([]json.RawMessage, error) {
	var envelope listResponse
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, &TransportError{
			Resource: candidate,
			Message:  fmt.Sprintf("can't decode response: %v", err),
		}
	}

	switch {
	case envelope.Value != nil:
		return envelope.Value, nil
	case envelope.Data != nil:
		return envelope.Data, nil
	case envelope.Items != nil:
		return envelope.Items, nil
	default:
		return []json.RawMessage{}, nil
	}
}

// WithAPIKeyHeader sets a custom api key header name.
func WithAPIKeyHeader(header string) Option {
	return func(c *Client) {
		c.apiKeyHeader = header
	}
}

// WithMaxRetries sets the retry budget per page request.
func WithMaxRetries(retries uint64) Option {
	return func(c *Client) {
		c.maxRetries = retries
	}
}
