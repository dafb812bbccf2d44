// Package storageapi is a small client of the Keboola Storage API covering
// the endpoints needed to restore a project.
package storageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	apiPrefix        = "/v2/storage"
	defaultUserAgent = "keboola-project-restore"
	maxRetries       = 5
)

// Error is returned when the Storage API answers with a non-successful status
// or a finished job reports a failure.
type Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"code"`
	Message     string `json:"error"`
	ExceptionID string `json:"exceptionId"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected Storage API response (%d)", e.StatusCode)
}

// Client talks to one Storage API stack with one token.
type Client struct {
	host       *url.URL
	token      string
	runID      string
	userAgent  string
	httpClient *http.Client
	log        logrus.FieldLogger

	newBackOff     func() backoff.BackOff
	newPollBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// WithLogger sets the logger used for retry and job polling messages.
func WithLogger(log logrus.FieldLogger) Option {
	return func(cl *Client) { cl.log = log }
}

// WithBackOff sets the retry policy of failed requests and the polling
// policy of asynchronous jobs.
func WithBackOff(retry, poll func() backoff.BackOff) Option {
	return func(cl *Client) {
		if retry != nil {
			cl.newBackOff = retry
		}
		if poll != nil {
			cl.newPollBackOff = poll
		}
	}
}

// New creates a client of the stack at host. A host without scheme is assumed to be https.
func New(host, token string, opts ...Option) (*Client, error) {
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid Storage API host %q: %w", host, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid Storage API host %q", host)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		host:       u,
		token:      token,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		log:        logrus.StandardLogger(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return backoff.WithMaxRetries(b, maxRetries)
		},
		newPollBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 20 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetRunID sets the run id sent in the X-KBC-RunId header.
func (c *Client) SetRunID(runID string) {
	c.runID = runID
}

func (c *Client) endpoint(p string, query url.Values) string {
	u := *c.host
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		parsed, err := url.Parse(p)
		if err == nil {
			u = *parsed
		}
	} else {
		u.Path += apiPrefix + p
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-StorageApi-Token", c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.runID != "" {
		req.Header.Set("X-KBC-RunId", c.runID)
	}
	return req, nil
}

// doJSON sends in as the JSON body (when not nil) and decodes the response into out
// (when not nil). Network errors and 5xx responses are retried.
func (c *Client) doJSON(ctx context.Context, method, p string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}
	target := c.endpoint(p, query)

	operation := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := c.newRequest(ctx, method, target, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		return c.handleResponse(resp, out)
	}

	notify := func(err error, d time.Duration) {
		c.log.Debugf("Storage API request %s %s failed, retrying in %s: %v", method, p, d, err)
	}

	b := backoff.WithContext(c.newBackOff(), ctx)
	return backoff.RetryNotify(operation, b, notify)
}

// handleResponse decodes a successful response into out. Non-2xx responses are
// returned as *Error, permanent unless the status is 5xx.
func (c *Client) handleResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 && json.Unmarshal(data, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		if resp.StatusCode >= 500 {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return backoff.Permanent(fmt.Errorf("failed to decode Storage API response: %w", err))
	}
	return nil
}

func componentPath(componentID, configID string, rest ...string) string {
	parts := []string{"/components", componentID, "configs"}
	if configID != "" {
		parts = append(parts, configID)
	}
	return strings.Join(append(parts, rest...), "/")
}

func unwrapPermanent(err error) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
