// Package httptransport talks to the assistant service over its JSON HTTP API
// (POST /chat, GET /health).
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 60 * time.Second

	chatPath   = "/chat"
	healthPath = "/health"

	// error bodies are only read for their detail message
	maxErrorBody = 64 * 1024
)

type Client struct {
	baseURL  *url.URL
	client   *http.Client
	timeout  time.Duration
	language transport.LanguageFunc
}

var _ transport.Transport = &Client{}
var _ transport.HealthChecker = &Client{}

type Option func(*Client)

// WithHTTPClient replaces the default client. A timeout set with WithTimeout applies to a
// copy of c, c itself is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

// WithLanguage sets the function consulted on every request for the answer language.
func WithLanguage(f transport.LanguageFunc) Option {
	return func(cl *Client) {
		cl.language = f
	}
}

func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid assistant base url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported assistant url scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL: u,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range options {
		o(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: DefaultTimeout}
	}
	if c.timeout > 0 {
		hc := *c.client
		hc.Timeout = c.timeout
		c.client = &hc
	}
	return c, nil
}

func (c *Client) endpoint(p string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + p
	return u.String()
}

func (c *Client) SendMessage(ctx context.Context, text string) (*transport.Response, error) {
	req := transport.Request{Content: text, Role: "user"}
	if c.language != nil {
		req.Language = c.language()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(chatPath), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "could not create chat request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	log.Debug().Str("url", httpReq.URL.String()).Str("language", req.Language).Msg("posting chat request")
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "chat request failed")
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, statusError(httpResp)
	}

	var resp transport.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "could not decode chat response")
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*transport.Health, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(healthPath), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not create health request")
	}
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "health request failed")
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()
	if httpResp.StatusCode != http.StatusOK {
		return nil, statusError(httpResp)
	}

	var h transport.Health
	if err := json.NewDecoder(httpResp.Body).Decode(&h); err != nil {
		return nil, errors.Wrap(err, "could not decode health response")
	}
	return &h, nil
}

// statusError builds a ServiceError from a non-2xx response, using the FastAPI style
// {"detail": ...} body when there is one.
func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(b))

	var detail struct {
		Detail interface{} `json:"detail"`
		Error  string      `json:"error"`
	}
	if json.Unmarshal(b, &detail) == nil {
		switch d := detail.Detail.(type) {
		case string:
			msg = d
		case nil:
			if detail.Error != "" {
				msg = detail.Error
			}
		default:
			if enc, err := json.Marshal(d); err == nil {
				msg = string(enc)
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &transport.ServiceError{StatusCode: resp.StatusCode, Message: msg}
}
