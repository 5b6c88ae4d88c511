package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// Client calls the skillmatch API. Player commands present a session token;
// game-server commands present client credentials, see AsServer.
type Client struct {
	baseURL      string
	token        string
	clientID     string
	clientSecret string
	server       bool
	httpClient   *http.Client
}

// NewClient builds a client for baseURL. Either credential set may be empty.
func NewClient(baseURL, token, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		token:        token,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: requestTimeout},
	}
}

// AsServer returns a copy of the client that authenticates with the
// game-server client credentials instead of the player token.
func (c *Client) AsServer() *Client {
	cp := *c
	cp.server = true
	return &cp
}

// RequestError is a non-2xx reply from the API.
type RequestError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RequestError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.server && c.clientID != "":
		req.SetBasicAuth(c.clientID, c.clientSecret)
	case !c.server && c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.clientID != "":
		// No player session; fall back to whatever the operator configured.
		req.SetBasicAuth(c.clientID, c.clientSecret)
	}
}

// Do sends body as JSON and decodes a successful reply into result.
func (c *Client) Do(method, path string, body, result any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading reply to %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeRequestError(resp.StatusCode, raw)
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding reply to %s %s: %w", method, path, err)
	}
	return nil
}

func decodeRequestError(status int, raw []byte) error {
	var envelope struct {
		Error RequestError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		envelope.Error.Status = status
		return &envelope.Error
	}
	return &RequestError{Status: status, Message: strings.TrimSpace(string(raw))}
}

func (c *Client) Get(path string, result any) error {
	return c.Do(http.MethodGet, path, nil, result)
}

func (c *Client) Post(path string, body, result any) error {
	return c.Do(http.MethodPost, path, body, result)
}

func (c *Client) Delete(path string) error {
	return c.Do(http.MethodDelete, path, nil, nil)
}
