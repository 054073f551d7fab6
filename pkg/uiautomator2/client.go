package uiautomator2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client communicates with UIAutomator2 server.
type Client struct {
	http      *http.Client
	baseURL   string
	sessionID string
	log       *zap.Logger
}

// NewClient creates a client using Unix socket (Linux/Mac).
func NewClient(socketPath string, log *zap.Logger) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		baseURL: "http://localhost",
		log:     named(log),
	}
}

// NewClientTCP creates a client using TCP port, typically an adb forward.
func NewClientTCP(port int, log *zap.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		log:     named(log),
	}
}

func named(log *zap.Logger) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return log.Named("uia2")
}

// SessionID returns the current session ID.
func (c *Client) SessionID() string {
	return c.sessionID
}

// HasSession returns true if a session is active.
func (c *Client) HasSession() bool {
	return c.sessionID != ""
}

// UseSession attaches the client to an existing session.
func (c *Client) UseSession(id string) {
	c.sessionID = id
}

// W3C error codes that mean an element handle is no longer usable.
const (
	ErrorStaleElement   = "stale element reference"
	ErrorNoSuchElement  = "no such element"
	ErrorInvalidElement = "invalid element state"
)

// ServerError is an error response from the server.
type ServerError struct {
	Status  int
	Code    string // W3C error code, e.g. "stale element reference"
	Message string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStaleElement reports whether err says the referenced element is gone.
func IsStaleElement(err error) bool {
	var se *ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == ErrorStaleElement || se.Code == ErrorNoSuchElement
}

// request makes an HTTP request to UIAutomator2.
func (c *Client) request(method, path string, body interface{}) ([]byte, error) {
	start := time.Now()

	var reqBody io.Reader
	var bodyStr string
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
		bodyStr = string(data)
		if len(bodyStr) > 100 {
			bodyStr = bodyStr[:100] + "..."
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path),
			zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("request", zap.String("method", method), zap.String("path", path),
		zap.Duration("elapsed", elapsed), zap.Int("status", resp.StatusCode), zap.String("body", bodyStr))

	if resp.StatusCode >= 400 {
		se := &ServerError{Status: resp.StatusCode, Message: string(respBody)}
		var errResp struct {
			Value ErrorValue `json:"value"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Value.Error != "" {
			se.Code = errResp.Value.Error
			se.Message = errResp.Value.Message
		}
		return nil, se
	}

	return respBody, nil
}

// sessionPath returns path with session ID prefix.
func (c *Client) sessionPath(path string) string {
	return fmt.Sprintf("/session/%s%s", c.sessionID, path)
}

// decodeValue decodes the "value" field of a response into out.
func decodeValue(data []byte, out interface{}) error {
	wrapper := struct {
		Value interface{} `json:"value"`
	}{Value: out}
	return json.Unmarshal(data, &wrapper)
}

// Status checks if the server is ready.
func (c *Client) Status() (bool, error) {
	data, err := c.request("GET", "/status", nil)
	if err != nil {
		return false, err
	}

	var value struct {
		Ready   bool   `json:"ready"`
		Message string `json:"message"`
	}
	if err := decodeValue(data, &value); err != nil {
		return false, err
	}

	return value.Ready, nil
}

// CreateSession starts a new automation session.
func (c *Client) CreateSession(caps Capabilities) error {
	req := SessionRequest{Capabilities: caps}
	data, err := c.request("POST", "/session", req)
	if err != nil {
		return err
	}

	var resp struct {
		SessionID string `json:"sessionId"`
		Value     struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("parse session response: %w", err)
	}

	id := resp.SessionID
	if id == "" {
		id = resp.Value.SessionID
	}
	if id == "" {
		return fmt.Errorf("no session ID in response")
	}

	c.sessionID = id
	c.log.Info("session created", zap.String("session", id))
	return nil
}

// DeleteSession ends the current session.
func (c *Client) DeleteSession() error {
	if c.sessionID == "" {
		return nil
	}

	_, err := c.request("DELETE", c.sessionPath(""), nil)
	c.sessionID = ""
	return err
}

// Close ends the session and cleans up.
func (c *Client) Close() error {
	err := c.DeleteSession()
	c.http.CloseIdleConnections()
	return err
}

// SetImplicitWait sets the implicit wait timeout for element finding.
func (c *Client) SetImplicitWait(timeout time.Duration) error {
	if c.sessionID == "" {
		return fmt.Errorf("no active session")
	}

	_, err := c.request("POST", c.sessionPath("/timeouts"), map[string]interface{}{
		"implicit": timeout.Milliseconds(),
	})
	return err
}
