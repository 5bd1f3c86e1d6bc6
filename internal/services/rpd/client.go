package rpd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"despatch/internal/logging"
	"despatch/internal/services"
)

// Codes used when the intake itself did not supply one.
const (
	CodeNetwork      = "NETWORK"
	CodeBadResponse  = "BAD_RESPONSE"
	CodeLocalFile    = "LOCAL_FILE"
	CodeUnauthorized = "UNAUTHORIZED"
)

const maxErrorBody = 64 * 1024

// HTTPDoer describes the HTTP client used by the intake client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token for uploads.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource for service tokens configured up front.
type StaticToken string

// Token returns the configured token.
func (s StaticToken) Token() string { return string(s) }

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for intake calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLoginURL sets the login endpoint.
func WithLoginURL(loginURL string) Option {
	return func(c *Client) {
		c.loginURL = strings.TrimSpace(loginURL)
	}
}

// WithTokenSource sets where Deliver reads its bearer token from.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.tokens = src
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "rpd")
	}
}

// Client uploads despatch files to the intake.
type Client struct {
	intakeURL string
	loginURL  string
	http      HTTPDoer
	tokens    TokenSource
	logger    *slog.Logger
}

// NewClient constructs an intake client. timeout bounds each HTTP request.
func NewClient(intakeURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		intakeURL: strings.TrimSpace(intakeURL),
		http:      &http.Client{Timeout: timeout},
		tokens:    StaticToken(""),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges operator credentials for an intake token.
func (c *Client) Authenticate(ctx context.Context, user, password string) (string, error) {
	if c.loginURL == "" {
		return "", services.Wrap(services.ErrNotAuthenticated, "rpd", "login", "no login url configured", nil)
	}
	payload, err := json.Marshal(loginRequest{Username: user, Password: password})
	if err != nil {
		return "", fmt.Errorf("encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &services.TransportError{
			Code:    CodeNetwork,
			Message: "login request failed",
			Remedy:  "Check the network connection and try again",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		te := decodeError(resp)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", services.Wrap(services.ErrNotAuthenticated, "rpd", "login", user, te)
		}
		return "", te
	}

	var body loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err != nil {
		return "", &services.TransportError{Code: CodeBadResponse, Message: "login response could not be decoded", Err: err}
	}
	if strings.TrimSpace(body.Token) == "" {
		return "", &services.TransportError{Code: CodeBadResponse, Message: "login response carried no token"}
	}
	c.logger.Info("intake login succeeded",
		logging.String("user", user),
		logging.String(logging.FieldEventType, "intake_login"),
	)
	return body.Token, nil
}

// Deliver uploads path as a multipart "file" field.
func (c *Client) Deliver(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return &services.TransportError{
			Code:    CodeLocalFile,
			Message: "file to deliver could not be opened",
			Remedy:  "Resubmit the batch",
			Path:    path,
			Err:     err,
		}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return &services.TransportError{Code: CodeLocalFile, Message: "file to deliver could not be read", Path: path, Err: err}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.intakeURL, &body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &services.TransportError{
			Code:    CodeNetwork,
			Message: "upload request failed",
			Remedy:  "Check the network connection and resubmit",
			Path:    path,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		te := decodeError(resp)
		te.Path = path
		return te
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	c.logger.Info("file delivered",
		logging.String("file", filepath.Base(path)),
		logging.Int("status", resp.StatusCode),
		logging.String(logging.FieldEventType, "file_delivered"),
	)
	return nil
}

// decodeError turns a non-2xx response into a TransportError, keeping the
// intake's code, message and action untouched when the body carries them.
func decodeError(resp *http.Response) *services.TransportError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && (body.Code != "" || body.Message != "") {
		return &services.TransportError{Code: body.Code, Message: body.Message, Remedy: body.Action}
	}
	code := CodeBadResponse
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		code = CodeUnauthorized
	}
	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = resp.Status
	}
	return &services.TransportError{
		Code:    code,
		Message: message,
		Err:     fmt.Errorf("intake returned %d", resp.StatusCode),
	}
}
