// Package apiclient talks to the remote account REST API the storefront sits
// in front of. The server owns all auth decisions; this client only carries
// requests and maps failures into *Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"shopfront/internal/domain"
)

// Channel is where a one-time code is delivered.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelMobile Channel = "mobile"
)

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Method  string
	Path    string
	Message string // server-supplied message, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s %s: %d", e.Method, e.Path, e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0 for transport errors.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// MessageOf returns the server message carried by err, if any.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}

type Client struct {
	baseURL string
	timeout time.Duration
	http    *fiber.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fiber.Client{
			UserAgent:   "shopfront",
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		},
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse accepts both {token,user} and {accessToken,tokenType} bodies.
type LoginResponse struct {
	Token       string       `json:"token"`
	AccessToken string       `json:"accessToken"`
	User        *domain.User `json:"user"`
}

func (r LoginResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile,omitempty"`
	Password string `json:"password"`
}

type verifyRequest struct {
	EmailOrMobile string `json:"emailOrMobile"`
	OTP           string `json:"otp"`
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, fiber.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context, token string) (domain.User, error) {
	var u domain.User
	err := c.do(ctx, fiber.MethodGet, "/auth/me", token, nil, &u)
	return u, err
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, fiber.MethodPost, "/users/register", "", req, nil)
}

func (c *Client) Verify(ctx context.Context, ch Channel, identifier, otp string) error {
	return c.do(ctx, fiber.MethodPost, "/users/verify/"+string(ch), "", verifyRequest{EmailOrMobile: identifier, OTP: otp}, nil)
}

func (c *Client) Resend(ctx context.Context, ch Channel, identifier string) error {
	path := "/users/resend/" + string(ch) + "-verification/" + url.PathEscape(identifier)
	return c.do(ctx, fiber.MethodPost, path, "", nil, nil)
}

func (c *Client) Users(ctx context.Context, token string) ([]domain.User, error) {
	out := []domain.User{}
	err := c.do(ctx, fiber.MethodGet, "/users", token, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var a *fiber.Agent
	switch method {
	case fiber.MethodGet:
		a = c.http.Get(c.baseURL + path)
	case fiber.MethodPost:
		a = c.http.Post(c.baseURL + path)
	default:
		return fmt.Errorf("api: unsupported method %s", method)
	}
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		a.JSON(body)
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if timeout > 0 {
		a.Timeout(timeout)
	}

	code, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("api %s %s: %w", method, path, errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		return &Error{Status: code, Method: method, Path: path, Message: messageOf(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decode(raw, out); err != nil {
		return fmt.Errorf("api %s %s: decode: %w", method, path, err)
	}
	return nil
}

// envelope is the server's ApiResponse wrapper. Bodies without it are decoded as-is.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decode(raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Success != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(raw, out)
}

func messageOf(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}
