// Package apiclient talks to the TutorInMinutes REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/delivery/dto"
)

const (
	DefaultBaseURL = "http://localhost:8080/api/v1"
	defaultTimeout = 10 * time.Second
	pageSize       = 100
)

// ErrUnauthorized is returned for any 401. The stored token has already been
// removed when it is returned.
var ErrUnauthorized = errors.New("not authenticated, please log in")

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// envelope mirrors pkg/response.Response with a typed data field.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Page       int   `json:"page"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenStore
}

// New returns a client for baseURL. tokens may be nil for anonymous use; a nil
// httpClient gets a 10 second timeout.
func New(baseURL string, tokens *TokenStore, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// ListTutors fetches every page of GET /tutors for the given filters.
func (c *Client) ListTutors(ctx context.Context, filters url.Values) ([]catalog.Tutor, error) {
	var all []catalog.Tutor
	for page := 1; ; page++ {
		params := url.Values{}
		for k, v := range filters {
			params[k] = v
		}
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(pageSize))

		var tutors []catalog.Tutor
		env, err := c.do(ctx, http.MethodGet, "/tutors?"+params.Encode(), nil, &tutors)
		if err != nil {
			return nil, err
		}
		all = append(all, tutors...)

		if env.Meta == nil || page >= env.Meta.TotalPages || len(tutors) == 0 {
			return all, nil
		}
	}
}

func (c *Client) GetTutor(ctx context.Context, id string) (*catalog.Tutor, error) {
	var tutor catalog.Tutor
	if _, err := c.do(ctx, http.MethodGet, "/tutors/"+url.PathEscape(id), nil, &tutor); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// Login stores the returned tokens on success.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	var tokens dto.TokenResponse
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &tokens); err != nil {
		return nil, err
	}
	if c.tokens != nil {
		if err := c.tokens.Save(tokens.AccessToken, tokens.RefreshToken); err != nil {
			return nil, err
		}
	}
	return &tokens, nil
}

// Logout revokes the session on the server and always clears the local token.
func (c *Client) Logout(ctx context.Context) error {
	var body interface{}
	if c.tokens != nil {
		if refresh, err := c.tokens.RefreshToken(); err == nil && refresh != "" {
			body = dto.RefreshTokenRequest{RefreshToken: refresh}
		}
	}

	_, err := c.do(ctx, http.MethodPost, "/auth/logout", body, nil)
	if c.tokens != nil {
		if clearErr := c.tokens.Clear(); clearErr != nil && err == nil {
			err = clearErr
		}
	}
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return err
}

func (c *Client) Me(ctx context.Context) (*dto.UserResponse, error) {
	var user dto.UserResponse
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) MyBookings(ctx context.Context) (*dto.BookingListResponse, error) {
	var bookings dto.BookingListResponse
	if _, err := c.do(ctx, http.MethodGet, "/bookings/user", nil, &bookings); err != nil {
		return nil, err
	}
	return &bookings, nil
}

// Reply implements chatwidget.Agent on top of POST /chat, so the console chat
// goes through the server proxy.
func (c *Client) Reply(ctx context.Context, input string) (string, error) {
	var resp dto.ChatResponse
	if _, err := c.do(ctx, http.MethodPost, "/chat", dto.ChatRequest{Message: input}, &resp); err != nil {
		return "", err
	}
	if resp.Fallback {
		return "", errors.New("support agent unavailable")
	}
	return resp.Reply, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode == http.StatusUnauthorized {
		if c.tokens != nil {
			if err := c.tokens.Clear(); err != nil {
				return nil, err
			}
		}
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", decodeErr)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return &env, nil
}
