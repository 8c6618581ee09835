package hub

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultRequestTimeout = 15 * time.Second

	// deviceUniqueID identifies this client to the cloud.
	deviceUniqueID = "kakubridge"

	maxResponseSize = 8 << 20
)

// Home is the account home selected at login.
type Home struct {
	ID     string
	Name   string
	MAC    string
	AESKey []byte
}

// Session holds cloud credentials and the state of the last login.
//
// Thread Safety:
//   - Safe for concurrent use. Login replaces the home atomically.
type Session struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client

	mu   sync.RWMutex
	home *Home
}

// NewSession creates a session against the cloud API at baseURL.
// A zero timeout uses 15s: every cloud call is bounded by it.
func NewSession(baseURL, email, password string, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type loginResponse struct {
	Error string `json:"error"`
	Homes []struct {
		ID     flexString `json:"home_id"`
		Name   string     `json:"home_name"`
		MAC    string     `json:"mac"`
		AESKey string     `json:"aes_key"`
	} `json:"homes"`
}

// Login authenticates and selects the first home of the account. It is
// re-run every cycle because the AES key can rotate.
func (s *Session) Login(ctx context.Context) error {
	body, err := s.post(ctx, "account.php", url.Values{
		"action":           {"login"},
		"email":            {s.email},
		"password_hash":    {s.password},
		"device_unique_id": {deviceUniqueID},
		"platform":         {""},
		"mac":              {""},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: parsing response: %w", ErrAuthentication, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", ErrAuthentication, resp.Error)
	}
	if len(resp.Homes) == 0 {
		return fmt.Errorf("%w: account has no homes", ErrAuthentication)
	}

	first := resp.Homes[0]
	key, err := hex.DecodeString(first.AESKey)
	if err != nil || len(key) != 16 {
		return fmt.Errorf("%w: malformed aes key", ErrAuthentication)
	}

	s.mu.Lock()
	s.home = &Home{ID: string(first.ID), Name: first.Name, MAC: first.MAC, AESKey: key}
	s.mu.Unlock()
	return nil
}

// Home returns the home selected by the last successful login.
func (s *Session) Home() (Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.home == nil {
		return Home{}, ErrNotLoggedIn
	}
	return *s.home, nil
}

// authForm returns the fields every authenticated call carries.
func (s *Session) authForm(action string) (url.Values, Home, error) {
	home, err := s.Home()
	if err != nil {
		return nil, Home{}, err
	}
	return url.Values{
		"action":        {action},
		"email":         {s.email},
		"password_hash": {s.password},
		"mac":           {home.MAC},
		"home_id":       {home.ID},
	}, home, nil
}

// httpStatusError carries a non-2xx status so retries can inspect it.
type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// post sends a form to endpoint and returns the response body.
func (s *Session) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expected string or number")
	}
	*f = flexString(n.String())
	return nil
}
