package pinescrow

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mlevchenko/signet/internal/remote"
)

// HTTPClient implements Service against the escrow endpoints of the account
// service. Escrow calls authenticate with the account's (number, password)
// pair directly; they must keep working while the main client's tokens are
// in flux during a number change.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client

	number   string
	password string
}

func NewHTTPClient(baseURL string, timeout time.Duration, number, password string) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		httpc:    &http.Client{Timeout: timeout},
		number:   number,
		password: password,
	}
}

func (c *HTTPClient) SetPin(ctx context.Context, pin string, masterKey []byte) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	req := map[string]any{
		"salt":      salt,
		"pinHash":   hashPin(pin, salt),
		"masterKey": masterKey,
	}
	return c.send(ctx, http.MethodPut, "/v1/escrow", req, nil)
}

func (c *HTTPClient) RemovePin(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/v1/escrow", nil, nil)
}

// ProveOwnership fetches the escrow salt, submits the stretched PIN and, on
// success, derives the registration-lock proof from the escrowed master key.
func (c *HTTPClient) ProveOwnership(ctx context.Context, pin string) (string, error) {
	var challenge struct {
		Salt []byte `json:"salt"`
	}
	if err := c.send(ctx, http.MethodGet, "/v1/escrow/salt", nil, &challenge); err != nil {
		return "", err
	}

	var resp struct {
		MasterKey []byte `json:"masterKey"`
	}
	req := map[string]any{"pinHash": hashPin(pin, challenge.Salt)}
	if err := c.send(ctx, http.MethodPost, "/v1/escrow/verify", req, &resp); err != nil {
		return "", err
	}

	return DeriveRegistrationLock(resp.MasterKey), nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.number, c.password)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusForbidden:
		return ErrIncorrectPin
	case resp.StatusCode == http.StatusLocked || resp.StatusCode == http.StatusTooManyRequests:
		return ErrPinLocked
	case resp.StatusCode == http.StatusUnauthorized:
		return remote.ErrUnauthorized
	default:
		return fmt.Errorf("escrow http error: %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
