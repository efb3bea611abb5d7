package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HTTPClient implements Service over the account service's JSON API.
//
// Authentication: the client trades the account's (number, password) pair for
// a short-lived access token plus a refresh token, attaches the access token
// as a bearer header, and renews it either proactively (when the token is
// about to expire) or reactively (one retry after a 401 while a refresh token
// is held). A 401 that survives the refresh surfaces as ErrUnauthorized.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client

	number   string
	password string

	accessToken  string
	refreshToken string
}

func NewHTTPClient(baseURL string, timeout time.Duration, number, password string) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		httpc:    &http.Client{Timeout: timeout},
		number:   number,
		password: password,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// tokenNeedsRefresh reports whether the access token is absent, unreadable or
// within 30 seconds of its expiry. The token is not verified here; the
// service is the authority, this is only to avoid a predictable 401.
func tokenNeedsRefresh(token string) bool {
	if token == "" {
		return true
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < 30*time.Second
}

func (c *HTTPClient) authenticate(ctx context.Context) error {
	if c.refreshToken != "" {
		var tr tokenResponse
		err := c.send(ctx, http.MethodPost, "/v1/auth/refresh",
			map[string]string{"refreshToken": c.refreshToken}, &tr, false)
		if err == nil {
			c.accessToken = tr.AccessToken
			c.refreshToken = tr.RefreshToken
			return nil
		}
		// fall through to password auth when the refresh token is rejected
		c.refreshToken = ""
	}

	var tr tokenResponse
	if err := c.send(ctx, http.MethodPost, "/v1/auth/token", nil, &tr, true); err != nil {
		return err
	}
	c.accessToken = tr.AccessToken
	c.refreshToken = tr.RefreshToken
	return nil
}

// do performs one authenticated JSON call, renewing the access token when
// needed and retrying exactly once after a 401.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	if tokenNeedsRefresh(c.accessToken) {
		if err := c.authenticate(ctx); err != nil {
			return err
		}
	}

	err := c.send(ctx, method, path, in, out, false)
	if errors.Is(err, ErrUnauthorized) {
		if rerr := c.authenticate(ctx); rerr != nil {
			return rerr
		}
		err = c.send(ctx, method, path, in, out, false)
	}
	return err
}

func (c *HTTPClient) send(ctx context.Context, method, path string, in, out any, basicAuth bool) error {
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
	if basicAuth {
		req.SetBasicAuth(c.number, c.password)
	} else if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp.StatusCode); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func mapStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusPaymentRequired:
		return ErrCaptchaRequired
	case code == http.StatusUnprocessableEntity:
		return ErrInvalidDeviceLink
	case code == http.StatusLocked:
		return ErrRegistrationLock
	case code >= 500 || code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: http %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("http error: %d", code)
	}
}

func (c *HTTPClient) WhoAmI(ctx context.Context) (WhoAmIResponse, error) {
	var resp WhoAmIResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/whoami", nil, &resp); err != nil {
		return WhoAmIResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) SetAccountAttributes(ctx context.Context, attrs AccountAttributes) error {
	return c.do(ctx, http.MethodPut, "/v1/accounts/attributes", attrs, nil)
}

func (c *HTTPClient) ChangeNumber(ctx context.Context, code, newNumber, lockProof string) (ChangeNumberResult, error) {
	req := map[string]string{
		"code":   code,
		"number": newNumber,
	}
	if lockProof != "" {
		req["registrationLock"] = lockProof
	}
	var resp ChangeNumberResult
	if err := c.do(ctx, http.MethodPut, "/v1/accounts/number", req, &resp); err != nil {
		return ChangeNumberResult{}, err
	}
	return resp, nil
}

func (c *HTTPClient) GetNewDeviceVerificationCode(ctx context.Context) (string, error) {
	var resp struct {
		VerificationCode string `json:"verificationCode"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/devices/provisioning/code", nil, &resp); err != nil {
		return "", err
	}
	return resp.VerificationCode, nil
}

func (c *HTTPClient) AddDevice(ctx context.Context, deviceID string, envelope []byte, verificationCode string) error {
	req := map[string]any{
		"envelope":         envelope,
		"verificationCode": verificationCode,
	}
	return c.do(ctx, http.MethodPut, "/v1/provisioning/"+deviceID, req, nil)
}

func (c *HTTPClient) RemoveDevice(ctx context.Context, deviceID int) error {
	return c.do(ctx, http.MethodDelete, "/v1/devices/"+strconv.Itoa(deviceID), nil, nil)
}

func (c *HTTPClient) GetDevices(ctx context.Context) ([]DeviceInfo, error) {
	var resp struct {
		Devices []DeviceInfo `json:"devices"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/devices", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

func (c *HTTPClient) SetPushToken(ctx context.Context, token string) error {
	if token == "" {
		return c.do(ctx, http.MethodDelete, "/v1/accounts/push", nil, nil)
	}
	return c.do(ctx, http.MethodPut, "/v1/accounts/push", map[string]string{"token": token}, nil)
}

func (c *HTTPClient) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/accounts/me", nil, nil)
}

func (c *HTTPClient) GetSenderCertificate(ctx context.Context) ([]byte, error) {
	var resp struct {
		Certificate []byte `json:"certificate"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/certificate/delivery", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Certificate, nil
}

func (c *HTTPClient) GetPreKeyCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/keys/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *HTTPClient) UploadPreKeys(ctx context.Context, keys []PreKey) error {
	return c.do(ctx, http.MethodPut, "/v1/keys", map[string]any{"preKeys": keys}, nil)
}
