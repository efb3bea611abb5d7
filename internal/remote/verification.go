package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// VerificationClient is the unauthenticated client used during phase 1 of a
// number change. It is bound to the candidate number and authenticates with
// the existing account password only.
type VerificationClient struct {
	baseURL string
	httpc   *http.Client

	number   string
	password string
}

func NewVerificationClient(baseURL string, timeout time.Duration, number, password string) *VerificationClient {
	return &VerificationClient{
		baseURL:  baseURL,
		httpc:    &http.Client{Timeout: timeout},
		number:   number,
		password: password,
	}
}

// RequestVerificationCode asks the service to deliver a verification code to
// the bound number, by SMS or by voice call. A captcha demand surfaces as
// ErrCaptchaRequired.
func (c *VerificationClient) RequestVerificationCode(ctx context.Context, captcha string, voice bool) error {
	transport := "sms"
	if voice {
		transport = "voice"
	}

	path := "/v1/verification/" + transport + "/code/" + url.PathEscape(c.number)
	if captcha != "" {
		path += "?captcha=" + url.QueryEscape(captcha)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.number, c.password)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	return mapStatus(resp.StatusCode)
}
