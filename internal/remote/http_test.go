package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "+15550001",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, 5*time.Second, "+15550001", "pw")
}

func TestHTTPClient_WhoAmI_AuthenticatesThenCalls(t *testing.T) {
	serviceID := uuid.New()
	var sawBasicAuth, sawBearer bool
	token := makeToken(t, time.Hour)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/token":
			user, pass, ok := r.BasicAuth()
			sawBasicAuth = ok && user == "+15550001" && pass == "pw"
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: token, RefreshToken: "r1"})
		case "/v1/accounts/whoami":
			sawBearer = r.Header.Get("Authorization") == "Bearer "+token
			_ = json.NewEncoder(w).Encode(WhoAmIResponse{Number: "+15550001", ServiceID: serviceID})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	resp, err := client.WhoAmI(context.Background())
	require.NoError(t, err)
	require.True(t, sawBasicAuth, "token endpoint must receive basic auth")
	require.True(t, sawBearer, "whoami must carry the bearer token")
	require.Equal(t, "+15550001", resp.Number)
	require.Equal(t, serviceID, resp.ServiceID)
}

func TestHTTPClient_RetriesOnceAfterUnauthorized(t *testing.T) {
	goodToken := makeToken(t, time.Hour)
	staleToken := makeToken(t, 30*time.Minute)
	authCalls := 0

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/token":
			authCalls++
			tok := staleToken
			if authCalls > 1 {
				tok = goodToken
			}
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: tok, RefreshToken: "r"})
		case "/v1/auth/refresh":
			authCalls++
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: goodToken, RefreshToken: "r2"})
		case "/v1/devices":
			if r.Header.Get("Authorization") != "Bearer "+goodToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"devices": []DeviceInfo{{ID: 1}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	devices, err := client.GetDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, 2, authCalls, "expected initial auth plus one refresh")
}

func TestHTTPClient_UnauthorizedSurvivingRefresh(t *testing.T) {
	token := makeToken(t, time.Hour)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/token", "/v1/auth/refresh":
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: token, RefreshToken: "r"})
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))

	err := client.DeleteAccount(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPClient_ServerErrorMapsToUnavailable(t *testing.T) {
	token := makeToken(t, time.Hour)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/auth/token" {
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: token})
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.GetPreKeyCount(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_ConnectionErrorMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // dead endpoint

	client := NewHTTPClient(srv.URL, time.Second, "+15550001", "pw")
	_, err := client.WhoAmI(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_AddDeviceInvalidLink(t *testing.T) {
	token := makeToken(t, time.Hour)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/auth/token" {
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: token})
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	err := client.AddDevice(context.Background(), "dev-1", []byte{1}, "code")
	require.ErrorIs(t, err, ErrInvalidDeviceLink)
}

func TestTokenNeedsRefresh(t *testing.T) {
	require.True(t, tokenNeedsRefresh(""))
	require.True(t, tokenNeedsRefresh("not-a-jwt"))
	require.True(t, tokenNeedsRefresh(makeToken(t, 5*time.Second)), "tokens about to expire must refresh")
	require.False(t, tokenNeedsRefresh(makeToken(t, time.Hour)))
}

func TestVerificationClient_RequestVerificationCode(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	vc := NewVerificationClient(srv.URL, time.Second, "+15559999", "pw")
	require.NoError(t, vc.RequestVerificationCode(context.Background(), "cap-123", false))
	require.Equal(t, "/v1/verification/sms/code/+15559999", gotPath)
	require.Equal(t, "captcha=cap-123", gotQuery)

	require.NoError(t, vc.RequestVerificationCode(context.Background(), "", true))
	require.Equal(t, "/v1/verification/voice/code/+15559999", gotPath)
}

func TestVerificationClient_CaptchaRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	t.Cleanup(srv.Close)

	vc := NewVerificationClient(srv.URL, time.Second, "+15559999", "pw")
	err := vc.RequestVerificationCode(context.Background(), "", false)
	require.ErrorIs(t, err, ErrCaptchaRequired)
}
