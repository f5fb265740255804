package paypal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shorestay/internal/app/policies"
)

// expiryLeeway refreshes the token slightly before the processor-reported
// expiry so in-flight requests never carry a token about to lapse.
const expiryLeeway = 30 * time.Second

// tokenSource caches the bearer token from the credential exchange. Refresh
// is single-flight: callers racing on an expired token collapse into one
// exchange instead of a thundering herd.
type tokenSource struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
	group  singleflight.Group
}

func newTokenSource(baseURL, clientID, secret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		http:     httpClient,
		now:      time.Now,
	}
}

func (s *tokenSource) AccessToken(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}
	v, err, _ := s.group.Do("token", func() (any, error) {
		// Another caller may have refreshed while we waited on the group.
		if token, ok := s.cached(); ok {
			return token, nil
		}
		return s.exchange(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *tokenSource) cached() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.now().Add(expiryLeeway).Before(s.expiry) {
		return s.token, true
	}
	return "", false
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *tokenSource) exchange(ctx context.Context) (string, error) {
	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.clientID, s.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", &policies.GatewayError{Op: "token exchange", Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &policies.GatewayError{Op: "token exchange", Status: resp.StatusCode, Reason: string(snippet)}
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &policies.GatewayError{Op: "token exchange", Status: resp.StatusCode, Reason: err.Error()}
	}
	if payload.AccessToken == "" {
		return "", &policies.GatewayError{Op: "token exchange", Status: resp.StatusCode, Reason: "empty access token"}
	}

	s.mu.Lock()
	s.token = payload.AccessToken
	s.expiry = s.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	s.mu.Unlock()

	return payload.AccessToken, nil
}

// invalidate drops the cached token, forcing the next caller to re-exchange.
func (s *tokenSource) invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	s.mu.Unlock()
}
