// Package api is the HTTP adapter for the remote booking API. It attaches the
// session's bearer token and refreshes it once when a request comes back 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookingclient/internal/metrics"
	"bookingclient/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathRefresh  = "/auth/refresh"
)

var authEndpoints = []string{pathLogin, pathRegister, pathRefresh}

func isAuthEndpoint(path string) bool {
	for _, p := range authEndpoints {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ErrSessionChanged is returned by Credentials.ApplyRefresh when the session
// the refresh was issued for has been logged out or replaced meanwhile.
var ErrSessionChanged = errors.New("api: session changed during refresh")

// Credentials is the session state the client reads and mutates.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	// ApplyRefresh stores resp only while prevRefresh is still the held
	// refresh token; otherwise it returns ErrSessionChanged.
	ApplyRefresh(prevRefresh string, resp *models.AuthResponse) error
	ForceLogout()
}

// Client calls the booking API on behalf of the current session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	logger     *zerolog.Logger

	limiter *rate.Limiter

	shareRefresh bool
	refreshGroup singleflight.Group

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for baseURL. Credentials are attached later
// with UseCredentials because the session store itself depends on the client.
func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		shareRefresh: true,
	}
}

// UseCredentials sets the session the client authenticates as.
func (c *Client) UseCredentials(creds Credentials) {
	c.creds = creds
}

// UseRedisCache configures optional Redis caching for facility lookups.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit throttles outbound requests; rps <= 0 disables throttling.
func (c *Client) UseRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// ShareRefresh controls whether concurrent 401s wait on one refresh call
// instead of each refreshing on their own.
func (c *Client) ShareRefresh(enabled bool) {
	c.shareRefresh = enabled
}

type request struct {
	method   string
	path     string
	body     []byte
	endpoint string

	// retried is set once the request has been through a refresh.
	retried bool
	// bearer overrides the session token after a refresh.
	bearer string
}

func newRequest(method, path, endpoint string, body any) (*request, error) {
	r := &request{method: method, path: path, endpoint: endpoint}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		r.body = data
	}
	return r, nil
}

func (c *Client) doGet(ctx context.Context, path, endpoint string, out any) error {
	r, _ := newRequest(http.MethodGet, path, endpoint, nil)
	return c.do(ctx, r, out)
}

func (c *Client) doPost(ctx context.Context, path, endpoint string, body, out any) error {
	r, err := newRequest(http.MethodPost, path, endpoint, body)
	if err != nil {
		return err
	}
	return c.do(ctx, r, out)
}

func (c *Client) doDelete(ctx context.Context, path, endpoint string) error {
	r, _ := newRequest(http.MethodDelete, path, endpoint, nil)
	return c.do(ctx, r, nil)
}

func (c *Client) do(ctx context.Context, r *request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncAPIRequest(r.endpoint, "read_error")
		return &Error{Kind: KindNetwork, Message: "read response body", HTTPStatus: resp.StatusCode, Err: err}
	}
	metrics.IncAPIRequest(r.endpoint, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized && !r.retried && !isAuthEndpoint(r.path) {
		return c.refreshAndRetry(ctx, r, newStatusError(resp.StatusCode, body), out)
	}

	if resp.StatusCode >= 300 {
		apiErr := newStatusError(resp.StatusCode, body)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("method", r.method).
			Str("url", r.path).
			Str("message", apiErr.Message).
			Msg("API error response")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindDecode, Message: "invalid response body", HTTPStatus: resp.StatusCode, Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, r *request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindNetwork, Message: "rate limit wait", Err: err}
		}
	}

	var body io.Reader = http.NoBody
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "build request", Err: err}
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.addHeaders(req, r)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncAPIRequest(r.endpoint, "network_error")
		c.logger.Error().
			Err(err).
			Str("method", r.method).
			Str("url", r.path).
			Bool("timeout", errors.Is(err, context.DeadlineExceeded)).
			Msg("API network error")
		return nil, &Error{Kind: KindNetwork, Message: "no response received", Err: err}
	}
	return resp, nil
}

func (c *Client) addHeaders(req *http.Request, r *request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	if isAuthEndpoint(r.path) {
		return
	}
	token := r.bearer
	if token == "" && c.creds != nil {
		token = c.creds.AccessToken()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// refreshAndRetry runs at most once per originating request.
func (c *Client) refreshAndRetry(ctx context.Context, r *request, original *Error, out any) error {
	r.retried = true

	if c.creds == nil || c.creds.RefreshToken() == "" {
		c.logger.Warn().Str("url", r.path).Msg("401 without refresh token; logging out")
		c.forceLogout()
		return original
	}

	auth, err := c.refreshSession(ctx)
	if errors.Is(err, ErrSessionChanged) {
		// The session was logged out or replaced; its owner decides what
		// happens next, so neither retry nor log out here.
		c.logger.Info().Str("url", r.path).Msg("session changed during refresh; dropping result")
		metrics.IncTokenRefresh("discarded")
		return original
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("token refresh failed")
		metrics.IncTokenRefresh("failed")
		c.forceLogout()
		return &Error{
			Kind:          KindRefreshFailed,
			Message:       "token refresh failed",
			ServerMessage: Message(err, ""),
			HTTPStatus:    statusOf(err),
			Err:           err,
		}
	}
	metrics.IncTokenRefresh("ok")

	r.bearer = auth.AccessToken
	return c.do(ctx, r, out)
}

// refreshSession exchanges the held refresh token and stores the new pair.
func (c *Client) refreshSession(ctx context.Context) (*models.AuthResponse, error) {
	if !c.shareRefresh {
		return c.exchangeRefresh(ctx)
	}
	// Detached from the caller's context so one canceled waiter does not
	// fail the refresh for everyone else sharing it.
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.exchangeRefresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.AuthResponse), nil
}

func (c *Client) exchangeRefresh(ctx context.Context) (*models.AuthResponse, error) {
	prev := c.creds.RefreshToken()
	auth, err := c.Refresh(ctx, prev)
	if err != nil {
		return nil, err
	}
	if err := c.creds.ApplyRefresh(prev, auth); err != nil {
		if errors.Is(err, ErrSessionChanged) {
			return nil, err
		}
		c.logger.Warn().Err(err).Msg("persist refreshed session")
	}
	return auth, nil
}

func (c *Client) forceLogout() {
	metrics.IncForcedLogout()
	if c.creds != nil {
		c.creds.ForceLogout()
	}
}

func statusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus
	}
	return 0
}

// HealthCheck checks if the API host answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}
