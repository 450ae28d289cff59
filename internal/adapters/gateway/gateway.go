package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/AchilleasB/roombook/booking-client/internal/config"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
	"github.com/AchilleasB/roombook/booking-client/internal/metrics"
)

const (
	maxResponseBytes = 8 << 20

	msgExpired      = "login expired, please log in again"
	msgForbidden    = "insufficient permissions, please log in again"
	msgUnreachable  = "network error: unable to reach the server"
	msgRequestSetup = "request error"
)

// Request describes one outgoing call. Header entries override the gate's
// defaults; an Authorization entry replaces the resolved credential except
// on exempt paths. Anonymous requests are never signed.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Header    http.Header
	Anonymous bool
}

type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	ExemptPaths []string
	Limiter     *rate.Limiter
	Breaker     *gobreaker.CircuitBreaker
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Gateway signs, sends and classifies every request to the booking API.
type Gateway struct {
	baseURL  string
	client   *http.Client
	creds    Credentials
	nav      ports.Navigator
	notifier ports.Notifier
	exempt   []string
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *slog.Logger

	invalidations singleflight.Group
}

func New(creds Credentials, nav ports.Navigator, notifier ports.Notifier, opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second, Jar: NewJar()}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	cb := opts.Breaker
	if cb == nil {
		cb = config.NewCircuitBreaker("Booking-API", logger)
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Gateway{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		client:   client,
		creds:    creds,
		nav:      nav,
		notifier: notifier,
		exempt:   append([]string(nil), opts.ExemptPaths...),
		limiter:  limiter,
		cb:       cb,
		metrics:  m,
		logger:   logger,
	}
}

// Do sends req and returns the normalized envelope of a successful response.
func (g *Gateway) Do(ctx context.Context, req Request) (*Envelope, error) {
	env, err := g.do(ctx, req)
	if err != nil {
		g.report(req, err)
		return nil, err
	}
	g.metrics.Requests.WithLabelValues(req.Method, "ok").Inc()
	return env, nil
}

// Call sends req and decodes the envelope data into out, when out is not nil.
func (g *Gateway) Call(ctx context.Context, req Request, out any) error {
	env, err := g.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return env.Decode(out)
}

func (g *Gateway) do(ctx context.Context, req Request) (*Envelope, error) {
	httpReq, err := g.build(ctx, req)
	if err != nil {
		return nil, &domain.Error{Kind: domain.ErrValidation, Message: msgRequestSetup, Err: err}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, domain.NewTransportError(msgUnreachable, err)
	}

	res, err := g.cb.Execute(func() (interface{}, error) {
		return g.client.Do(httpReq)
	})
	if err != nil {
		return nil, domain.NewTransportError(msgUnreachable, err)
	}
	resp := res.(*http.Response)
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewTransportError(msgUnreachable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		g.invalidate(ctx)
		msg := msgExpired
		if resp.StatusCode == http.StatusForbidden {
			msg = msgForbidden
		}
		return nil, domain.NewAuthError(resp.StatusCode, msg)

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodeEnvelope(resp.StatusCode, body)

	default:
		return nil, domain.NewBusinessError(resp.StatusCode, 0, errorMessage(resp.StatusCode, body))
	}
}

func (g *Gateway) build(ctx context.Context, req Request) (*http.Request, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	u := g.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	var override string
	for k, vals := range req.Header {
		if http.CanonicalHeaderKey(k) == "Authorization" {
			if len(vals) > 0 {
				override = vals[0]
			}
			continue
		}
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}

	auth, source := g.authorization(req, override)
	if auth != "" {
		httpReq.Header.Set("Authorization", auth)
	}
	g.logger.Debug("gateway: request", "method", req.Method, "path", req.Path, "credential", source, "token", redact(auth))
	return httpReq, nil
}

// invalidate destroys the acting scope once per burst of failures. Only the
// caller that actually removed a live credential redirects.
func (g *Gateway) invalidate(ctx context.Context) {
	scope := domain.ScopeForPath(g.nav.CurrentPath())

	_, _, _ = g.invalidations.Do(string(scope), func() (interface{}, error) {
		cleared, err := g.creds.ClearScope(context.WithoutCancel(ctx), scope)
		if err != nil {
			g.logger.Error("gateway: failed to clear scope", "scope", scope, "error", err)
		}
		if !cleared {
			return nil, nil
		}
		g.metrics.AuthInvalidations.WithLabelValues(string(scope)).Inc()
		g.logger.Warn("gateway: authorization failed, scope cleared", "scope", scope)
		g.nav.Redirect(scope.LoginPath())
		return nil, nil
	})
}

func (g *Gateway) report(req Request, err error) {
	outcome := "business"
	switch {
	case errors.Is(err, domain.ErrTransport):
		outcome = "transport"
	case errors.Is(err, domain.ErrAuth):
		outcome = "auth"
	case errors.Is(err, domain.ErrValidation):
		outcome = "validation"
	}
	g.metrics.Requests.WithLabelValues(req.Method, outcome).Inc()
	g.logger.Warn("gateway: request failed", "method", req.Method, "path", req.Path, "outcome", outcome, "error", err)
	if g.notifier != nil {
		g.notifier.Notify(err.Error())
	}
}
