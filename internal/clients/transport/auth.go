package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	"github.com/cornenkiV/web-ads/internal/metrics"
	"github.com/cornenkiV/web-ads/internal/pkg/log"

	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -destination=../../../mocks/mock_transport.go -package=mocks github.com/cornenkiV/web-ads/internal/clients/transport Refresher

// TokenSource - текущий access-токен (token.Store).
type TokenSource interface {
	Get() (string, bool)
}

// Refresher обменивает refresh-токен на новый access-токен (session.Manager).
// Ошибка, оборачивающая apierrors.ErrNoRefreshToken, означает, что обновлять нечем.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// AuthOptions - настройки Authenticator.
type AuthOptions struct {
	// RefreshPath - суффикс пути refresh-эндпоинта; такие запросы идут
	// без заголовка Authorization и никогда не запускают обновление.
	RefreshPath string
	// Coalesce - одновременные 403 разделяют один обмен токена.
	Coalesce bool
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Authenticator прикрепляет bearer-токен к исходящим запросам и один раз
// восстанавливает запрос после 403: обновляет токен и повторяет его.
type Authenticator struct {
	tokens TokenSource
	opts   AuthOptions
	group  singleflight.Group

	mu        sync.RWMutex
	refresher Refresher
}

type retriedKey struct{}

// NewAuthenticator создаёт Authenticator без Refresher; до SetRefresher
// каждый 403 возвращается вызывающему как есть.
func NewAuthenticator(tokens TokenSource, opts AuthOptions) *Authenticator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Authenticator{tokens: tokens, opts: opts}
}

// SetRefresher устанавливает источник обновления токена.
func (a *Authenticator) SetRefresher(r Refresher) {
	a.mu.Lock()
	a.refresher = r
	a.mu.Unlock()
}

// Middleware возвращает декоратор конвейера.
func (a *Authenticator) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return a.roundTrip(next, req)
		})
	}
}

func (a *Authenticator) roundTrip(next http.RoundTripper, req *http.Request) (*http.Response, error) {
	const op = "transport.Authenticator"

	if a.isRefreshCall(req) {
		return next.RoundTrip(req)
	}

	req, err := replayable(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	first, err := rewind(req.Context(), req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tok, ok := a.tokens.Get(); ok {
		first.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := next.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusForbidden || isRetried(req.Context()) {
		return resp, err
	}

	ctx := context.WithValue(req.Context(), retriedKey{}, true)
	lg := log.FromOr(ctx, a.opts.Logger)

	tok, err := a.refresh(ctx)
	if err != nil {
		if errors.Is(err, apierrors.ErrNoRefreshToken) {
			return resp, nil
		}

		drain(resp.Body)
		lg.Warn("auth_refresh_failed",
			slog.String("op", op),
			slog.String("path", req.URL.Path),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	drain(resp.Body)

	retry, err := rewind(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	retry.Header.Set("Authorization", "Bearer "+tok)

	resp, err = next.RoundTrip(retry)

	status := 0
	if err == nil {
		status = resp.StatusCode
	}
	a.opts.Metrics.ObserveRetry(metrics.StatusClass(status))
	lg.Debug("auth_retry",
		slog.String("path", req.URL.Path),
		slog.Int("status", status),
	)

	return resp, err
}

func (a *Authenticator) refresh(ctx context.Context) (string, error) {
	a.mu.RLock()
	r := a.refresher
	a.mu.RUnlock()

	if r == nil {
		return "", apierrors.ErrNoRefreshToken
	}

	if !a.opts.Coalesce {
		return r.Refresh(ctx)
	}

	// Общий обмен не должен обрываться отменой первого вызывающего.
	ch := a.group.DoChan("refresh", func() (any, error) {
		return r.Refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (a *Authenticator) isRefreshCall(req *http.Request) bool {
	return a.opts.RefreshPath != "" && strings.HasSuffix(req.URL.Path, a.opts.RefreshPath)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// replayable гарантирует GetBody у запроса с телом, буферизуя тело заранее.
// Исходное тело закрывается в любом случае: попытки читают копии из GetBody.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req, nil
	}

	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	out.Body, _ = out.GetBody()
	out.ContentLength = int64(len(buf))

	return out, nil
}

// rewind возвращает копию запроса со свежим телом и контекстом ctx.
func rewind(ctx context.Context, req *http.Request) (*http.Request, error) {
	out := req.Clone(ctx)
	if req.GetBody == nil {
		return out, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body

	return out, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
