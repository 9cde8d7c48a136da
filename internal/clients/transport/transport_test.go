package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cornenkiV/web-ads/internal/pkg/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type capHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   map[string]int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// recorder - нижний RoundTripper, запоминающий последний запрос.
type recorder struct {
	mu   sync.Mutex
	last *http.Request
	code int
}

func (rec *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	rec.mu.Lock()
	rec.last = req
	rec.mu.Unlock()

	code := rec.code
	if code == 0 {
		code = http.StatusOK
	}

	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     http.Header{},
		Request:    req,
	}, nil
}

func newReq(t *testing.T, ctx context.Context, method, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	require.NoError(t, err)
	return req
}

func TestChain_FirstIsOutermost(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}

	rt := Chain(&recorder{}, mark("a"), mark("b"), mark("c"))
	resp, err := rt.RoundTrip(newReq(t, context.Background(), http.MethodGet, "http://api/ads"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestChain_NilBaseUsesDefaultTransport(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.DefaultTransport, Chain(nil))
}

func TestRequestID_FromContext(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	rt := Chain(rec, RequestID())

	ctx := context.WithValue(context.Background(), CtxRequestID, "rid-123")
	req := newReq(t, ctx, http.MethodGet, "http://api/ads")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, "rid-123", rec.last.Header.Get("X-Request-Id"))
	require.Empty(t, req.Header.Get("X-Request-Id"), "запрос вызывающего не меняется")
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	rt := Chain(rec, RequestID())

	resp, err := rt.RoundTrip(newReq(t, context.Background(), http.MethodGet, "http://api/ads"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	_, err = uuid.Parse(rec.last.Header.Get("X-Request-Id"))
	require.NoError(t, err)
}

func TestRequestID_KeepsExistingHeader(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	rt := Chain(rec, RequestID())

	req := newReq(t, context.WithValue(context.Background(), CtxRequestID, "from-ctx"), http.MethodGet, "http://api/ads")
	req.Header.Set("X-Request-Id", "explicit")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, "explicit", rec.last.Header.Get("X-Request-Id"))
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	resp, err := Chain(rec, UserAgent("web-ads-gateway")).
		RoundTrip(newReq(t, context.Background(), http.MethodGet, "http://api/ads"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, "web-ads-gateway", rec.last.Header.Get("User-Agent"))

	// пустой ua - no-op
	base := &recorder{}
	require.Equal(t, http.RoundTripper(base), UserAgent("")(base))
}

func TestLogging_OneRecordPerAttempt(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	rec := &recorder{code: http.StatusNotFound}

	var ctxLogger *slog.Logger
	probe := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		ctxLogger = log.From(req.Context())
		return rec.RoundTrip(req)
	})

	rt := Chain(probe, RequestID(), Logging(slog.New(h)))

	req := newReq(t, context.WithValue(context.Background(), CtxRequestID, "rid-7"), http.MethodGet, "http://api.local/ads/5")
	req.Header.Set("Authorization", "Bearer secret-token")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, 1, h.count["http_client"])
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, "rid-7", h.attrs["request_id"])
	require.Equal(t, "GET", h.attrs["method"])
	require.Equal(t, "api.local", h.attrs["host"])
	require.Equal(t, "/ads/5", h.attrs["path"])
	require.EqualValues(t, http.StatusNotFound, h.attrs["status"])
	require.Equal(t, "Bearer [REDACTED_TOKEN]", h.attrs["auth"])
	require.NotNil(t, ctxLogger)

	for _, v := range h.attrs {
		if s, ok := v.(string); ok {
			require.NotContains(t, s, "secret-token")
		}
	}
}

func TestLogging_TransportErrorIsWarn(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	failing := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	_, err := Chain(failing, Logging(slog.New(h))).
		RoundTrip(newReq(t, context.Background(), http.MethodGet, "http://api/ads"))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	require.Equal(t, slog.LevelWarn, h.lastLvl)
	require.EqualValues(t, 0, h.attrs["status"])
	require.Equal(t, "none", h.attrs["auth"])
	require.Contains(t, h.attrs["err"], "unexpected EOF")
}

func TestThrottle_NilLimiterIsNoop(t *testing.T) {
	t.Parallel()

	base := &recorder{}
	require.Equal(t, http.RoundTripper(base), Throttle(nil, nil)(base))
	require.Nil(t, NewLimiter(0, 10))
}

func TestThrottle_WaitsAndRespectsContext(t *testing.T) {
	t.Parallel()

	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	rt := Chain(&recorder{}, Throttle(lim, nil))

	resp, err := rt.RoundTrip(newReq(t, context.Background(), http.MethodGet, "http://api/ads"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = rt.RoundTrip(newReq(t, ctx, http.MethodGet, "http://api/ads"))
	require.Error(t, err, "второй запрос не укладывается в лимит до дедлайна")
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	lim := NewLimiter(5, 0)
	require.NotNil(t, lim)
	require.Equal(t, rate.Limit(5), lim.Limit())
	require.Equal(t, 1, lim.Burst())
}

func TestTimeout_NoOpWhenDisabled(t *testing.T) {
	t.Parallel()

	base := &recorder{}
	require.Equal(t, http.RoundTripper(base), Timeout(0)(base))
}

func TestTimeout_RespectsExistingDeadline(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := parent.Deadline()

	var got time.Time
	probe := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		got, _ = req.Context().Deadline()
		return (&recorder{}).RoundTrip(req)
	})

	resp, err := Chain(probe, Timeout(10*time.Millisecond)).RoundTrip(newReq(t, parent, http.MethodGet, "http://api/ads"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.True(t, want.Equal(got))
}

func TestTimeout_AppliesAndBodyStaysReadable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = io.WriteString(w, "payload")
	}))
	defer srv.Close()

	client := &http.Client{Transport: Chain(http.DefaultTransport, Timeout(100*time.Millisecond))}

	resp, err := client.Get(srv.URL + "/fast")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "payload", string(body))

	_, err = client.Get(srv.URL + "/slow")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
