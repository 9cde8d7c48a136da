package transport

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID обеспечивает наличие X-Request-Id в исходящем запросе:
//   - уже выставленный заголовок не трогается;
//   - иначе берётся id входящего запроса из контекста (CtxRequestID);
//   - иначе генерируется uuid.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("X-Request-Id") != "" {
				return next.RoundTrip(req)
			}

			rid, _ := req.Context().Value(CtxRequestID).(string)
			if rid == "" {
				rid = uuid.NewString()
			}

			out := req.Clone(req.Context())
			out.Header.Set("X-Request-Id", rid)

			return next.RoundTrip(out)
		})
	}
}

// UserAgent выставляет User-Agent, если ua непустой.
func UserAgent(ua string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if ua == "" {
			return next
		}

		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			out := req.Clone(req.Context())
			out.Header.Set("User-Agent", ua)

			return next.RoundTrip(out)
		})
	}
}
